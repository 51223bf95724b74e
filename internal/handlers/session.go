package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/GoBetterAuth/session-store/internal/middleware"
	"github.com/GoBetterAuth/session-store/internal/util"
)

type SessionResponse struct {
	Data map[string]any `json:"data"`
	Keys []string       `json:"keys"`
}

type SetValuePayload struct {
	Value any `json:"value"`
}

// GetSessionHandler returns the current session mapping.
type GetSessionHandler struct{}

func (h *GetSessionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		util.JSONError(w, http.StatusInternalServerError, "session middleware is not installed")
		return
	}

	data := session.Snapshot()
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	util.JSONResponse(w, http.StatusOK, SessionResponse{Data: data, Keys: keys})
}

// SetValueHandler stores {"value": ...} under the {key} path parameter.
type SetValueHandler struct{}

func (h *SetValueHandler) Handle(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		util.JSONError(w, http.StatusInternalServerError, "session middleware is not installed")
		return
	}

	key := chi.URLParam(r, "key")
	if key == "" {
		util.JSONError(w, http.StatusBadRequest, "key is required")
		return
	}

	var payload SetValuePayload
	if err := util.ParseJSON(r, &payload); err != nil {
		util.JSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	session.Set(key, payload.Value)
	util.JSONResponse(w, http.StatusOK, map[string]any{"key": key, "value": payload.Value})
}

type DeleteValueHandler struct{}

func (h *DeleteValueHandler) Handle(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		util.JSONError(w, http.StatusInternalServerError, "session middleware is not installed")
		return
	}

	session.Delete(chi.URLParam(r, "key"))
	w.WriteHeader(http.StatusNoContent)
}

// ResetSessionHandler drops the session and issues a new identifier.
type ResetSessionHandler struct{}

func (h *ResetSessionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if err := middleware.Reset(r); err != nil {
		util.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	DB Pinger
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		util.JSONResponse(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	util.JSONResponse(w, http.StatusOK, map[string]any{"status": "ok"})
}
