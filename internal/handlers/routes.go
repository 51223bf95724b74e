package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GoBetterAuth/session-store/internal/util"
)

type RouterOptions struct {
	DB                Pinger
	SessionMiddleware func(http.Handler) http.Handler
	// MetricsPath and MetricsHandler are mounted when both are set.
	MetricsPath    string
	MetricsHandler http.Handler
}

// NewRouter mounts the session routes behind the session middleware.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		util.JSONError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		util.JSONError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/healthz", (&HealthHandler{DB: opts.DB}).Handle)
	if opts.MetricsPath != "" && opts.MetricsHandler != nil {
		r.Handle(opts.MetricsPath, opts.MetricsHandler)
	}

	r.Route("/session", func(r chi.Router) {
		r.Use(opts.SessionMiddleware)
		r.Get("/", (&GetSessionHandler{}).Handle)
		r.Put("/{key}", (&SetValueHandler{}).Handle)
		r.Delete("/{key}", (&DeleteValueHandler{}).Handle)
		r.Post("/reset", (&ResetSessionHandler{}).Handle)
	})

	return r
}
