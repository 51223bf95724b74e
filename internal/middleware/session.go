package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/GoBetterAuth/session-store/internal/router"
	"github.com/GoBetterAuth/session-store/internal/security"
	"github.com/GoBetterAuth/session-store/internal/util"
	"github.com/GoBetterAuth/session-store/models"
)

// SessionStore is what the middleware needs from the session service.
type SessionStore interface {
	New(sessionID string) *models.Session
	FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Destroy(ctx context.Context, sessionID string) error
}

type SessionOptions struct {
	Cookie models.CookieConfig
	IDs    security.SessionIDGenerator
	Logger models.Logger
}

// Session loads the record named by the session cookie, or prepares a new
// one, and saves it after the handler returns. New records are only written
// and only get a cookie once their data has been read or changed.
func Session(store SessionStore, opts SessionOptions) func(http.Handler) http.Handler {
	ids := opts.IDs
	if ids == nil {
		ids = security.NewSessionIDGenerator(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewMockLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			state, err := load(ctx, r, store, ids, opts.Cookie.Name)
			if err != nil {
				logger.Error("failed to load session", "error", err)
				util.JSONError(w, http.StatusInternalServerError, "failed to load session")
				return
			}

			drw := router.NewDeferredResponseWriter(w)
			next.ServeHTTP(drw, r.WithContext(context.WithValue(ctx, models.ContextSession, state)))

			if err := state.persist(ctx); err != nil {
				var overflow *models.SessionDataOverflowError
				if errors.As(err, &overflow) {
					overrideJSON(drw, http.StatusRequestEntityTooLarge, map[string]any{
						"message": "session data too large",
						"size":    overflow.Size,
						"limit":   overflow.Limit,
					})
				} else {
					logger.Error("failed to save session", "error", err)
					overrideJSON(drw, http.StatusInternalServerError, map[string]any{"message": "failed to save session"})
				}
			} else {
				state.writeCookie(drw, opts.Cookie)
			}

			if err := drw.Flush(); err != nil {
				logger.Error("failed to write response", "error", err)
			}
		})
	}
}

func load(
	ctx context.Context,
	r *http.Request,
	store SessionStore,
	ids security.SessionIDGenerator,
	cookieName string,
) (*sessionState, error) {
	if cookie, err := r.Cookie(cookieName); err == nil && security.ValidSessionID(cookie.Value) {
		session, err := store.FindBySessionID(ctx, ids.StorageKey(cookie.Value))
		if err != nil {
			return nil, err
		}
		if session != nil {
			return &sessionState{store: store, ids: ids, session: session, cookieValue: cookie.Value}, nil
		}
	}

	state := &sessionState{store: store, ids: ids}
	if err := state.issue(); err != nil {
		return nil, err
	}
	return state, nil
}

// sessionState is the per-request value behind models.ContextSession.
type sessionState struct {
	store SessionStore
	ids   security.SessionIDGenerator

	session     *models.Session
	cookieValue string
	isNew       bool
	// discard holds the storage key of a session dropped by Reset.
	discard string
	// hadCookie is set when the browser holds a cookie that must be cleared.
	hadCookie bool
}

func (s *sessionState) issue() error {
	value, err := s.ids.Generate()
	if err != nil {
		return err
	}
	s.session = s.store.New(s.ids.StorageKey(value))
	s.cookieValue = value
	s.isNew = true
	return nil
}

// persist saves the current record before destroying one dropped by Reset,
// so a rejected save leaves the previous session intact.
func (s *sessionState) persist(ctx context.Context) error {
	if !s.isNew || s.session.Loaded() {
		if err := s.store.Save(ctx, s.session); err != nil {
			return err
		}
	}
	if s.discard != "" {
		return s.store.Destroy(ctx, s.discard)
	}
	return nil
}

func (s *sessionState) writeCookie(w http.ResponseWriter, cfg models.CookieConfig) {
	switch {
	case s.isNew && s.session.Loaded():
		http.SetCookie(w, newCookie(cfg, s.cookieValue, int(cfg.MaxAge.Seconds())))
	case s.hadCookie:
		http.SetCookie(w, newCookie(cfg, "", -1))
	}
}

func newCookie(cfg models.CookieConfig, value string, maxAge int) *http.Cookie {
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		Secure:   cfg.Secure,
		HttpOnly: cfg.HttpOnly,
		SameSite: util.ParseSameSite(cfg.SameSite),
	}
}

func overrideJSON(drw *router.DeferredResponseWriter, status int, body map[string]any) {
	raw, err := util.MarshalJSON(body)
	if err != nil {
		raw = []byte(`{"message":"internal error"}`)
	}
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	drw.Override(status, headers, raw)
}

// SessionFromContext returns the request's session record.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	state, ok := ctx.Value(models.ContextSession).(*sessionState)
	if !ok || state == nil {
		return nil, false
	}
	return state.session, true
}

// Reset drops the current session and issues a fresh identifier with empty
// data. The old row is deleted when the request completes.
func Reset(r *http.Request) error {
	state, ok := r.Context().Value(models.ContextSession).(*sessionState)
	if !ok || state == nil {
		return errors.New("no session in request context")
	}

	if !state.isNew {
		state.discard = state.session.SessionID
		state.hadCookie = true
	}
	return state.issue()
}
