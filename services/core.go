package services

import (
	"context"

	"github.com/GoBetterAuth/session-store/models"
)

// SessionService is the store's public session surface.
type SessionService interface {
	// New builds an unsaved record bound to the store codec.
	New(sessionID string) *models.Session
	// FindBySessionID returns nil, nil when no record matches.
	FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	// Save serializes a loaded mapping, guards its size and writes the row.
	// Existing records whose data was never read are not written.
	Save(ctx context.Context, session *models.Session) error
	Destroy(ctx context.Context, sessionID string) error
	// DataColumnLimit returns the byte capacity enforced by Save, 0 when unbounded.
	DataColumnLimit(ctx context.Context) (int, error)
}

type CoreServices struct {
	SessionService SessionService
}
