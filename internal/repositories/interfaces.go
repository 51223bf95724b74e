package repositories

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/GoBetterAuth/session-store/models"
)

// SessionRepository is the storage surface the session store needs: one row
// lookup, one row write and enough schema knowledge to guard the data column.
type SessionRepository interface {
	// FindBySessionID returns nil, nil when no row matches.
	FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	// Create inserts the record and assigns its ID and timestamps.
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	// Update writes RawData and updated_at for an existing record.
	Update(ctx context.Context, session *models.Session) (*models.Session, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
	Count(ctx context.Context) (int, error)
	// DataColumnLimit returns the declared byte capacity of the data column, 0 when unbounded.
	DataColumnLimit(ctx context.Context) (int, error)
	TableExists(ctx context.Context) (bool, error)
	WithTx(tx bun.IDB) SessionRepository
}

// SchemaInspector answers dialect specific questions about the sessions table.
type SchemaInspector interface {
	TableExists(ctx context.Context, table string) (bool, error)
	ColumnLimit(ctx context.Context, table string, column string) (int, error)
}
