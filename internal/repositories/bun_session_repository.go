package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"

	"github.com/GoBetterAuth/session-store/models"
)

const (
	SessionsTable     = "sessions"
	DefaultDataColumn = "data"
)

type BunSessionRepository struct {
	db         bun.IDB
	dataColumn string
	inspector  SchemaInspector
}

func NewBunSessionRepository(db bun.IDB, dataColumn string) SessionRepository {
	if dataColumn == "" {
		dataColumn = DefaultDataColumn
	}
	return &BunSessionRepository{
		db:         db,
		dataColumn: dataColumn,
		inspector:  NewSchemaInspector(db),
	}
}

func (r *BunSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	s := new(models.Session)
	err := r.db.NewSelect().
		Model(s).
		ColumnExpr("s.id, s.session_id, s.created_at, s.updated_at").
		ColumnExpr("s.? AS data", bun.Ident(r.dataColumn)).
		Where("s.session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}

func (r *BunSessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if session.SessionID == "" {
		return nil, errors.New("session identifier cannot be empty")
	}

	id := session.ID
	if id == "" {
		id = ulid.Make().String()
	}
	now := time.Now().UTC()

	values := map[string]any{
		"id":         id,
		"session_id": session.SessionID,
		r.dataColumn: blobValue(session.RawData),
		"created_at": now,
		"updated_at": now,
	}

	if _, err := r.db.NewInsert().Model(&values).TableExpr(SessionsTable).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	session.ID = id
	session.CreatedAt = now
	session.UpdatedAt = now
	return session, nil
}

func (r *BunSessionRepository) Update(ctx context.Context, session *models.Session) (*models.Session, error) {
	if session.ID == "" {
		return nil, errors.New("cannot update a session that was never created")
	}

	now := time.Now().UTC()
	_, err := r.db.NewUpdate().
		Table(SessionsTable).
		Set("? = ?", bun.Ident(r.dataColumn), blobValue(session.RawData)).
		Set("updated_at = ?", now).
		Where("id = ?", session.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	session.UpdatedAt = now
	return session, nil
}

func (r *BunSessionRepository) DeleteBySessionID(ctx context.Context, sessionID string) error {
	_, err := r.db.NewDelete().Model((*models.Session)(nil)).Where("session_id = ?", sessionID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *BunSessionRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*models.Session)(nil)).Count(ctx)
}

func (r *BunSessionRepository) DataColumnLimit(ctx context.Context) (int, error) {
	return r.inspector.ColumnLimit(ctx, SessionsTable, r.dataColumn)
}

func (r *BunSessionRepository) TableExists(ctx context.Context) (bool, error) {
	return r.inspector.TableExists(ctx, SessionsTable)
}

func (r *BunSessionRepository) WithTx(tx bun.IDB) SessionRepository {
	return &BunSessionRepository{
		db:         tx,
		dataColumn: r.dataColumn,
		inspector:  NewSchemaInspector(tx),
	}
}

// blobValue keeps never-populated sessions NULL instead of an empty string.
func blobValue(raw []byte) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
