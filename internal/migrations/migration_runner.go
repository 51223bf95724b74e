package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/uptrace/bun"

	"github.com/GoBetterAuth/session-store/models"
)

// MigrationOperation represents the type of migration operation
type MigrationOperation int

const (
	MigrateUpOperation MigrationOperation = iota
	MigrateDownOperation
)

const createSessionsVersion int64 = 1

// Migrator owns the lifecycle of the sessions table.
type Migrator struct {
	logger   models.Logger
	provider *goose.Provider
}

// NewMigrator builds a goose provider whose only migration creates the
// sessions table with the configured data column.
func NewMigrator(
	db bun.IDB,
	provider string,
	opts TableOptions,
	logger models.Logger,
	verbose bool,
) (*Migrator, error) {
	dialect, err := getDialect(provider)
	if err != nil {
		return nil, err
	}

	up, down, err := Render(provider, opts)
	if err != nil {
		return nil, err
	}

	sqlDB := getSQLDB(db)
	if sqlDB == nil {
		return nil, fmt.Errorf("failed to get *sql.DB from bun.IDB")
	}

	migration := goose.NewGoMigration(
		createSessionsVersion,
		&goose.GoFunc{RunTx: execStatements(up), Mode: goose.TransactionEnabled},
		&goose.GoFunc{RunTx: execStatements(down), Mode: goose.TransactionEnabled},
	)

	providerInstance, err := goose.NewProvider(
		dialect,
		sqlDB,
		nil,
		goose.WithGoMigrations(migration),
		goose.WithDisableGlobalRegistry(true),
		goose.WithVerbose(verbose),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}

	return &Migrator{
		logger:   logger,
		provider: providerInstance,
	}, nil
}

// Up creates the sessions table.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, MigrateUpOperation)
}

// Down drops the sessions table.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, MigrateDownOperation)
}

func (m *Migrator) Status(ctx context.Context) ([]models.MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	result := make([]models.MigrationStatus, 0, len(statuses))
	for _, status := range statuses {
		result = append(result, models.MigrationStatus{
			Version:   status.Source.Version,
			Applied:   status.State == goose.StateApplied,
			AppliedAt: status.AppliedAt,
		})
	}
	return result, nil
}

func (m *Migrator) run(ctx context.Context, op MigrationOperation) error {
	switch op {
	case MigrateUpOperation:
		results, err := m.provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		for _, result := range results {
			m.logMigration(result, "Migrated")
		}
	case MigrateDownOperation:
		results, err := m.provider.DownTo(ctx, 0)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		for _, result := range results {
			m.logMigration(result, "Rolled back")
		}
	}

	return nil
}

func (m *Migrator) logMigration(result *goose.MigrationResult, action string) {
	if m.logger == nil {
		return
	}
	m.logger.Info(fmt.Sprintf("%s sessions table", action),
		"version", result.Source.Version,
		"duration", result.Duration,
	)
}

func execStatements(statements []string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// getDialect maps provider string to goose dialect
func getDialect(provider string) (database.Dialect, error) {
	switch provider {
	case "postgres":
		return goose.DialectPostgres, nil
	case "mysql":
		return goose.DialectMySQL, nil
	case "sqlite":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported database provider: %s", provider)
	}
}

// getSQLDB extracts *sql.DB from bun.IDB
func getSQLDB(db bun.IDB) *sql.DB {
	switch d := db.(type) {
	case *bun.DB:
		return d.DB
	default:
		return nil
	}
}
