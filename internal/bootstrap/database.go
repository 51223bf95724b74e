package bootstrap

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/GoBetterAuth/session-store/env"
	"github.com/GoBetterAuth/session-store/models"
)

const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderMySQL    = "mysql"
)

// InitDatabase opens the sessions database. SESSION_STORE_DATABASE_URL wins
// over the configured url; an empty provider is inferred from the url.
func InitDatabase(cfg models.DatabaseConfig, logLevel string) (*bun.DB, error) {
	databaseURL := os.Getenv(env.EnvDatabaseURL)
	if databaseURL == "" {
		databaseURL = cfg.URL
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("database connection string must be specified via %s or config", env.EnvDatabaseURL)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderFromURL(databaseURL)
	}

	var db *bun.DB
	switch provider {
	case ProviderSQLite:
		dsn, err := sqliteDSN(databaseURL)
		if err != nil {
			return nil, err
		}
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, sqlitedialect.New())

	case ProviderPostgres:
		sqlDB, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, pgdialect.New())

	case ProviderMySQL:
		sqlDB, err := sql.Open("mysql", strings.TrimPrefix(databaseURL, "mysql://"))
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqlDB, mysqldialect.New())

	default:
		return nil, fmt.Errorf("unsupported database provider: %s", provider)
	}

	configurePool(db.DB, cfg)
	enableDebugging(db, logLevel)
	return db, nil
}

// ProviderFromURL guesses the provider from a connection string.
func ProviderFromURL(databaseURL string) string {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return ProviderPostgres
	case strings.HasPrefix(databaseURL, "mysql://"), strings.Contains(databaseURL, "@tcp("):
		return ProviderMySQL
	default:
		return ProviderSQLite
	}
}

// ProviderOf maps the dialect of db to a provider name.
func ProviderOf(db bun.IDB) (string, error) {
	switch db.Dialect().Name() {
	case dialect.SQLite:
		return ProviderSQLite, nil
	case dialect.PG:
		return ProviderPostgres, nil
	case dialect.MySQL:
		return ProviderMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database dialect: %s", db.Dialect().Name())
	}
}

// sqliteDSN makes plain file paths absolute and creates their directory.
func sqliteDSN(databaseURL string) (string, error) {
	if strings.HasPrefix(databaseURL, "file:") || strings.HasPrefix(databaseURL, ":memory:") {
		return databaseURL, nil
	}

	path := databaseURL
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		path = filepath.Join(cwd, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}

func configurePool(sqlDB *sql.DB, cfg models.DatabaseConfig) {
	numCPU := runtime.NumCPU()

	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = numCPU * 4
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = numCPU * 2
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)

	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime == 0 {
		connMaxLifetime = 10 * time.Minute
	}
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
}

func enableDebugging(db *bun.DB, logLevel string) {
	if logLevel == "debug" {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.WithWriter(os.Stderr),
		))
	}
}
