package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// NewSchemaInspector picks the inspector matching the dialect of db.
func NewSchemaInspector(db bun.IDB) SchemaInspector {
	switch db.Dialect().Name() {
	case dialect.PG:
		return &postgresInspector{db: db}
	case dialect.MySQL:
		return &mysqlInspector{db: db}
	default:
		return &sqliteInspector{db: db}
	}
}

var declaredLength = regexp.MustCompile(`\(\s*(\d+)\s*\)`)

// sqliteInspector reads declared types from pragma_table_info. SQLite does not
// enforce VARCHAR(n), so the declared length is the only capacity there is.
type sqliteInspector struct {
	db bun.IDB
}

func (i *sqliteInspector) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := i.db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(ctx, &count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect sqlite tables: %w", err)
	}
	return count > 0, nil
}

func (i *sqliteInspector) ColumnLimit(ctx context.Context, table string, column string) (int, error) {
	var declared string
	err := i.db.NewRaw("SELECT type FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(ctx, &declared)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("column %q not found on table %q", column, table)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to inspect sqlite column: %w", err)
	}
	return parseDeclaredLength(declared), nil
}

type postgresInspector struct {
	db bun.IDB
}

func (i *postgresInspector) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := i.db.NewRaw(
		"SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?",
		table,
	).Scan(ctx, &count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect postgres tables: %w", err)
	}
	return count > 0, nil
}

// ColumnLimit reports character_maximum_length, which postgres counts in
// characters. Treating it as a byte limit rejects some multibyte data that
// would fit, never the reverse.
func (i *postgresInspector) ColumnLimit(ctx context.Context, table string, column string) (int, error) {
	var limit sql.NullInt64
	err := i.db.NewRaw(
		"SELECT character_maximum_length FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?",
		table, column,
	).Scan(ctx, &limit)
	return nullableLimit(limit, err, table, column)
}

// mysqlInspector uses character_octet_length: the capacity in bytes, not characters.
type mysqlInspector struct {
	db bun.IDB
}

func (i *mysqlInspector) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := i.db.NewRaw(
		"SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
		table,
	).Scan(ctx, &count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect mysql tables: %w", err)
	}
	return count > 0, nil
}

func (i *mysqlInspector) ColumnLimit(ctx context.Context, table string, column string) (int, error) {
	var limit sql.NullInt64
	err := i.db.NewRaw(
		"SELECT character_octet_length FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?",
		table, column,
	).Scan(ctx, &limit)
	return nullableLimit(limit, err, table, column)
}

func nullableLimit(limit sql.NullInt64, err error, table string, column string) (int, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("column %q not found on table %q", column, table)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to inspect column %q: %w", column, err)
	}
	if !limit.Valid || limit.Int64 <= 0 {
		return 0, nil
	}
	return int(limit.Int64), nil
}

// parseDeclaredLength extracts n from types such as VARCHAR(n). Types without
// a length, TEXT and BLOB included, are unbounded.
func parseDeclaredLength(declared string) int {
	match := declaredLength.FindStringSubmatch(declared)
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}
