// Package storage opens the SQL database selected by the DSN scheme and runs
// the embedded schema migrations. Users always live in SQL; the credential
// store may additionally be pointed at Redis (see app wiring).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/comdesk/sessiond/internal/server/migrations"
)

// Backend identifies the SQL dialect behind an opened database.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Open selects the driver by DSN scheme: postgres:// and postgresql:// go to
// pgx, anything else is treated as a sqlite path or URI.
func Open(dsn string) (*sql.DB, Backend, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("opening postgres database: %w", err)
		}
		return db, BackendPostgres, nil
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, "", fmt.Errorf("opening sqlite database: %w", err)
	}
	return db, BackendSQLite, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate sets up goose with the embedded migrations and applies them.
func Migrate(ctx context.Context, db *sql.DB, backend Backend) error {
	goose.SetBaseFS(migrations.Migrations)

	dialect := "sqlite3"
	if backend == BackendPostgres {
		dialect = "pgx"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	return gooseUpContext(ctx, db, ".")
}
