package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/comdesk/sessiond/internal/common"
	"github.com/comdesk/sessiond/internal/dbx"
)

// SQLiteRepository mirrors PostgresRepository for the sqlite backend used in
// development and small deployments. SQLite serializes writers internally.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, username, token string) error {
	query := `
		INSERT INTO credentials (username, token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE
		SET token = excluded.token, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, username, token, time.Now()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, username string) (string, error) {
	query := `
		SELECT token
		FROM credentials
		WHERE username = ?
	`
	var token string
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, username string) error {
	query := `
		DELETE FROM credentials
		WHERE username = ?
	`
	if _, err := r.db.ExecContext(ctx, query, username); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
