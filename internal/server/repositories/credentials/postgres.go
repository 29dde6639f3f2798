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

// PostgresRepository implements the credential store over dbx.DBTX (satisfied
// by *sql.DB or *sql.Tx). The upsert makes Save an atomic replacement, which
// is what serializes concurrent writes for the same username.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, username, token string) error {
	query := `
		INSERT INTO credentials (username, token, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, username, token, time.Now()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, username string) (string, error) {
	query := `
		SELECT token
		FROM credentials
		WHERE username = $1
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

func (r *PostgresRepository) Delete(ctx context.Context, username string) error {
	query := `
		DELETE FROM credentials
		WHERE username = $1
	`
	if _, err := r.db.ExecContext(ctx, query, username); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
