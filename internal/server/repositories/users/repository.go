// Package users declares the user-store contract. The token service treats
// this as the external credential verifier's storage: it reads rows and
// compares bcrypt hashes, nothing more.
package users

import (
	"context"

	"github.com/comdesk/sessiond/internal/server/models"
)

// Repository defines operations over user accounts.
type Repository interface {
	// Create inserts a new user row. The caller supplies the ID and the
	// bcrypt password hash.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns the user row, or common.ErrorNotFound when the
	// username is absent.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
