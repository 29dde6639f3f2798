// Package credentials declares the credential-store contract: the durable
// mapping from a username to its single currently-valid refresh token.
package credentials

import "context"

// Repository stores at most one refresh token per username. Implementations
// must serialize writes for the same username so that concurrent rotations
// cannot both appear to succeed.
type Repository interface {
	// Save upserts the refresh token for username, overwriting any prior
	// value (rotation/replacement, never append).
	Save(ctx context.Context, username, token string) error

	// Get returns the stored refresh token for username, or
	// common.ErrorNotFound when no session exists.
	Get(ctx context.Context, username string) (string, error)

	// Delete revokes the stored refresh token for username. Deleting an
	// absent row is not an error.
	Delete(ctx context.Context, username string) error
}
