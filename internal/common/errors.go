// Package common defines shared constants and sentinel errors used across
// the sessiond layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Authentication-phase errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")

	// Token codec errors. ErrInvalidToken covers malformed, unsigned and
	// tampered tokens; ErrTokenExpired is raised only by the strict decode
	// path for a validly signed token past its expiry.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Renewal-phase errors.
	ErrSessionNotFound      = errors.New("session not found")
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)
