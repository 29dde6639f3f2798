package models

import "time"

// Credential is the single currently-valid refresh token for a username.
// Saving a new token for the same username replaces the previous one.
type Credential struct {
	Username  string
	Token     string
	UpdatedAt time.Time
}
