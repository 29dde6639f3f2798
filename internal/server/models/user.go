// Package models declares the data rows shared by repositories and services.
package models

import "time"

// User is an account row in the user store. PasswordHash is a bcrypt hash;
// Role and DisplayName travel into access-token claims.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	DisplayName  string
	CreatedAt    time.Time
}
