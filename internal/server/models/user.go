// Package models defines server-side data models persisted in PostgreSQL.
package models

import "time"

// User is an authentication record. The password is stored as a bcrypt hash.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
