package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that belongs to exactly one company.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
	// PasswordHash holds the bcrypt hash, never the plaintext.
	PasswordHash string `json:"-"`
	CompanyID    uuid.UUID
	Admin        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
