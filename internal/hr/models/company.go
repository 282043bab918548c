// Package models defines the core domain models of the HR service:
// companies (tenants), their users, employee records and import jobs.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Company defines the domain model for a tenant.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID
	// Name is the company’s name.
	Name string
	// CreatedAt records the timestamp when the company was created.
	CreatedAt time.Time
	// UpdatedAt records the timestamp when the company was last updated.
	UpdatedAt time.Time
}

// CompanyUpdate represents the fields that can be updated for a Company.
type CompanyUpdate struct {
	ID   uuid.UUID
	Name *string
}
