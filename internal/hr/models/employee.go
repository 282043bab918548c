package models

import (
	"time"

	"github.com/google/uuid"
)

// Employee is the job record of a single user.
type Employee struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Responsibility string
	// AdmissionAt is a calendar date; the time part is always midnight UTC.
	AdmissionAt time.Time
	// Phone holds exactly 11 digits.
	Phone     string
	User      *User
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmployeeFilter narrows an employee listing. Zero values are ignored.
type EmployeeFilter struct {
	Responsibility string
	AdmissionAt    *time.Time
	Phone          string
}
