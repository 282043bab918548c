package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gartstein/hr/internal/hr/models"
)

// Employee is the employees table row. UserID is unique: one record per user.
type Employee struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	User           *User     `gorm:"foreignKey:UserID"`
	Responsibility string    `gorm:"size:90;not null"`
	AdmissionAt    time.Time `gorm:"type:date;not null"`
	Phone          string    `gorm:"size:11;not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) ToDomain() *models.Employee {
	out := &models.Employee{
		ID:             e.ID,
		UserID:         e.UserID,
		Responsibility: e.Responsibility,
		AdmissionAt:    e.AdmissionAt.UTC(),
		Phone:          e.Phone,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if e.User != nil {
		out.User = e.User.ToDomain()
	}
	return out
}

func EmployeeFromDomain(e *models.Employee) *Employee {
	return &Employee{
		ID:             e.ID,
		UserID:         e.UserID,
		Responsibility: e.Responsibility,
		AdmissionAt:    e.AdmissionAt,
		Phone:          e.Phone,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
