// Package models contains the database rows of the service,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gartstein/hr/internal/hr/models"
)

// Company is the companies table row.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:90;not null"`
	Users     []User    `gorm:"foreignKey:CompanyID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Company) TableName() string {
	return "companies"
}

func (c *Company) ToDomain() *models.Company {
	return &models.Company{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func CompanyFromDomain(c *models.Company) *Company {
	return &Company{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
