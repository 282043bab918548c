package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gartstein/hr/internal/hr/models"
)

// User is the users table row.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:150;not null"`
	Email     string    `gorm:"size:150;not null;uniqueIndex"`
	Password  string    `gorm:"size:255;not null"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Admin     bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) ToDomain() *models.User {
	return &models.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.Password,
		CompanyID:    u.CompanyID,
		Admin:        u.Admin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func UserFromDomain(u *models.User) *User {
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		CompanyID: u.CompanyID,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
