package db

import (
	"context"
	"errors"
	"strings"

	dbmodels "github.com/gartstein/hr/internal/hr/db/models"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(user.Email)
	row := dbmodels.UserFromDomain(user)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return duplicateEmail(err)
	}
	user.CreatedAt, user.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

// GetUser loads a user by id regardless of company.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user dbmodels.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return user.ToDomain(), nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user dbmodels.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, notFound(err)
	}
	return user.ToDomain(), nil
}

// EmailTaken reports whether another user than exclude already owns email.
func (r *Repository) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&dbmodels.User{}).
		Where("email = ? AND id <> ?", strings.ToLower(email), exclude).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListUsers(ctx context.Context, companyID uuid.UUID) ([]*models.User, error) {
	var rows []dbmodels.User
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// UpdateUser replaces the mutable fields of an existing user.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"name":       user.Name,
			"email":      strings.ToLower(user.Email),
			"password":   user.PasswordHash,
			"company_id": user.CompanyID,
		})
	if result.Error != nil {
		return duplicateEmail(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteUser removes a non-admin user and its employee record.
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user dbmodels.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if user.Admin {
			return e.ErrAdminProtected
		}
		if err := tx.Where("user_id = ?", id).Delete(&dbmodels.Employee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&dbmodels.User{}, "id = ?", id).Error
	})
}

func duplicateEmail(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return e.ErrDuplicateEmail
	}
	return err
}
