package db

import (
	"context"

	dbmodels "github.com/gartstein/hr/internal/hr/db/models"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	row := dbmodels.CompanyFromDomain(company)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	company.CreatedAt, company.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company dbmodels.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return company.ToDomain(), nil
}

func (r *Repository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	var rows []dbmodels.Company
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Company, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if len(fields) == 0 {
		_, err := r.GetCompany(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&dbmodels.Company{}).
		Where("id = ?", update.ID).
		Updates(fields)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteCompany removes the company together with its users and their
// employee records in one transaction.
func (r *Repository) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company dbmodels.Company
		if err := tx.First(&company, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		users := tx.Model(&dbmodels.User{}).Select("id").Where("company_id = ?", id)
		if err := tx.Where("user_id IN (?)", users).Delete(&dbmodels.Employee{}).Error; err != nil {
			return err
		}
		if err := tx.Where("company_id = ?", id).Delete(&dbmodels.User{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&dbmodels.Company{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		return nil
	})
}
