package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbmodels "github.com/gartstein/hr/internal/hr/db/models"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// importInsertBatch bounds the number of rows per INSERT statement.
const importInsertBatch = 100

func (r *Repository) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	if employee.ID == uuid.Nil {
		employee.ID = uuid.New()
	}
	row := dbmodels.EmployeeFromDomain(employee)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return duplicateEmployee(err)
	}
	employee.CreatedAt, employee.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

// GetEmployee loads an employee with its user.
func (r *Repository) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var employee dbmodels.Employee
	if err := r.db.WithContext(ctx).Preload("User").First(&employee, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return employee.ToDomain(), nil
}

// HasEmployee reports whether userID already owns an employee record.
func (r *Repository) HasEmployee(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&dbmodels.Employee{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

// ListEmployees returns the employees whose user belongs to companyID.
func (r *Repository) ListEmployees(ctx context.Context, companyID uuid.UUID, filter models.EmployeeFilter) ([]*models.Employee, error) {
	db := r.db.WithContext(ctx)
	users := db.Session(&gorm.Session{NewDB: true}).
		Model(&dbmodels.User{}).
		Select("id").
		Where("company_id = ?", companyID)

	query := db.Preload("User").Where("user_id IN (?)", users)
	if filter.Responsibility != "" {
		query = query.Where("LOWER(responsibility) LIKE LOWER(?)", "%"+filter.Responsibility+"%")
	}
	if filter.Phone != "" {
		query = query.Where("phone LIKE ?", "%"+filter.Phone+"%")
	}
	if filter.AdmissionAt != nil {
		day := filter.AdmissionAt.UTC().Truncate(24 * time.Hour)
		query = query.Where("admission_at >= ? AND admission_at < ?", day, day.Add(24*time.Hour))
	}

	var rows []dbmodels.Employee
	if err := query.Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Employee, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

func (r *Repository) UpdateEmployee(ctx context.Context, employee *models.Employee) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Employee{}).
		Where("id = ?", employee.ID).
		Updates(map[string]any{
			"user_id":        employee.UserID,
			"responsibility": employee.Responsibility,
			"admission_at":   employee.AdmissionAt,
			"phone":          employee.Phone,
		})
	if result.Error != nil {
		return duplicateEmployee(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&dbmodels.Employee{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// CommitBatch inserts the employees of one import batch together with the
// committed-row markers of jobID. Either everything lands or nothing does.
func (r *Repository) CommitBatch(ctx context.Context, jobID uuid.UUID, rows []models.ImportedRow) error {
	if len(rows) == 0 {
		return nil
	}
	employees := make([]*dbmodels.Employee, 0, len(rows))
	marks := make([]*dbmodels.ImportCommittedRow, 0, len(rows))
	for _, row := range rows {
		if row.Employee.ID == uuid.Nil {
			row.Employee.ID = uuid.New()
		}
		employees = append(employees, dbmodels.EmployeeFromDomain(row.Employee))
		marks = append(marks, &dbmodels.ImportCommittedRow{JobID: jobID, Row: row.Row})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(employees, importInsertBatch).Error; err != nil {
			return fmt.Errorf("insert employees: %w", duplicateEmployee(err))
		}
		if err := tx.CreateInBatches(marks, importInsertBatch).Error; err != nil {
			return fmt.Errorf("insert committed rows: %w", err)
		}
		return nil
	})
}

func duplicateEmployee(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return e.ErrDuplicateEmployee
	}
	return err
}
