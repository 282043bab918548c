// Package importer turns uploaded employee CSV files into employee records.
//
// A file is read as a stream: every data row goes through the Validator,
// valid rows are committed in batches and every rejected row is recorded
// in the job's ImportSummary. A job never leaves half of a batch behind.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/gartstein/hr/internal/hr/validation"
	"github.com/google/uuid"
)

// CSV columns in file order. The header row is skipped, not matched.
const (
	ColResponsibility = "responsibility"
	ColAdmissionAt    = "admission_at"
	ColPhone          = "phone"
	ColUserID         = "user_id"
)

var Columns = []string{ColResponsibility, ColAdmissionAt, ColPhone, ColUserID}

// UserLookup resolves the users referenced by rows.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	HasEmployee(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Validator checks one row at a time. It never writes.
type Validator struct {
	users UserLookup
}

func NewValidator(users UserLookup) *Validator {
	return &Validator{users: users}
}

// Validate maps record onto an employee owned by companyID. Exactly one of
// the results is nil.
func (v *Validator) Validate(ctx context.Context, companyID uuid.UUID, record []string) (*models.Employee, *models.RowError) {
	if len(record) < len(Columns) {
		return nil, models.FieldInvalid(Columns[len(record)])
	}

	responsibility, ok := validation.Text(record[0], validation.MaxResponsibility)
	if !ok {
		return nil, models.FieldInvalid(ColResponsibility)
	}
	admission, ok := validation.Date(record[1])
	if !ok {
		return nil, models.FieldInvalid(ColAdmissionAt)
	}
	phone, ok := validation.Phone(record[2])
	if !ok {
		return nil, models.FieldInvalid(ColPhone)
	}
	userID, err := uuid.Parse(strings.TrimSpace(record[3]))
	if err != nil {
		return nil, models.FieldInvalid(ColUserID)
	}

	user, err := v.users.GetUser(ctx, userID)
	if errors.Is(err, e.ErrNotFound) {
		return nil, models.FieldInvalid(ColUserID)
	}
	if err != nil {
		return nil, storageError(fmt.Errorf("lookup user: %w", err))
	}
	if user.CompanyID != companyID {
		return nil, &models.RowError{Kind: models.ErrTenantMismatch}
	}

	taken, err := v.users.HasEmployee(ctx, userID)
	if err != nil {
		return nil, storageError(fmt.Errorf("lookup employee: %w", err))
	}
	if taken {
		return nil, &models.RowError{Kind: models.ErrDuplicateEmployee}
	}

	return &models.Employee{
		UserID:         userID,
		Responsibility: responsibility,
		AdmissionAt:    admission,
		Phone:          phone,
	}, nil
}

func storageError(err error) *models.RowError {
	return &models.RowError{Kind: models.ErrStorage, Message: err.Error()}
}
