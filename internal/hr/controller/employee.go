package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/hr/internal/hr/auth"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/gartstein/hr/internal/hr/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EmployeeRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	HasEmployee(ctx context.Context, userID uuid.UUID) (bool, error)
	CreateEmployee(ctx context.Context, employee *models.Employee) error
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	ListEmployees(ctx context.Context, companyID uuid.UUID, filter models.EmployeeFilter) ([]*models.Employee, error)
	UpdateEmployee(ctx context.Context, employee *models.Employee) error
	DeleteEmployee(ctx context.Context, id uuid.UUID) error
}

// EmployeeInput is the accepted body of employee writes. Fields are raw
// strings and share the rules of imported CSV rows.
type EmployeeInput struct {
	Responsibility string
	AdmissionAt    string
	Phone          string
	UserID         string
}

// EmployeeQuery holds the optional listing filters.
type EmployeeQuery struct {
	Responsibility string
	AdmissionAt    string
	Phone          string
}

// EmployeeService manages the employee records of the caller's company.
type EmployeeService struct {
	repo     EmployeeRepository
	producer EventProducer
	logger   *zap.Logger
}

func NewEmployeeService(repo EmployeeRepository, producer EventProducer, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("employee_service"),
	}
}

func (s *EmployeeService) ListEmployees(ctx context.Context, caller *auth.Claims, q EmployeeQuery) ([]*models.Employee, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	filter, err := parseQuery(q)
	if err != nil {
		return nil, err
	}
	employees, err := s.repo.ListEmployees(ctx, caller.CompanyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

func (s *EmployeeService) GetEmployee(ctx context.Context, caller *auth.Claims, id uuid.UUID) (*models.Employee, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.scopedEmployee(ctx, caller, id)
}

func (s *EmployeeService) CreateEmployee(ctx context.Context, caller *auth.Claims, in EmployeeInput) (*models.Employee, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	employee, err := s.validate(ctx, caller, in, uuid.Nil)
	if err != nil {
		return nil, err
	}

	employee.ID = uuid.New()
	if err := s.repo.CreateEmployee(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}
	created, err := s.repo.GetEmployee(ctx, employee.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get created employee: %w", err)
	}
	s.logger.Info("employee created",
		zap.String("employee_id", created.ID.String()),
		zap.String("company_id", caller.CompanyID.String()),
	)
	go func() {
		s.producer.Produce(events.EmployeeCreated, caller.CompanyID, created)
	}()
	return created, nil
}

func (s *EmployeeService) UpdateEmployee(ctx context.Context, caller *auth.Claims, id uuid.UUID, in EmployeeInput) (*models.Employee, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	current, err := s.scopedEmployee(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	employee, err := s.validate(ctx, caller, in, current.UserID)
	if err != nil {
		return nil, err
	}

	employee.ID = id
	if err := s.repo.UpdateEmployee(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	updated, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get updated employee: %w", err)
	}
	go func() {
		s.producer.Produce(events.EmployeeUpdated, caller.CompanyID, updated)
	}()
	return updated, nil
}

func (s *EmployeeService) DeleteEmployee(ctx context.Context, caller *auth.Claims, id uuid.UUID) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	employee, err := s.scopedEmployee(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEmployee(ctx, id); err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	s.logger.Info("employee deleted", zap.String("employee_id", id.String()))
	go func() {
		s.producer.Produce(events.EmployeeDeleted, caller.CompanyID, employee)
	}()
	return nil
}

func (s *EmployeeService) scopedEmployee(ctx context.Context, caller *auth.Claims, id uuid.UUID) (*models.Employee, error) {
	employee, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if employee.User == nil || employee.User.CompanyID != caller.CompanyID {
		return nil, fmt.Errorf("failed to get employee: %w", e.ErrNotFound)
	}
	return employee, nil
}

// validate checks every field of in before any lookup so that all field
// errors are reported together. owner is the user of the record being
// updated, uuid.Nil on create.
func (s *EmployeeService) validate(ctx context.Context, caller *auth.Claims, in EmployeeInput, owner uuid.UUID) (*models.Employee, error) {
	verr := e.NewValidationError()

	responsibility, ok := validation.Text(in.Responsibility, validation.MaxResponsibility)
	if !ok {
		verr.Add("responsibility", fmt.Sprintf("is required and must be at most %d characters", validation.MaxResponsibility))
	}
	admission, ok := validation.Date(in.AdmissionAt)
	if !ok {
		verr.Add("admission_at", "must be a date in YYYY-MM-DD or DD/MM/YYYY format")
	}
	phone, ok := validation.Phone(in.Phone)
	if !ok {
		verr.Add("phone", fmt.Sprintf("must contain exactly %d digits", validation.PhoneDigits))
	}
	var user *models.User
	userID, err := uuid.Parse(strings.TrimSpace(in.UserID))
	if err != nil {
		verr.Add("user_id", "must be a valid id")
	} else if user, err = s.repo.GetUser(ctx, userID); err != nil {
		if !errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("failed to check user: %w", err)
		}
		verr.Add("user_id", "does not exist")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if user.CompanyID != caller.CompanyID {
		return nil, e.ErrTenantMismatch
	}
	if userID != owner {
		taken, err := s.repo.HasEmployee(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check employee: %w", err)
		}
		if taken {
			return nil, e.ErrDuplicateEmployee
		}
	}

	return &models.Employee{
		UserID:         userID,
		Responsibility: responsibility,
		AdmissionAt:    admission,
		Phone:          phone,
	}, nil
}

func parseQuery(q EmployeeQuery) (models.EmployeeFilter, error) {
	filter := models.EmployeeFilter{
		Responsibility: strings.TrimSpace(q.Responsibility),
		Phone:          validation.Digits(q.Phone),
	}
	if strings.TrimSpace(q.AdmissionAt) != "" {
		day, ok := validation.Date(q.AdmissionAt)
		if !ok {
			verr := e.NewValidationError()
			verr.Add("admission_at", "must be a date in YYYY-MM-DD or DD/MM/YYYY format")
			return filter, verr
		}
		filter.AdmissionAt = &day
	}
	return filter, nil
}
