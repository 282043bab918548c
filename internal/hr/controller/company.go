package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/hr/internal/hr/auth"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/gartstein/hr/internal/hr/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyRepository defines the storage interface for Company objects.
type CompanyRepository interface {
	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error
	DeleteCompany(ctx context.Context, id uuid.UUID) error
}

// CompanyInput is the accepted body of company writes.
type CompanyInput struct {
	Name string
}

// CompanyService provides methods to manage companies via repository
// operations and event production.
type CompanyService struct {
	repo     CompanyRepository
	producer EventProducer
	logger   *zap.Logger
}

func NewCompanyService(repo CompanyRepository, producer EventProducer, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("company_service"),
	}
}

func (s *CompanyService) ListCompanies(ctx context.Context, caller *auth.Claims) ([]*models.Company, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

func (s *CompanyService) GetCompany(ctx context.Context, caller *auth.Claims, id uuid.UUID) (*models.Company, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// CreateCompany registers a new tenant. Any admin may do so.
func (s *CompanyService) CreateCompany(ctx context.Context, caller *auth.Claims, in CompanyInput) (*models.Company, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name, err := validateCompany(in)
	if err != nil {
		return nil, err
	}

	company := &models.Company{ID: uuid.New(), Name: name}
	if err := s.repo.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	s.logger.Info("company created", zap.String("company_id", company.ID.String()))
	go func() {
		s.producer.Produce(events.CompanyCreated, company.ID, company)
	}()
	return company, nil
}

// UpdateCompany renames the caller's own company.
func (s *CompanyService) UpdateCompany(ctx context.Context, caller *auth.Claims, id uuid.UUID, in CompanyInput) (*models.Company, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if id != caller.CompanyID {
		return nil, e.ErrTenantMismatch
	}
	name, err := validateCompany(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCompany(ctx, &models.CompanyUpdate{ID: id, Name: &name}); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get updated company: %w", err)
	}
	go func() {
		s.producer.Produce(events.CompanyUpdated, company.ID, company)
	}()
	return company, nil
}

// DeleteCompany removes the caller's own company with all of its users and
// their employee records.
func (s *CompanyService) DeleteCompany(ctx context.Context, caller *auth.Claims, id uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if id != caller.CompanyID {
		return e.ErrTenantMismatch
	}
	if err := s.repo.DeleteCompany(ctx, id); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	s.logger.Info("company deleted", zap.String("company_id", id.String()))
	go func() {
		s.producer.Produce(events.CompanyDeleted, id, &models.Company{ID: id})
	}()
	return nil
}

func validateCompany(in CompanyInput) (string, error) {
	verr := e.NewValidationError()
	name, ok := validation.Text(in.Name, validation.MaxCompanyName)
	if !ok {
		verr.Add("name", fmt.Sprintf("is required and must be at most %d characters", validation.MaxCompanyName))
	}
	return name, verr.Err()
}
