package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/hr/internal/hr/auth"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/gartstein/hr/internal/hr/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserRepository interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, companyID uuid.UUID) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
}

// UserInput is the accepted body of user writes. Updates replace every
// field. CompanyID defaults to the caller's company.
type UserInput struct {
	Name      string
	Email     string
	Password  string
	CompanyID *uuid.UUID
}

// UserService manages the accounts of the caller's company. Every method
// requires an admin caller.
type UserService struct {
	repo     UserRepository
	producer EventProducer
	logger   *zap.Logger
}

func NewUserService(repo UserRepository, producer EventProducer, logger *zap.Logger) *UserService {
	return &UserService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("user_service"),
	}
}

func (s *UserService) ListUsers(ctx context.Context, caller *auth.Claims) ([]*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, caller.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, caller *auth.Claims, id uuid.UUID) (*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.scopedUser(ctx, caller, id)
}

func (s *UserService) CreateUser(ctx context.Context, caller *auth.Claims, in UserInput) (*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	user, err := s.validate(ctx, caller, in, uuid.Nil)
	if err != nil {
		return nil, err
	}

	user.ID = uuid.New()
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("company_id", user.CompanyID.String()),
	)
	go func() {
		s.producer.Produce(events.UserCreated, user.CompanyID, user)
	}()
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, caller *auth.Claims, id uuid.UUID, in UserInput) (*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	current, err := s.scopedUser(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	user, err := s.validate(ctx, caller, in, id)
	if err != nil {
		return nil, err
	}

	user.ID = id
	user.Admin = current.Admin
	user.CreatedAt = current.CreatedAt
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	updated, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get updated user: %w", err)
	}
	go func() {
		s.producer.Produce(events.UserUpdated, updated.CompanyID, updated)
	}()
	return updated, nil
}

// DeleteUser removes a user and its employee record. Admins cannot be
// deleted.
func (s *UserService) DeleteUser(ctx context.Context, caller *auth.Claims, id uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	user, err := s.scopedUser(ctx, caller, id)
	if err != nil {
		return err
	}
	if user.Admin {
		return e.ErrAdminProtected
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()))
	go func() {
		s.producer.Produce(events.UserDeleted, user.CompanyID, user)
	}()
	return nil
}

// scopedUser hides users of other companies behind ErrNotFound.
func (s *UserService) scopedUser(ctx context.Context, caller *auth.Claims, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.CompanyID != caller.CompanyID {
		return nil, fmt.Errorf("failed to get user: %w", e.ErrNotFound)
	}
	return user, nil
}

// validate checks in and returns the user it describes with the password
// already hashed. self is the user being updated, uuid.Nil on create.
func (s *UserService) validate(ctx context.Context, caller *auth.Claims, in UserInput, self uuid.UUID) (*models.User, error) {
	verr := e.NewValidationError()

	name, ok := validation.Text(in.Name, validation.MaxUserName)
	if !ok {
		verr.Add("name", fmt.Sprintf("is required and must be at most %d characters", validation.MaxUserName))
	}
	email, ok := validation.Email(in.Email)
	if !ok {
		verr.Add("email", fmt.Sprintf("must be a valid address of at most %d characters", validation.MaxEmail))
	}
	if !validation.Password(in.Password) {
		verr.Add("password", fmt.Sprintf(
			"must be %d to %d characters with an uppercase letter, a digit and one of @$!%%*?&",
			validation.MinPassword, validation.MaxPassword))
	}

	companyID := caller.CompanyID
	if in.CompanyID != nil {
		companyID = *in.CompanyID
	}
	if companyID != caller.CompanyID {
		return nil, e.ErrTenantMismatch
	}
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		if !errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("failed to check company: %w", err)
		}
		verr.Add("company_id", "does not exist")
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailTaken(ctx, email, self)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, e.ErrDuplicateEmail
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CompanyID:    companyID,
	}, nil
}
