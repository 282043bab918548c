package controller

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gartstein/hr/internal/hr/auth"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func ptr[T any](v T) *T { return &v }

func validUserInput() UserInput {
	return UserInput{Name: "Ana Souza", Email: "Ana@Example.com", Password: "Secret1@x"}
}

func companyExists(mr *MockRepository) {
	mr.getCompany = func(_ context.Context, id uuid.UUID) (*models.Company, error) {
		return &models.Company{ID: id}, nil
	}
}

func TestUserService_CreateUser(t *testing.T) {
	companyID := uuid.New()

	tests := []struct {
		name          string
		caller        *auth.Claims
		input         func() UserInput
		mockSetup     func(*MockRepository)
		expectedError error
	}{
		{
			name:   "successful creation",
			caller: adminOf(companyID),
			input:  validUserInput,
			mockSetup: func(mr *MockRepository) {
				companyExists(mr)
				mr.emailTaken = func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
					return false, nil
				}
				mr.createUser = func(_ context.Context, _ *models.User) error {
					return nil
				}
			},
		},
		{
			name:          "not an admin",
			caller:        memberOf(companyID),
			input:         validUserInput,
			mockSetup:     func(_ *MockRepository) {},
			expectedError: e.ErrForbidden,
		},
		{
			name:   "weak password",
			caller: adminOf(companyID),
			input: func() UserInput {
				in := validUserInput()
				in.Password = "password"
				return in
			},
			mockSetup:     companyExists,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:   "another company",
			caller: adminOf(companyID),
			input: func() UserInput {
				in := validUserInput()
				in.CompanyID = ptr(uuid.New())
				return in
			},
			mockSetup:     func(_ *MockRepository) {},
			expectedError: e.ErrTenantMismatch,
		},
		{
			name:   "email taken",
			caller: adminOf(companyID),
			input:  validUserInput,
			mockSetup: func(mr *MockRepository) {
				companyExists(mr)
				mr.emailTaken = func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
					return true, nil
				}
			},
			expectedError: e.ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewUserService(mockRepo, mockProducer, zaptest.NewLogger(t))

			if tt.expectedError == nil {
				mockProducer.wg.Add(1)
			}

			user, err := service.CreateUser(context.Background(), tt.caller, tt.input())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			mockProducer.wg.Wait()
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, user.ID)
			assert.Equal(t, "ana@example.com", user.Email)
			assert.Equal(t, companyID, user.CompanyID)
			assert.False(t, user.Admin)
			assert.NotEqual(t, "Secret1@x", user.PasswordHash)
			assert.True(t, auth.CheckPassword(user.PasswordHash, "Secret1@x"))
			assert.Equal(t, events.UserCreated, mockProducer.produced()[0].EventType)
		})
	}
}

func TestUserService_CreateUserCollectsFieldErrors(t *testing.T) {
	mockRepo := &MockRepository{}
	mockRepo.getCompany = func(_ context.Context, _ uuid.UUID) (*models.Company, error) {
		return nil, e.ErrNotFound
	}
	service := NewUserService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))

	_, err := service.CreateUser(context.Background(), adminOf(uuid.New()), UserInput{Email: "nope"})

	var verr *e.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "company_id")
}

func TestUserService_GetUserOtherCompany(t *testing.T) {
	mockRepo := &MockRepository{
		getUser: func(_ context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, CompanyID: uuid.New()}, nil
		},
	}
	service := NewUserService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))

	_, err := service.GetUser(context.Background(), adminOf(uuid.New()), uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestUserService_UpdateUser(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()
	stored := &models.User{ID: userID, CompanyID: companyID, Name: "Old", Email: "old@example.com", Admin: true}

	var saved *models.User
	mockRepo := &MockRepository{
		getUser: func(_ context.Context, _ uuid.UUID) (*models.User, error) {
			if saved != nil {
				return saved, nil
			}
			return stored, nil
		},
		emailTaken: func(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
			assert.Equal(t, "ana@example.com", email)
			assert.Equal(t, userID, exclude)
			return false, nil
		},
		updateUser: func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		},
	}
	companyExists(mockRepo)
	mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
	mockProducer.wg.Add(1)
	service := NewUserService(mockRepo, mockProducer, zaptest.NewLogger(t))

	user, err := service.UpdateUser(context.Background(), adminOf(companyID), userID, validUserInput())
	require.NoError(t, err)
	mockProducer.wg.Wait()

	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "Ana Souza", user.Name)
	assert.True(t, user.Admin, "admin flag is not writable")
	assert.True(t, auth.CheckPassword(user.PasswordHash, "Secret1@x"))
	assert.Equal(t, events.UserUpdated, mockProducer.produced()[0].EventType)
}

func TestUserService_DeleteUser(t *testing.T) {
	companyID := uuid.New()
	errDB := errors.New("database error")

	tests := []struct {
		name          string
		user          *models.User
		deleteErr     error
		expectedError error
	}{
		{
			name: "successful deletion",
			user: &models.User{CompanyID: companyID},
		},
		{
			name:          "admin is protected",
			user:          &models.User{CompanyID: companyID, Admin: true},
			expectedError: e.ErrAdminProtected,
		},
		{
			name:          "another company",
			user:          &models.User{CompanyID: uuid.New()},
			expectedError: e.ErrNotFound,
		},
		{
			name:          "repository error",
			user:          &models.User{CompanyID: companyID},
			deleteErr:     errDB,
			expectedError: errDB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleted := false
			mockRepo := &MockRepository{
				getUser: func(_ context.Context, id uuid.UUID) (*models.User, error) {
					tt.user.ID = id
					return tt.user, nil
				},
				deleteUser: func(_ context.Context, _ uuid.UUID) error {
					deleted = true
					return tt.deleteErr
				},
			}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			if tt.expectedError == nil {
				mockProducer.wg.Add(1)
			}
			service := NewUserService(mockRepo, mockProducer, zaptest.NewLogger(t))

			err := service.DeleteUser(context.Background(), adminOf(companyID), uuid.New())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Equal(t, tt.deleteErr != nil, deleted)
				return
			}
			mockProducer.wg.Wait()
			require.NoError(t, err)
			assert.True(t, deleted)
			assert.Equal(t, events.UserDeleted, mockProducer.produced()[0].EventType)
		})
	}
}

func TestUserService_ListUsersScopedToCaller(t *testing.T) {
	companyID := uuid.New()
	mockRepo := &MockRepository{
		listUsers: func(_ context.Context, id uuid.UUID) ([]*models.User, error) {
			assert.Equal(t, companyID, id)
			return []*models.User{{Name: "Ana"}}, nil
		},
	}
	service := NewUserService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))

	users, err := service.ListUsers(context.Background(), adminOf(companyID))
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = service.ListUsers(context.Background(), memberOf(companyID))
	assert.ErrorIs(t, err, e.ErrForbidden)
}
