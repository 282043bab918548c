package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// employeeRepo stores employees in memory on top of MockRepository.
func employeeRepo(users ...*models.User) (*MockRepository, map[uuid.UUID]*models.Employee) {
	byID := map[uuid.UUID]*models.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	stored := map[uuid.UUID]*models.Employee{}

	mr := &MockRepository{}
	mr.getUser = func(_ context.Context, id uuid.UUID) (*models.User, error) {
		if u, ok := byID[id]; ok {
			return u, nil
		}
		return nil, e.ErrNotFound
	}
	mr.hasEmployee = func(_ context.Context, userID uuid.UUID) (bool, error) {
		for _, emp := range stored {
			if emp.UserID == userID {
				return true, nil
			}
		}
		return false, nil
	}
	mr.createEmployee = func(_ context.Context, emp *models.Employee) error {
		stored[emp.ID] = emp
		return nil
	}
	mr.updateEmployee = func(_ context.Context, emp *models.Employee) error {
		stored[emp.ID] = emp
		return nil
	}
	mr.getEmployee = func(_ context.Context, id uuid.UUID) (*models.Employee, error) {
		emp, ok := stored[id]
		if !ok {
			return nil, e.ErrNotFound
		}
		out := *emp
		out.User = byID[emp.UserID]
		return &out, nil
	}
	mr.deleteEmployee = func(_ context.Context, id uuid.UUID) error {
		delete(stored, id)
		return nil
	}
	return mr, stored
}

func TestEmployeeService_CreateEmployee(t *testing.T) {
	companyID := uuid.New()
	user := &models.User{ID: uuid.New(), CompanyID: companyID}
	stranger := &models.User{ID: uuid.New(), CompanyID: uuid.New()}

	tests := []struct {
		name          string
		input         EmployeeInput
		seed          bool
		expectedError error
	}{
		{
			name: "successful creation",
			input: EmployeeInput{
				Responsibility: " Engineer ",
				AdmissionAt:    "2024-01-15",
				Phone:          "(47) 98877-1122",
				UserID:         user.ID.String(),
			},
		},
		{
			name: "display date format",
			input: EmployeeInput{
				Responsibility: "Engineer",
				AdmissionAt:    "15/01/2024",
				Phone:          "47988771122",
				UserID:         user.ID.String(),
			},
		},
		{
			name: "short phone",
			input: EmployeeInput{
				Responsibility: "Engineer",
				AdmissionAt:    "2024-01-15",
				Phone:          "4798877112",
				UserID:         user.ID.String(),
			},
			expectedError: e.ErrInvalidInput,
		},
		{
			name: "unknown user",
			input: EmployeeInput{
				Responsibility: "Engineer",
				AdmissionAt:    "2024-01-15",
				Phone:          "47988771122",
				UserID:         uuid.NewString(),
			},
			expectedError: e.ErrInvalidInput,
		},
		{
			name: "user of another company",
			input: EmployeeInput{
				Responsibility: "Engineer",
				AdmissionAt:    "2024-01-15",
				Phone:          "47988771122",
				UserID:         stranger.ID.String(),
			},
			expectedError: e.ErrTenantMismatch,
		},
		{
			name: "user already employed",
			input: EmployeeInput{
				Responsibility: "Engineer",
				AdmissionAt:    "2024-01-15",
				Phone:          "47988771122",
				UserID:         user.ID.String(),
			},
			seed:          true,
			expectedError: e.ErrDuplicateEmployee,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo, stored := employeeRepo(user, stranger)
			if tt.seed {
				id := uuid.New()
				stored[id] = &models.Employee{ID: id, UserID: user.ID}
			}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			if tt.expectedError == nil {
				mockProducer.wg.Add(1)
			}
			service := NewEmployeeService(mockRepo, mockProducer, zaptest.NewLogger(t))

			emp, err := service.CreateEmployee(context.Background(), memberOf(companyID), tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			mockProducer.wg.Wait()
			require.NoError(t, err)
			assert.Equal(t, "Engineer", emp.Responsibility)
			assert.Equal(t, "47988771122", emp.Phone)
			assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), emp.AdmissionAt)
			require.NotNil(t, emp.User)
			assert.Equal(t, user.ID, emp.User.ID)
			assert.Equal(t, events.EmployeeCreated, mockProducer.produced()[0].EventType)
		})
	}
}

func TestEmployeeService_CreateEmployeeCollectsFieldErrors(t *testing.T) {
	mockRepo, _ := employeeRepo()
	service := NewEmployeeService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))

	_, err := service.CreateEmployee(context.Background(), memberOf(uuid.New()), EmployeeInput{
		AdmissionAt: "not-a-date",
		Phone:       "123",
		UserID:      "nope",
	})

	var verr *e.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
}

func TestEmployeeService_GetEmployeeOtherCompany(t *testing.T) {
	stranger := &models.User{ID: uuid.New(), CompanyID: uuid.New()}
	mockRepo, stored := employeeRepo(stranger)
	id := uuid.New()
	stored[id] = &models.Employee{ID: id, UserID: stranger.ID}
	service := NewEmployeeService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))

	_, err := service.GetEmployee(context.Background(), memberOf(uuid.New()), id)
	assert.ErrorIs(t, err, e.ErrNotFound)

	_, err = service.GetEmployee(context.Background(), memberOf(stranger.CompanyID), id)
	assert.NoError(t, err)
}

func TestEmployeeService_UpdateKeepsOwnUser(t *testing.T) {
	companyID := uuid.New()
	user := &models.User{ID: uuid.New(), CompanyID: companyID}
	mockRepo, stored := employeeRepo(user)
	id := uuid.New()
	stored[id] = &models.Employee{ID: id, UserID: user.ID, Responsibility: "Intern", Phone: "47988771122"}

	mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
	mockProducer.wg.Add(1)
	service := NewEmployeeService(mockRepo, mockProducer, zaptest.NewLogger(t))

	emp, err := service.UpdateEmployee(context.Background(), memberOf(companyID), id, EmployeeInput{
		Responsibility: "Engineer",
		AdmissionAt:    "2024-02-01",
		Phone:          "47 98877 1133",
		UserID:         user.ID.String(),
	})
	require.NoError(t, err)
	mockProducer.wg.Wait()

	assert.Equal(t, id, emp.ID)
	assert.Equal(t, "Engineer", emp.Responsibility)
	assert.Equal(t, "47988771133", emp.Phone)
	assert.Equal(t, events.EmployeeUpdated, mockProducer.produced()[0].EventType)
}

func TestEmployeeService_DeleteEmployee(t *testing.T) {
	companyID := uuid.New()
	user := &models.User{ID: uuid.New(), CompanyID: companyID}
	mockRepo, stored := employeeRepo(user)
	id := uuid.New()
	stored[id] = &models.Employee{ID: id, UserID: user.ID}

	mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
	mockProducer.wg.Add(1)
	service := NewEmployeeService(mockRepo, mockProducer, zaptest.NewLogger(t))

	_, err := service.GetEmployee(context.Background(), memberOf(uuid.New()), id)
	require.ErrorIs(t, err, e.ErrNotFound)
	require.ErrorIs(t, service.DeleteEmployee(context.Background(), memberOf(uuid.New()), id), e.ErrNotFound)

	require.NoError(t, service.DeleteEmployee(context.Background(), memberOf(companyID), id))
	mockProducer.wg.Wait()
	assert.Empty(t, stored)
	assert.Equal(t, events.EmployeeDeleted, mockProducer.produced()[0].EventType)
}

func TestEmployeeService_ListEmployeesFilters(t *testing.T) {
	companyID := uuid.New()
	var got models.EmployeeFilter
	mockRepo := &MockRepository{
		listEmployees: func(_ context.Context, id uuid.UUID, f models.EmployeeFilter) ([]*models.Employee, error) {
			assert.Equal(t, companyID, id)
			got = f
			return nil, nil
		},
	}
	service := NewEmployeeService(mockRepo, &MockProducer{}, zaptest.NewLogger(t))

	_, err := service.ListEmployees(context.Background(), memberOf(companyID), EmployeeQuery{
		Responsibility: " eng ",
		AdmissionAt:    "15/01/2024",
		Phone:          "(47) 988",
	})
	require.NoError(t, err)
	assert.Equal(t, "eng", got.Responsibility)
	assert.Equal(t, "47988", got.Phone)
	require.NotNil(t, got.AdmissionAt)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *got.AdmissionAt)

	_, err = service.ListEmployees(context.Background(), memberOf(companyID), EmployeeQuery{AdmissionAt: "yesterday"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}
