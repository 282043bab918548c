package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockUsers implements UserLookup for testing
type MockUsers struct {
	getUser     func(context.Context, uuid.UUID) (*models.User, error)
	hasEmployee func(context.Context, uuid.UUID) (bool, error)
}

func (m *MockUsers) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.getUser(ctx, id)
}

func (m *MockUsers) HasEmployee(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.hasEmployee(ctx, id)
}

// directory builds a lookup over a fixed set of users; ids in taken already
// own an employee.
func directory(users []*models.User, taken ...uuid.UUID) *MockUsers {
	byID := map[uuid.UUID]*models.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	owned := map[uuid.UUID]bool{}
	for _, id := range taken {
		owned[id] = true
	}
	return &MockUsers{
		getUser: func(_ context.Context, id uuid.UUID) (*models.User, error) {
			if u, ok := byID[id]; ok {
				return u, nil
			}
			return nil, e.ErrNotFound
		},
		hasEmployee: func(_ context.Context, id uuid.UUID) (bool, error) {
			return owned[id], nil
		},
	}
}

func TestValidator_Validate(t *testing.T) {
	companyID := uuid.New()
	user := &models.User{ID: uuid.New(), CompanyID: companyID}
	outsider := &models.User{ID: uuid.New(), CompanyID: uuid.New()}
	employed := &models.User{ID: uuid.New(), CompanyID: companyID}
	validator := NewValidator(directory([]*models.User{user, outsider, employed}, employed.ID))

	tests := []struct {
		name    string
		record  []string
		want    *models.Employee
		wantErr *models.RowError
	}{
		{
			name:   "valid row is normalized",
			record: []string{"  Backend Developer ", "2024-01-15", "(47) 98877-1122", user.ID.String()},
			want: &models.Employee{
				UserID:         user.ID,
				Responsibility: "Backend Developer",
				AdmissionAt:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Phone:          "47988771122",
			},
		},
		{
			name:   "display date layout is accepted",
			record: []string{"Dev", "15/01/2024", "47988771122", user.ID.String()},
			want: &models.Employee{
				UserID:         user.ID,
				Responsibility: "Dev",
				AdmissionAt:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Phone:          "47988771122",
			},
		},
		{
			name:   "extra columns are ignored",
			record: []string{"Dev", "2024-01-15", "47988771122", user.ID.String(), "admin", "true"},
			want: &models.Employee{
				UserID:         user.ID,
				Responsibility: "Dev",
				AdmissionAt:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Phone:          "47988771122",
			},
		},
		{
			name:    "empty responsibility",
			record:  []string{"   ", "2024-01-15", "47988771122", user.ID.String()},
			wantErr: models.FieldInvalid(ColResponsibility),
		},
		{
			name:    "responsibility too long",
			record:  []string{strings.Repeat("a", 91), "2024-01-15", "47988771122", user.ID.String()},
			wantErr: models.FieldInvalid(ColResponsibility),
		},
		{
			name:    "bad date",
			record:  []string{"Dev", "not-a-date", "47988771122", user.ID.String()},
			wantErr: models.FieldInvalid(ColAdmissionAt),
		},
		{
			name:    "phone with ten digits",
			record:  []string{"Dev", "2024-01-15", "(47) 9887-1122", user.ID.String()},
			wantErr: models.FieldInvalid(ColPhone),
		},
		{
			name:    "phone with twelve digits",
			record:  []string{"Dev", "2024-01-15", "479887711220", user.ID.String()},
			wantErr: models.FieldInvalid(ColPhone),
		},
		{
			name:    "malformed user id",
			record:  []string{"Dev", "2024-01-15", "47988771122", "42"},
			wantErr: models.FieldInvalid(ColUserID),
		},
		{
			name:    "unknown user",
			record:  []string{"Dev", "2024-01-15", "47988771122", uuid.NewString()},
			wantErr: models.FieldInvalid(ColUserID),
		},
		{
			name:    "user of another company",
			record:  []string{"Dev", "2024-01-15", "47988771122", outsider.ID.String()},
			wantErr: &models.RowError{Kind: models.ErrTenantMismatch},
		},
		{
			name:    "user already employed",
			record:  []string{"Dev", "2024-01-15", "47988771122", employed.ID.String()},
			wantErr: &models.RowError{Kind: models.ErrDuplicateEmployee},
		},
		{
			name:    "short row names the first missing column",
			record:  []string{"Dev", "2024-01-15"},
			wantErr: models.FieldInvalid(ColPhone),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rowErr := validator.Validate(context.Background(), companyID, tt.record)
			if tt.wantErr != nil {
				assert.Nil(t, got)
				require.NotNil(t, rowErr)
				assert.Equal(t, *tt.wantErr, *rowErr)
				return
			}
			require.Nil(t, rowErr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidator_StorageFailure(t *testing.T) {
	companyID := uuid.New()
	validator := NewValidator(&MockUsers{
		getUser: func(context.Context, uuid.UUID) (*models.User, error) {
			return nil, errors.New("connection reset")
		},
	})

	_, rowErr := validator.Validate(context.Background(), companyID, []string{"Dev", "2024-01-15", "47988771122", uuid.NewString()})
	require.NotNil(t, rowErr)
	assert.Equal(t, models.ErrStorage, rowErr.Kind)
	assert.Contains(t, rowErr.Message, "connection reset")
}
