package handlers

import (
	"time"

	"github.com/gartstein/hr/internal/hr/models"
	"github.com/gartstein/hr/internal/hr/validation"
	"github.com/google/uuid"
)

type companyResource struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type userResource struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CompanyID uuid.UUID `json:"company_id"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// employeeResource renders admission_at as dd/mm/yyyy.
type employeeResource struct {
	ID             uuid.UUID     `json:"id"`
	Responsibility string        `json:"responsibility"`
	AdmissionAt    string        `json:"admission_at"`
	Phone          string        `json:"phone"`
	UserID         uuid.UUID     `json:"user_id"`
	User           *userResource `json:"user,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type importJobResource struct {
	JobID           uuid.UUID           `json:"job_id"`
	Status          models.ImportStatus `json:"status"`
	CancelRequested bool                `json:"cancel_requested"`
}

type importAccepted struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	JobID   uuid.UUID `json:"job_id"`
}

func toCompany(c *models.Company) companyResource {
	return companyResource{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func toCompanies(cs []*models.Company) []companyResource {
	out := make([]companyResource, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCompany(c))
	}
	return out
}

func toUser(u *models.User) *userResource {
	if u == nil {
		return nil
	}
	return &userResource{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CompanyID: u.CompanyID,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUsers(us []*models.User) []*userResource {
	out := make([]*userResource, 0, len(us))
	for _, u := range us {
		out = append(out, toUser(u))
	}
	return out
}

func toEmployee(emp *models.Employee) employeeResource {
	return employeeResource{
		ID:             emp.ID,
		Responsibility: emp.Responsibility,
		AdmissionAt:    emp.AdmissionAt.Format(validation.DisplayDateLayout),
		Phone:          emp.Phone,
		UserID:         emp.UserID,
		User:           toUser(emp.User),
		CreatedAt:      emp.CreatedAt,
		UpdatedAt:      emp.UpdatedAt,
	}
}

func toEmployees(emps []*models.Employee) []employeeResource {
	out := make([]employeeResource, 0, len(emps))
	for _, emp := range emps {
		out = append(out, toEmployee(emp))
	}
	return out
}
