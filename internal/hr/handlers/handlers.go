package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gartstein/hr/internal/hr/auth"
	"github.com/gartstein/hr/internal/hr/controller"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// DefaultMaxUpload is the largest accepted import file, 2048 KB.
const DefaultMaxUpload = 2048 << 10

type CompanyController interface {
	ListCompanies(ctx context.Context, caller *auth.Claims) ([]*models.Company, error)
	GetCompany(ctx context.Context, caller *auth.Claims, id uuid.UUID) (*models.Company, error)
	CreateCompany(ctx context.Context, caller *auth.Claims, in controller.CompanyInput) (*models.Company, error)
	UpdateCompany(ctx context.Context, caller *auth.Claims, id uuid.UUID, in controller.CompanyInput) (*models.Company, error)
	DeleteCompany(ctx context.Context, caller *auth.Claims, id uuid.UUID) error
}

type UserController interface {
	ListUsers(ctx context.Context, caller *auth.Claims) ([]*models.User, error)
	GetUser(ctx context.Context, caller *auth.Claims, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, caller *auth.Claims, in controller.UserInput) (*models.User, error)
	UpdateUser(ctx context.Context, caller *auth.Claims, id uuid.UUID, in controller.UserInput) (*models.User, error)
	DeleteUser(ctx context.Context, caller *auth.Claims, id uuid.UUID) error
}

type EmployeeController interface {
	ListEmployees(ctx context.Context, caller *auth.Claims, q controller.EmployeeQuery) ([]*models.Employee, error)
	GetEmployee(ctx context.Context, caller *auth.Claims, id uuid.UUID) (*models.Employee, error)
	CreateEmployee(ctx context.Context, caller *auth.Claims, in controller.EmployeeInput) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, caller *auth.Claims, id uuid.UUID, in controller.EmployeeInput) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, caller *auth.Claims, id uuid.UUID) error
}

type ImportController interface {
	StartImport(ctx context.Context, caller *auth.Claims, name string, r io.Reader) (*models.ImportJob, error)
	GetImport(ctx context.Context, caller *auth.Claims, jobID uuid.UUID) (*models.ImportSummary, error)
	CancelImport(ctx context.Context, caller *auth.Claims, jobID uuid.UUID) (*models.ImportJob, error)
}

type AuthController interface {
	Login(ctx context.Context, email, password string) (*controller.Token, error)
	Me(ctx context.Context, caller *auth.Claims) (*models.User, error)
	Refresh(ctx context.Context, caller *auth.Claims) (*controller.Token, error)
	Logout(ctx context.Context, caller *auth.Claims) error
}

// Controllers groups the services the API delegates to.
type Controllers struct {
	Companies CompanyController
	Users     UserController
	Employees EmployeeController
	Imports   ImportController
	Auth      AuthController
}

// Handler translates HTTP requests into controller calls.
type Handler struct {
	Controllers
	maxUpload int64
	logger    *zap.Logger
}

// NewHandler builds the API handler. A maxUpload of zero means
// DefaultMaxUpload.
func NewHandler(c Controllers, maxUpload int64, logger *zap.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{
		Controllers: c,
		maxUpload:   maxUpload,
		logger:      logger.Named("http_handler"),
	}
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

func (h *Handler) routes() []route {
	return []route{
		{http.MethodPost, "/api/auth/login", h.login},
		{http.MethodPost, "/api/auth/refresh", h.refresh},
		{http.MethodPost, "/api/auth/logout", h.logout},
		{http.MethodPost, "/api/auth/me", h.me},
		{http.MethodGet, "/api/auth/me", h.me},

		{http.MethodGet, "/api/companies", h.listCompanies},
		{http.MethodPost, "/api/companies", h.createCompany},
		{http.MethodGet, "/api/companies/{id}", h.getCompany},
		{http.MethodPut, "/api/companies/{id}", h.updateCompany},
		{http.MethodDelete, "/api/companies/{id}", h.deleteCompany},

		{http.MethodGet, "/api/users", h.listUsers},
		{http.MethodPost, "/api/users", h.createUser},
		{http.MethodGet, "/api/users/{id}", h.getUser},
		{http.MethodPut, "/api/users/{id}", h.updateUser},
		{http.MethodDelete, "/api/users/{id}", h.deleteUser},

		{http.MethodGet, "/api/employees", h.listEmployees},
		{http.MethodPost, "/api/employees", h.createEmployee},
		{http.MethodGet, "/api/employees/{id}", h.getEmployee},
		{http.MethodPut, "/api/employees/{id}", h.updateEmployee},
		{http.MethodDelete, "/api/employees/{id}", h.deleteEmployee},

		{http.MethodPost, "/api/employees/import", h.startImport},
		{http.MethodGet, "/api/employees/import/{job_id}", h.getImport},
		{http.MethodDelete, "/api/employees/import/{job_id}", h.cancelImport},
	}
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *runtime.ServeMux) error {
	for _, rt := range h.routes() {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

// Options configure NewHTTPHandler.
type Options struct {
	JWTSecret string
	Metrics   RequestObserver
	// Ready backs /healthz. Nil means always ready.
	Ready func(ctx context.Context) error
	// MetricsHandler is served on /metrics when set.
	MetricsHandler http.Handler
}

// NewHTTPHandler assembles the full HTTP stack: routing, bearer auth,
// panic recovery, access logging and request ids.
func NewHTTPHandler(h *Handler, opts Options, logger *zap.Logger) (http.Handler, error) {
	mux := runtime.NewServeMux()
	if err := h.Register(mux); err != nil {
		return nil, err
	}
	if err := mux.HandlePath(http.MethodGet, "/healthz", healthz(opts.Ready)); err != nil {
		return nil, err
	}
	if opts.MetricsHandler != nil {
		metricsHandler := opts.MetricsHandler
		err := mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			metricsHandler.ServeHTTP(w, r)
		})
		if err != nil {
			return nil, err
		}
	}

	logger = logger.Named("http")
	var handler http.Handler = auth.HTTPMiddleware(mux, opts.JWTSecret)
	handler = Recoverer(handler, logger)
	handler = AccessLog(handler, logger, opts.Metrics)
	handler = RequestID(handler)
	return handler, nil
}

func healthz(ready func(ctx context.Context) error) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// caller returns the claims the auth middleware stored, nil when absent.
func caller(r *http.Request) *auth.Claims {
	claims, _ := auth.FromContext(r.Context())
	return claims
}

// pathID parses the named path parameter. Malformed ids cannot match any
// record, so they answer 404.
func pathID(w http.ResponseWriter, params map[string]string, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(params[name])
	if err != nil {
		writeError(w, http.StatusNotFound, "Resource not found.", nil)
		return uuid.Nil, false
	}
	return id, true
}
