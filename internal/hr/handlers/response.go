package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	e "github.com/gartstein/hr/internal/hr/errors"
	"go.uber.org/zap"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

var errMalformedBody = errors.New("malformed JSON body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	writeJSON(w, status, envelope{Success: false, Message: message, Errors: fields})
}

// decodeJSON reads the request body into dst. Unknown fields are ignored,
// so only the fields dst declares ever reach a service. An empty body
// decodes to the zero value.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errMalformedBody
	}
	return nil
}

// writeServiceError maps service errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *e.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", verr.Fields)
	case errors.Is(err, e.ErrAdminProtected):
		writeError(w, http.StatusUnprocessableEntity, "User Admin cannot be deleted.", nil)
	case errors.Is(err, e.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, e.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found.", nil)
	case errors.Is(err, e.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "The given data was invalid.", map[string][]string{
			"email": {"has already been taken"},
		})
	case errors.Is(err, e.ErrDuplicateEmployee):
		writeError(w, http.StatusConflict, "The given data was invalid.", map[string][]string{
			"user_id": {"already has an employee record"},
		})
	case errors.Is(err, e.ErrTenantMismatch):
		writeError(w, http.StatusForbidden, "Resource belongs to another company.", nil)
	case errors.Is(err, e.ErrForbidden):
		writeError(w, http.StatusForbidden, "This action is unauthorized.", nil)
	case errors.Is(err, e.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials.", nil)
	case errors.Is(err, e.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
	case errors.Is(err, e.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable, try again later.", nil)
	default:
		h.logger.Error("Internal server error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error.", nil)
	}
}
