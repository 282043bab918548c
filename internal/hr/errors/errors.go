package errors

import (
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = fmt.Errorf("not found")
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrDuplicateEmail     = fmt.Errorf("duplicate email")
	ErrDuplicateEmployee  = fmt.Errorf("user already has an employee record")
	ErrAdminProtected     = fmt.Errorf("admin user cannot be deleted")
	ErrTenantMismatch     = fmt.Errorf("resource belongs to another company")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUnavailable        = fmt.Errorf("service temporarily unavailable")

	// ErrInterrupted means work stopped early because its worker is shutting
	// down. The work is left to be resumed.
	ErrInterrupted = fmt.Errorf("interrupted by shutdown")
)

// ValidationError collects per-field messages. It unwraps to ErrInvalidInput.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add records a message for field.
func (v *ValidationError) Add(field, msg string) {
	v.Fields[field] = append(v.Fields[field], msg)
}

// Empty reports whether no field failed.
func (v *ValidationError) Empty() bool {
	return len(v.Fields) == 0
}

// Err returns v as an error, or nil when no field failed.
func (v *ValidationError) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v.Fields[k], ", ")))
	}
	return fmt.Sprintf("%v: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (v *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
