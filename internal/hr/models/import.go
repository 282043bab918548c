package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportStatus is the lifecycle state of an import job.
type ImportStatus string

const (
	ImportQueued    ImportStatus = "queued"
	ImportRunning   ImportStatus = "running"
	ImportSucceeded ImportStatus = "succeeded"
	ImportPartial   ImportStatus = "partial"
	ImportFailed    ImportStatus = "failed"
	ImportCancelled ImportStatus = "cancelled"
)

// Terminal reports whether a job in this status must never run again.
func (s ImportStatus) Terminal() bool {
	switch s {
	case ImportSucceeded, ImportPartial, ImportFailed, ImportCancelled:
		return true
	default:
		return false
	}
}

// ImportJob is a persisted request to import one uploaded file for one company.
type ImportJob struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	FileRef         string
	FileName        string
	Status          ImportStatus
	CancelRequested bool
	CreatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// ErrorKind classifies why a row (or the whole job) failed.
type ErrorKind string

const (
	ErrFieldInvalid      ErrorKind = "field_invalid"
	ErrTenantMismatch    ErrorKind = "tenant_mismatch"
	ErrDuplicateEmployee ErrorKind = "duplicate_employee"
	ErrStorage           ErrorKind = "storage_error"
	ErrFileRead          ErrorKind = "file_read_error"
	ErrCancelled         ErrorKind = "cancelled"
	ErrDispatch          ErrorKind = "dispatch_error"
)

// RowError is a structured rejection of one CSV row.
type RowError struct {
	Kind ErrorKind `json:"kind"`
	// Field is set for ErrFieldInvalid only.
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r *RowError) Error() string {
	if r.Field != "" {
		return fmt.Sprintf("%s(%s)", r.Kind, r.Field)
	}
	if r.Message != "" {
		return fmt.Sprintf("%s: %s", r.Kind, r.Message)
	}
	return string(r.Kind)
}

// FieldInvalid builds the rejection for a malformed field.
func FieldInvalid(field string) *RowError {
	return &RowError{Kind: ErrFieldInvalid, Field: field}
}

// ImportSummary reports per-row outcomes of one import job.
// Rows are numbered from 1, the header row excluded.
type ImportSummary struct {
	JobID     uuid.UUID        `json:"job_id"`
	CompanyID uuid.UUID        `json:"company_id"`
	Status    ImportStatus     `json:"status"`
	TotalRows int              `json:"total_rows"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	// Errors holds one entry per failed row. A cancelled job also holds an
	// ErrCancelled entry at CancelledFrom, which Failed does not count.
	Errors    map[int]RowError `json:"errors"`
	Cancelled bool             `json:"cancelled"`
	// CancelledFrom is the first row that was never read, 0 when not cancelled.
	CancelledFrom int       `json:"cancelled_from,omitempty"`
	Fatal         *RowError `json:"fatal,omitempty"`
}

// NewImportSummary returns an empty summary for job.
func NewImportSummary(job ImportJob) *ImportSummary {
	return &ImportSummary{
		JobID:     job.ID,
		CompanyID: job.CompanyID,
		Status:    job.Status,
		Errors:    map[int]RowError{},
	}
}

// Succeed marks row as imported.
func (s *ImportSummary) Succeed(row int) {
	s.TotalRows++
	s.Succeeded++
}

// Fail records the rejection of row.
func (s *ImportSummary) Fail(row int, err *RowError) {
	s.TotalRows++
	s.Failed++
	s.Errors[row] = *err
}

// Cancel marks every row from row on as not processed.
func (s *ImportSummary) Cancel(row int) {
	s.Cancelled = true
	s.CancelledFrom = row
	s.Errors[row] = RowError{Kind: ErrCancelled, Message: "import cancelled before this row"}
}

// ImportedRow pairs a validated employee with its row number in the file.
type ImportedRow struct {
	Row      int
	Employee *Employee
}
