package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gartstein/hr/internal/hr/models"
)

// ImportJob is the import_jobs table row. Counters hold the last summary.
type ImportJob struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID       uuid.UUID `gorm:"type:uuid;not null;index"`
	FileRef         string    `gorm:"type:text;not null"`
	FileName        string    `gorm:"type:text"`
	Status          string    `gorm:"size:16;not null;index"`
	CancelRequested bool      `gorm:"not null;default:false"`
	TotalRows       int       `gorm:"not null;default:0"`
	Succeeded       int       `gorm:"not null;default:0"`
	Failed          int       `gorm:"not null;default:0"`
	Cancelled       bool      `gorm:"not null;default:false"`
	CancelledFrom   int       `gorm:"not null;default:0"`
	FatalKind       *string   `gorm:"size:32"`
	FatalMessage    *string   `gorm:"type:text"`
	StartedAt       *time.Time
	FinishedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ImportJob) TableName() string {
	return "import_jobs"
}

func (j *ImportJob) ToDomain() *models.ImportJob {
	return &models.ImportJob{
		ID:              j.ID,
		CompanyID:       j.CompanyID,
		FileRef:         j.FileRef,
		FileName:        j.FileName,
		Status:          models.ImportStatus(j.Status),
		CancelRequested: j.CancelRequested,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		FinishedAt:      j.FinishedAt,
	}
}

// ImportRowError is one rejected row of an import job.
type ImportRowError struct {
	ID      uint      `gorm:"primaryKey"`
	JobID   uuid.UUID `gorm:"type:uuid;not null;index:idx_import_row_errors_job_row,unique"`
	Row     int       `gorm:"column:row_no;not null;index:idx_import_row_errors_job_row,unique"`
	Kind    string    `gorm:"size:32;not null"`
	Field   string    `gorm:"size:32"`
	Message string    `gorm:"type:text"`
}

func (ImportRowError) TableName() string {
	return "import_row_errors"
}

// ImportCommittedRow marks a row whose employee was committed. It is written
// in the same transaction as the employee itself.
type ImportCommittedRow struct {
	JobID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Row   int       `gorm:"column:row_no;primaryKey;autoIncrement:false"`
}

func (ImportCommittedRow) TableName() string {
	return "import_committed_rows"
}

// All lists every row type for migration.
func All() []any {
	return []any{
		&Company{},
		&User{},
		&Employee{},
		&ImportJob{},
		&ImportRowError{},
		&ImportCommittedRow{},
	}
}
