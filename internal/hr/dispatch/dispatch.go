// Package dispatch hands import jobs to workers without waiting for them.
package dispatch

import (
	"context"
	"errors"

	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
)

var (
	ErrQueueFull = errors.New("import queue is full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// Job is what travels from the HTTP handler to a worker.
type Job struct {
	ID        uuid.UUID `json:"job_id"`
	CompanyID uuid.UUID `json:"company_id"`
	FileRef   string    `json:"file_ref"`
}

// JobFrom builds the dispatch message for a stored import job.
func JobFrom(job *models.ImportJob) Job {
	return Job{ID: job.ID, CompanyID: job.CompanyID, FileRef: job.FileRef}
}

// Executor runs one import job to completion.
type Executor interface {
	Run(ctx context.Context, jobID uuid.UUID) (*models.ImportSummary, error)
}

// Dispatcher accepts jobs for asynchronous execution. Submit returns as soon
// as the job is queued; Stop waits for running jobs until ctx is done and
// then cancels them.
type Dispatcher interface {
	Submit(ctx context.Context, job Job) error
	Stop(ctx context.Context) error
}
