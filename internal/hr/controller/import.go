package controller

import (
	"context"
	"fmt"
	"io"

	"github.com/gartstein/hr/internal/hr/auth"
	"github.com/gartstein/hr/internal/hr/dispatch"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileSaver stores uploads until a worker has consumed them.
type FileSaver interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

type ImportRepository interface {
	CreateImportJob(ctx context.Context, job *models.ImportJob) error
	GetImportJob(ctx context.Context, id uuid.UUID) (*models.ImportJob, error)
	ImportSummary(ctx context.Context, jobID uuid.UUID) (*models.ImportSummary, error)
	RequestCancel(ctx context.Context, jobID uuid.UUID) (*models.ImportJob, error)
	PendingImportJobs(ctx context.Context) ([]*models.ImportJob, error)
	FinishImportJob(ctx context.Context, summary *models.ImportSummary) error
}

// ImportService accepts employee CSV uploads and hands them to the
// dispatcher. It never runs an import itself.
type ImportService struct {
	repo       ImportRepository
	files      FileSaver
	dispatcher dispatch.Dispatcher
	logger     *zap.Logger
}

func NewImportService(repo ImportRepository, files FileSaver, dispatcher dispatch.Dispatcher, logger *zap.Logger) *ImportService {
	return &ImportService{
		repo:       repo,
		files:      files,
		dispatcher: dispatcher,
		logger:     logger.Named("import_service"),
	}
}

// StartImport stores the upload, records a queued job for the caller's
// company and submits it. The returned job is queued, not finished.
func (s *ImportService) StartImport(ctx context.Context, caller *auth.Claims, name string, r io.Reader) (*models.ImportJob, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	ref, err := s.files.Save(ctx, name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	job := &models.ImportJob{
		ID:        uuid.New(),
		CompanyID: caller.CompanyID,
		FileRef:   ref,
		FileName:  name,
		Status:    models.ImportQueued,
	}
	if err := s.repo.CreateImportJob(ctx, job); err != nil {
		s.discard(ctx, ref)
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	logger := s.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("company_id", job.CompanyID.String()),
	)
	if err := s.dispatcher.Submit(ctx, dispatch.JobFrom(job)); err != nil {
		logger.Error("failed to dispatch import job", zap.Error(err))
		s.discard(ctx, ref)
		summary := models.NewImportSummary(*job)
		summary.Status = models.ImportFailed
		summary.Fatal = &models.RowError{Kind: models.ErrDispatch, Message: err.Error()}
		if ferr := s.repo.FinishImportJob(context.WithoutCancel(ctx), summary); ferr != nil {
			logger.Error("failed to mark import job failed", zap.Error(ferr))
		}
		return nil, fmt.Errorf("failed to dispatch import job: %w", e.ErrUnavailable)
	}
	logger.Info("import job queued", zap.String("file_name", name))
	return job, nil
}

// GetImport returns the current summary of a job of the caller's company.
// Unfinished jobs report their status with empty counters.
func (s *ImportService) GetImport(ctx context.Context, caller *auth.Claims, jobID uuid.UUID) (*models.ImportSummary, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	summary, err := s.repo.ImportSummary(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	if summary.CompanyID != caller.CompanyID {
		return nil, fmt.Errorf("failed to get import job: %w", e.ErrNotFound)
	}
	return summary, nil
}

// CancelImport asks a running job to stop after its current batch.
// Finished jobs are returned unchanged.
func (s *ImportService) CancelImport(ctx context.Context, caller *auth.Claims, jobID uuid.UUID) (*models.ImportJob, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	job, err := s.repo.GetImportJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	if job.CompanyID != caller.CompanyID {
		return nil, fmt.Errorf("failed to get import job: %w", e.ErrNotFound)
	}
	job, err = s.repo.RequestCancel(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel import job: %w", err)
	}
	s.logger.Info("import cancellation requested",
		zap.String("job_id", jobID.String()),
		zap.String("status", string(job.Status)),
	)
	return job, nil
}

// ResumePending resubmits the jobs a previous process accepted but never
// finished. It returns how many were resubmitted.
func (s *ImportService) ResumePending(ctx context.Context) (int, error) {
	jobs, err := s.repo.PendingImportJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending import jobs: %w", err)
	}
	n := 0
	for _, job := range jobs {
		if err := s.dispatcher.Submit(ctx, dispatch.JobFrom(job)); err != nil {
			s.logger.Warn("failed to resubmit import job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			continue
		}
		n++
	}
	if n > 0 {
		s.logger.Info("resubmitted pending import jobs", zap.Int("count", n))
	}
	return n, nil
}

func (s *ImportService) discard(ctx context.Context, ref string) {
	if err := s.files.Delete(context.WithoutCancel(ctx), ref); err != nil {
		s.logger.Warn("failed to delete upload", zap.String("file_ref", ref), zap.Error(err))
	}
}
