package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultBatchSize = 200

// FileStore gives the runner access to uploaded files.
type FileStore interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// BatchWriter commits the employees of one batch and their committed-row
// markers atomically.
type BatchWriter interface {
	CommitBatch(ctx context.Context, jobID uuid.UUID, rows []models.ImportedRow) error
}

// JobStore persists import jobs and their summaries.
type JobStore interface {
	GetImportJob(ctx context.Context, id uuid.UUID) (*models.ImportJob, error)
	MarkImportJobRunning(ctx context.Context, id uuid.UUID) error
	CommittedRows(ctx context.Context, jobID uuid.UUID) (map[int]struct{}, error)
	IsCancelRequested(ctx context.Context, jobID uuid.UUID) (bool, error)
	FinishImportJob(ctx context.Context, summary *models.ImportSummary) error
	ImportSummary(ctx context.Context, jobID uuid.UUID) (*models.ImportSummary, error)
}

// Recorder receives pipeline measurements.
type Recorder interface {
	JobFinished(status string, succeeded, failed int)
	BatchCommitted(d time.Duration)
	BatchRetried()
}

type Config struct {
	BatchSize  int
	RetryDelay time.Duration
}

type Runner struct {
	cfg       Config
	jobs      JobStore
	validator *Validator
	writer    BatchWriter
	files     FileStore
	publisher events.Publisher
	metrics   Recorder
	logger    *zap.Logger
}

func NewRunner(
	cfg Config,
	jobs JobStore,
	users UserLookup,
	writer BatchWriter,
	files FileStore,
	publisher events.Publisher,
	metrics Recorder,
	logger *zap.Logger,
) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Runner{
		cfg:       cfg,
		jobs:      jobs,
		validator: NewValidator(users),
		writer:    writer,
		files:     files,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("import_runner"),
	}
}

// Run executes the import job jobID and returns its summary.
//
// ctx only signals shutdown; it is checked between batches. Storage work
// runs detached from it so a batch is never cut in half. When ctx ends
// first, Run returns an error wrapping e.ErrInterrupted and leaves the job
// running with its file in place, so a later Run resumes after the last
// committed batch. The file is removed once the job is finished.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) (*models.ImportSummary, error) {
	store := context.WithoutCancel(ctx)

	job, err := r.jobs.GetImportJob(store, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load import job: %w", err)
	}
	logger := r.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("company_id", job.CompanyID.String()),
	)

	if job.Status.Terminal() {
		logger.Info("import job already finished, not running again", zap.String("status", string(job.Status)))
		r.removeFile(store, job.FileRef, logger)
		return r.jobs.ImportSummary(store, jobID)
	}

	if err := r.jobs.MarkImportJobRunning(store, jobID); err != nil {
		return nil, fmt.Errorf("failed to start import job: %w", err)
	}
	committed, err := r.jobs.CommittedRows(store, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load committed rows: %w", err)
	}
	if len(committed) > 0 {
		logger.Info("resuming import job", zap.Int("committed_rows", len(committed)))
	}

	summary := models.NewImportSummary(*job)
	summary.Status = models.ImportRunning
	started := time.Now()
	if interrupted := r.process(ctx, store, job, committed, summary, logger); interrupted {
		logger.Info("import job interrupted, leaving it to be resumed",
			zap.Int("rows_read", summary.TotalRows),
			zap.Int("succeeded", summary.Succeeded),
		)
		return summary, fmt.Errorf("import job %s: %w", jobID, e.ErrInterrupted)
	}
	summary.Status = finalStatus(summary)

	if err := r.jobs.FinishImportJob(store, summary); err != nil {
		logger.Error("failed to store import summary", zap.Error(err))
		return summary, fmt.Errorf("failed to store import summary: %w", err)
	}
	r.removeFile(store, job.FileRef, logger)
	r.publisher.Produce(events.EmployeesImported, job.CompanyID, summary)
	r.metrics.JobFinished(string(summary.Status), summary.Succeeded, summary.Failed)

	fields := []zap.Field{
		zap.String("status", string(summary.Status)),
		zap.Int("total_rows", summary.TotalRows),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("took", time.Since(started)),
	}
	if summary.Cancelled {
		fields = append(fields, zap.Int("cancelled_from", summary.CancelledFrom))
	}
	if summary.Fatal != nil {
		fields = append(fields, zap.String("fatal", summary.Fatal.Error()))
	}
	logger.Info("import job finished", fields...)
	return summary, nil
}

// process fills summary from the job's file. It reports true when ctx ended
// before the file was fully processed.
func (r *Runner) process(
	ctx, store context.Context,
	job *models.ImportJob,
	committed map[int]struct{},
	summary *models.ImportSummary,
	logger *zap.Logger,
) bool {
	if ctx.Err() != nil {
		return true
	}
	if r.cancelRequested(store, job.ID, logger) {
		summary.Cancel(1)
		return false
	}

	file, err := r.files.Open(store, job.FileRef)
	if err != nil {
		summary.Fatal = fileReadError(fmt.Errorf("open: %w", err))
		return false
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if !errors.Is(err, io.EOF) {
			summary.Fatal = fileReadError(err)
		}
		return false
	}

	var (
		row   int
		batch = make([]models.ImportedRow, 0, r.cfg.BatchSize)
		// users of this file that are pending in batch or already committed
		users = map[uuid.UUID]struct{}{}
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Fatal = fileReadError(err)
			for _, item := range batch {
				summary.Fail(item.Row, &models.RowError{Kind: models.ErrFileRead, Message: "not committed, the file could not be read to the end"})
			}
			return false
		}
		row++

		if _, ok := committed[row]; ok {
			summary.Succeed(row)
			continue
		}

		employee, rowErr := r.validator.Validate(store, job.CompanyID, record)
		if rowErr == nil {
			if _, dup := users[employee.UserID]; dup {
				rowErr = &models.RowError{Kind: models.ErrDuplicateEmployee, Message: "user already imported by an earlier row"}
			}
		}
		if rowErr != nil {
			summary.Fail(row, rowErr)
			continue
		}

		users[employee.UserID] = struct{}{}
		batch = append(batch, models.ImportedRow{Row: row, Employee: employee})
		if len(batch) < r.cfg.BatchSize {
			continue
		}

		r.commit(store, job.ID, batch, users, summary, logger)
		batch = batch[:0]

		if ctx.Err() != nil {
			return true
		}
		if r.cancelRequested(store, job.ID, logger) {
			summary.Cancel(row + 1)
			return false
		}
	}

	r.commit(store, job.ID, batch, users, summary, logger)
	return false
}

// commit writes batch, retrying exactly once. When the retry fails too,
// every row of the batch is recorded as a storage error and its users are
// released from users, since no employee was created for them.
func (r *Runner) commit(
	ctx context.Context,
	jobID uuid.UUID,
	batch []models.ImportedRow,
	users map[uuid.UUID]struct{},
	summary *models.ImportSummary,
	logger *zap.Logger,
) {
	if len(batch) == 0 {
		return
	}

	started := time.Now()
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.RetryDelay), 1)
	err := backoff.RetryNotify(func() error {
		return r.writer.CommitBatch(ctx, jobID, batch)
	}, policy, func(err error, wait time.Duration) {
		r.metrics.BatchRetried()
		logger.Warn("batch commit failed, retrying",
			zap.Error(err),
			zap.Int("first_row", batch[0].Row),
			zap.Int("rows", len(batch)),
			zap.Duration("wait", wait),
		)
	})
	r.metrics.BatchCommitted(time.Since(started))

	if err != nil {
		logger.Error("batch commit failed after retry",
			zap.Error(err),
			zap.Int("first_row", batch[0].Row),
			zap.Int("rows", len(batch)),
		)
		for _, item := range batch {
			summary.Fail(item.Row, storageError(err))
			delete(users, item.Employee.UserID)
		}
		return
	}
	for _, item := range batch {
		summary.Succeed(item.Row)
	}
}

// cancelRequested reports whether a user asked for the job to be cancelled.
func (r *Runner) cancelRequested(store context.Context, jobID uuid.UUID, logger *zap.Logger) bool {
	requested, err := r.jobs.IsCancelRequested(store, jobID)
	if err != nil {
		logger.Warn("failed to read cancellation flag", zap.Error(err))
		return false
	}
	return requested
}

func (r *Runner) removeFile(ctx context.Context, ref string, logger *zap.Logger) {
	if err := r.files.Delete(ctx, ref); err != nil {
		logger.Error("failed to remove import file", zap.String("file_ref", ref), zap.Error(err))
	}
}

func finalStatus(summary *models.ImportSummary) models.ImportStatus {
	switch {
	case summary.Fatal != nil:
		return models.ImportFailed
	case summary.Cancelled:
		return models.ImportCancelled
	case summary.Failed == 0:
		return models.ImportSucceeded
	default:
		return models.ImportPartial
	}
}

func fileReadError(err error) *models.RowError {
	return &models.RowError{Kind: models.ErrFileRead, Message: err.Error()}
}

type nopRecorder struct{}

func (nopRecorder) JobFinished(string, int, int) {}
func (nopRecorder) BatchCommitted(time.Duration) {}
func (nopRecorder) BatchRetried() {}
