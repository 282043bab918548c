package db

import (
	"context"
	"time"

	dbmodels "github.com/gartstein/hr/internal/hr/db/models"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateImportJob(ctx context.Context, job *models.ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.ImportQueued
	}
	row := &dbmodels.ImportJob{
		ID:        job.ID,
		CompanyID: job.CompanyID,
		FileRef:   job.FileRef,
		FileName:  job.FileName,
		Status:    string(job.Status),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	job.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) GetImportJob(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	var job dbmodels.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return job.ToDomain(), nil
}

// MarkImportJobRunning moves a queued job to running. StartedAt is kept
// from the first attempt when a running job is redelivered.
func (r *Repository) MarkImportJobRunning(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&dbmodels.ImportJob{}).
		Where("id = ? AND status IN ?", id, []string{string(models.ImportQueued), string(models.ImportRunning)}).
		Updates(map[string]any{
			"status":     string(models.ImportRunning),
			"started_at": gorm.Expr("COALESCE(started_at, ?)", now),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// CommittedRows returns the rows of jobID that already landed in storage.
func (r *Repository) CommittedRows(ctx context.Context, jobID uuid.UUID) (map[int]struct{}, error) {
	var rows []int
	err := r.db.WithContext(ctx).Model(&dbmodels.ImportCommittedRow{}).
		Where("job_id = ?", jobID).
		Pluck("row_no", &rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]struct{}, len(rows))
	for _, row := range rows {
		out[row] = struct{}{}
	}
	return out, nil
}

func (r *Repository) IsCancelRequested(ctx context.Context, jobID uuid.UUID) (bool, error) {
	var job dbmodels.ImportJob
	err := r.db.WithContext(ctx).Select("cancel_requested").First(&job, "id = ?", jobID).Error
	if err != nil {
		return false, notFound(err)
	}
	return job.CancelRequested, nil
}

// RequestCancel flags a job for cancellation. Terminal jobs are left as is
// and the returned job tells the caller which case applied.
func (r *Repository) RequestCancel(ctx context.Context, jobID uuid.UUID) (*models.ImportJob, error) {
	var out *models.ImportJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job dbmodels.ImportJob
		if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
			return notFound(err)
		}
		if !models.ImportStatus(job.Status).Terminal() {
			job.CancelRequested = true
			if err := tx.Model(&job).Update("cancel_requested", true).Error; err != nil {
				return err
			}
		}
		out = job.ToDomain()
		return nil
	})
	return out, err
}

// FinishImportJob stores the final summary of a job and its row errors.
func (r *Repository) FinishImportJob(ctx context.Context, summary *models.ImportSummary) error {
	now := time.Now().UTC()
	fields := map[string]any{
		"status":         string(summary.Status),
		"total_rows":     summary.TotalRows,
		"succeeded":      summary.Succeeded,
		"failed":         summary.Failed,
		"cancelled":      summary.Cancelled,
		"cancelled_from": summary.CancelledFrom,
		"fatal_kind":     nil,
		"fatal_message":  nil,
		"finished_at":    now,
	}
	if summary.Fatal != nil {
		fields["fatal_kind"] = string(summary.Fatal.Kind)
		fields["fatal_message"] = summary.Fatal.Message
	}

	errs := make([]*dbmodels.ImportRowError, 0, len(summary.Errors))
	for row, rowErr := range summary.Errors {
		errs = append(errs, &dbmodels.ImportRowError{
			JobID:   summary.JobID,
			Row:     row,
			Kind:    string(rowErr.Kind),
			Field:   rowErr.Field,
			Message: rowErr.Message,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&dbmodels.ImportJob{}).Where("id = ?", summary.JobID).Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		if err := tx.Where("job_id = ?", summary.JobID).Delete(&dbmodels.ImportRowError{}).Error; err != nil {
			return err
		}
		if len(errs) == 0 {
			return nil
		}
		return tx.CreateInBatches(errs, importInsertBatch).Error
	})
}

// ImportSummary rebuilds the stored summary of a job.
func (r *Repository) ImportSummary(ctx context.Context, jobID uuid.UUID) (*models.ImportSummary, error) {
	var job dbmodels.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return nil, notFound(err)
	}
	var errs []dbmodels.ImportRowError
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("row_no").Find(&errs).Error; err != nil {
		return nil, err
	}

	summary := models.NewImportSummary(*job.ToDomain())
	summary.TotalRows = job.TotalRows
	summary.Succeeded = job.Succeeded
	summary.Failed = job.Failed
	summary.Cancelled = job.Cancelled
	summary.CancelledFrom = job.CancelledFrom
	if job.FatalKind != nil {
		summary.Fatal = &models.RowError{Kind: models.ErrorKind(*job.FatalKind)}
		if job.FatalMessage != nil {
			summary.Fatal.Message = *job.FatalMessage
		}
	}
	for _, re := range errs {
		summary.Errors[re.Row] = models.RowError{
			Kind:    models.ErrorKind(re.Kind),
			Field:   re.Field,
			Message: re.Message,
		}
	}
	return summary, nil
}

// PendingImportJobs lists jobs that were accepted but never finished.
func (r *Repository) PendingImportJobs(ctx context.Context) ([]*models.ImportJob, error) {
	var rows []dbmodels.ImportJob
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(models.ImportQueued), string(models.ImportRunning)}).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.ImportJob, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}
