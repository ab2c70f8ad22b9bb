// Package jobs provides database operations for bulk job progress tracking.
//
// This package implements the ProgressReporter interface used by the library
// coordinator's batch operations.
//
// # Interface Implementation
//
//	var _ library.ProgressReporter = (*Repository)(nil)
//
// # Usage
//
//	repo := jobs.NewRepository(db, entities.JobTypeImportDirectory)
//	err := repo.StartJob(100)
package jobs

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// staleAfter marks a running job as interrupted when it has not reported
// progress for this long.
const staleAfter = 10 * time.Minute

// Repository handles job progress rows for one job type.
type Repository struct {
	db      *gorm.DB
	jobType entities.JobType
}

// NewRepository creates a job progress repository for jobType.
func NewRepository(db *gorm.DB, jobType entities.JobType) *Repository {
	return &Repository{db: db, jobType: jobType}
}

// GetProgress retrieves the latest progress for the configured job type.
func (r *Repository) GetProgress() (*entities.JobProgress, error) {
	var progress entities.JobProgress
	err := r.db.Where("job_type = ?", r.jobType).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// StartJob creates or resets the progress row.
func (r *Repository) StartJob(totalItems int) error {
	var progress entities.JobProgress
	result := r.db.Where("job_type = ?", r.jobType).First(&progress)

	now := time.Now()
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		progress = entities.JobProgress{
			JobType:    r.jobType,
			Status:     entities.JobStatusRunning,
			TotalItems: totalItems,
			StartedAt:  now,
			UpdatedAt:  now,
		}
		return r.db.Create(&progress).Error
	} else if result.Error != nil {
		return result.Error
	}

	progress.Status = entities.JobStatusRunning
	progress.TotalItems = totalItems
	progress.Processed = 0
	progress.Succeeded = 0
	progress.Failed = 0
	progress.CurrentItem = ""
	progress.Error = ""
	progress.StartedAt = now
	progress.UpdatedAt = now
	progress.CompletedAt = nil

	return r.db.Save(&progress).Error
}

// UpdateProgress records the counters after an item finished.
func (r *Repository) UpdateProgress(processed, succeeded, failed int, currentItem string) error {
	return r.db.Model(&entities.JobProgress{}).
		Where("job_type = ?", r.jobType).
		Updates(map[string]any{
			"processed":    processed,
			"succeeded":    succeeded,
			"failed":       failed,
			"current_item": currentItem,
			"updated_at":   time.Now(),
		}).Error
}

// CompleteJob marks the job finished with the given status.
func (r *Repository) CompleteJob(status entities.JobStatus, errorMsg string) error {
	now := time.Now()
	updates := map[string]any{
		"status":       status,
		"current_item": "",
		"updated_at":   now,
		"completed_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return r.db.Model(&entities.JobProgress{}).
		Where("job_type = ?", r.jobType).
		Updates(updates).Error
}

// IsRunning reports whether a job of this type is in progress. A running
// row that has not been updated for staleAfter is marked failed.
func (r *Repository) IsRunning() (bool, error) {
	var progress entities.JobProgress
	err := r.db.Where("job_type = ? AND status = ?", r.jobType, entities.JobStatusRunning).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if progress.UpdatedAt.Before(time.Now().Add(-staleAfter)) {
		_ = r.CompleteJob(entities.JobStatusFailed, "job was interrupted")
		return false, nil
	}

	return true, nil
}
