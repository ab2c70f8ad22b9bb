package entities

import (
	"time"
)

type JobType string

const (
	JobTypeImportDirectory JobType = "import_directory"
	JobTypeSyncMetadata    JobType = "sync_metadata"
	JobTypeDeleteBooks     JobType = "delete_books"
	JobTypeInboxImport     JobType = "inbox_import"
)

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusFailed    JobStatus = "failed"
)

// JobProgress tracks the latest run of a bulk job, one row per job type.
type JobProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	JobType     JobType    `gorm:"size:50;uniqueIndex" json:"job_type"`
	Status      JobStatus  `gorm:"size:20" json:"status"`
	TotalItems  int        `json:"total_items"`
	Processed   int        `json:"processed"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	CurrentItem string     `gorm:"size:1024" json:"current_item,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (JobProgress) TableName() string {
	return "job_progress"
}

// Percent is the fraction of processed items, 0..100.
func (p JobProgress) Percent() float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return float64(p.Processed) / float64(p.TotalItems) * 100
}
