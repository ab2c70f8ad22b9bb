package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/jobs"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Libraries resolves a library ID to its coordinator and catalog.
// Implemented by registry.Registry.
type Libraries interface {
	Coordinator(id string) (*library.Coordinator, error)
	Database(id string) (*database.Database, error)
}

func bulkRetention() *backlite.Retention {
	return &backlite.Retention{
		Duration:   24 * time.Hour,
		OnlyFailed: false,
		Data:       &backlite.RetainData{OnlyFailed: true},
	}
}

// ImportDirectoryTask imports every archive below Dir into a library.
type ImportDirectoryTask struct {
	LibraryID string `json:"library_id"`
	Dir       string `json:"dir"`
}

func (t ImportDirectoryTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        string(entities.JobTypeImportDirectory),
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     2 * time.Hour,
		Retention:   bulkRetention(),
	}
}

func ImportDirectoryProcessor(libs Libraries) backlite.QueueProcessor[ImportDirectoryTask] {
	return func(ctx context.Context, task ImportDirectoryTask) error {
		if task.Dir == "" {
			return fmt.Errorf("dir is required")
		}
		return runLibraryJob(ctx, libs, task.LibraryID, entities.JobTypeImportDirectory,
			func(ctx context.Context, coord *library.Coordinator, progress library.ProgressReporter) (library.BatchResult, error) {
				return coord.ImportDirectory(ctx, task.Dir, progress)
			})
	}
}

func NewImportDirectoryQueue(libs Libraries) backlite.Queue {
	return backlite.NewQueue(ImportDirectoryProcessor(libs))
}

// SyncMetadataTask writes every catalog record of a library back into its
// archive.
type SyncMetadataTask struct {
	LibraryID string `json:"library_id"`
}

func (t SyncMetadataTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        string(entities.JobTypeSyncMetadata),
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     2 * time.Hour,
		Retention:   bulkRetention(),
	}
}

func SyncMetadataProcessor(libs Libraries) backlite.QueueProcessor[SyncMetadataTask] {
	return func(ctx context.Context, task SyncMetadataTask) error {
		return runLibraryJob(ctx, libs, task.LibraryID, entities.JobTypeSyncMetadata,
			func(ctx context.Context, coord *library.Coordinator, progress library.ProgressReporter) (library.BatchResult, error) {
				return coord.SyncAll(ctx, progress)
			})
	}
}

func NewSyncMetadataQueue(libs Libraries) backlite.Queue {
	return backlite.NewQueue(SyncMetadataProcessor(libs))
}

// DeleteBooksTask deletes a set of books from a library.
type DeleteBooksTask struct {
	LibraryID string `json:"library_id"`
	BookIDs   []uint `json:"book_ids"`
}

func (t DeleteBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        string(entities.JobTypeDeleteBooks),
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention:   bulkRetention(),
	}
}

func DeleteBooksProcessor(libs Libraries) backlite.QueueProcessor[DeleteBooksTask] {
	return func(ctx context.Context, task DeleteBooksTask) error {
		if len(task.BookIDs) == 0 {
			return nil
		}
		return runLibraryJob(ctx, libs, task.LibraryID, entities.JobTypeDeleteBooks,
			func(ctx context.Context, coord *library.Coordinator, progress library.ProgressReporter) (library.BatchResult, error) {
				return coord.DeleteBooks(ctx, task.BookIDs, progress)
			})
	}
}

func NewDeleteBooksQueue(libs Libraries) backlite.Queue {
	return backlite.NewQueue(DeleteBooksProcessor(libs))
}

type batchFunc func(ctx context.Context, coord *library.Coordinator, progress library.ProgressReporter) (library.BatchResult, error)

// runLibraryJob runs one bulk operation with its progress persisted in the
// library's job_progress table. A job of the same type that is still
// running makes this one fail without doing anything.
func runLibraryJob(ctx context.Context, libs Libraries, libraryID string, jobType entities.JobType, run batchFunc) error {
	coord, err := libs.Coordinator(libraryID)
	if err != nil {
		return fmt.Errorf("%s: %w", jobType, err)
	}
	db, err := libs.Database(libraryID)
	if err != nil {
		return fmt.Errorf("%s: %w", jobType, err)
	}

	progress := jobs.NewRepository(db.DB, jobType)
	running, err := progress.IsRunning()
	if err != nil {
		return fmt.Errorf("check %s status: %w", jobType, err)
	}
	if running {
		return fmt.Errorf("%s is already in progress", jobType)
	}

	result, err := run(ctx, coord, progress)
	if err != nil {
		return fmt.Errorf("%s: %w", jobType, err)
	}

	log.Printf("[TASK] %s complete: %d total, %d succeeded, %d failed",
		jobType, result.Total, result.Succeeded, result.Failed)
	return nil
}
