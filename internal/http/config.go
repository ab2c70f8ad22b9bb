package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/metadata"
)

// LibraryStore gives handlers access to the registered libraries.
// Implemented by registry.Registry.
type LibraryStore interface {
	Libraries() []entities.Library
	Add(name, path string) (entities.Library, error)
	Select(id string) error
	Selected() (entities.Library, error)
	SelectedCoordinator() (entities.Library, *library.Coordinator, error)
	Database(id string) (*database.Database, error)
}

// TaskQueue enqueues background tasks. Implemented by tasks.Client.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	Libraries LibraryStore

	// Task queue (optional)
	Tasks TaskQueue

	// Metadata candidates (optional)
	Enricher *metadata.Enricher

	// Upload limit for archives and cover images, in bytes
	MaxUploadSize int64

	// Application info
	Version string
}
