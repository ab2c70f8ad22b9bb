package interfaces

// Compile-time interface implementation checks.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/jobs"
	"github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/registry"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// =============================================================================
// Library Storage
// =============================================================================

var _ library.Catalog = (*books.Repository)(nil)
var _ library.CoverProcessor = (*covers.Pipeline)(nil)
var _ library.ProgressReporter = (*jobs.Repository)(nil)

// =============================================================================
// Library Registry
// =============================================================================

var _ http.LibraryStore = (*registry.Registry)(nil)
var _ tasks.Libraries = (*registry.Registry)(nil)
var _ scheduler.Libraries = (*registry.Registry)(nil)

// =============================================================================
// HTTP
// =============================================================================

var _ http.BookStore = (*books.Repository)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ metadata.Provider = (*metadata.OpenLibraryClient)(nil)
var _ metadata.Provider = (*metadata.GoogleBooksClient)(nil)
var _ metadata.Searcher = (*metadata.Registry)(nil)
var _ metadata.BookUpdater = (*library.Coordinator)(nil)
