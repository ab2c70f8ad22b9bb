// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Library Storage Interfaces
//
//   - Catalog: book records of one library (internal/library/interfaces.go)
//   - CoverProcessor: cover.jpg and thumb.jpg generation (internal/library/interfaces.go)
//   - ProgressReporter: bulk job progress (internal/library/interfaces.go)
//
// ## Host Interfaces
//
//   - LibraryStore: registered libraries and the selection (internal/http/config.go)
//   - BookStore: read access to a catalog (internal/http/books.go)
//   - TaskQueue: background job submission (internal/http/config.go)
//   - Libraries: library lookup for tasks and the inbox scheduler
//     (internal/tasks/library_jobs.go, internal/scheduler/inbox_import.go)
//
// ## External Service Interfaces
//
//   - Provider: remote metadata lookup (internal/metadata/provider.go)
//   - Searcher: provider fan-out used by the enricher (internal/metadata/enricher.go)
//   - BookUpdater: persists enriched books (internal/metadata/enricher.go)
//
// # Adding a New Metadata Provider
//
//  1. Implement Provider in internal/metadata/
//
//     type WorldCatClient struct {
//     baseURL    string
//     httpClient *http.Client
//     }
//
//     func (c *WorldCatClient) Name() string
//     func (c *WorldCatClient) Search(ctx context.Context, author, title string) ([]Candidate, error)
//
//  2. Register it in newEnricher in internal/entrypoint/entrypoint.go
//
//  3. Add a compile-time check to checks.go
//
// # Adding a New Background Task
//
//  1. Define the payload in internal/tasks/ with a Config method naming
//     its queue, and a processor that resolves the library through
//     Libraries and reports through jobs.Repository.
//
//  2. Register the queue in entrypoint.go and accept the type in
//     internal/http/tasks.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the current list.
package interfaces
