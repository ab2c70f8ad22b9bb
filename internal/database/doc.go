// Package database provides the catalog data access layer.
//
// # Architecture
//
// Every library root holds its own SQLite catalog, Books.db. The layer is
// organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── books/           # The Books table
//	└── jobs/            # Bulk job progress tracking
//
// # Using Sub-packages
//
//	db, err := database.OpenCatalog("/srv/library")
//
//	booksRepo := books.NewRepository(db.DB)
//	jobsRepo := jobs.NewRepository(db.DB, entities.JobTypeImportDirectory)
//
//	authors, err := booksRepo.ListAuthors()
//
// # Interface Implementations
//
//   - books.Repository: implements library.Catalog and http.BookStore
//   - jobs.Repository: implements library.ProgressReporter
//
// # Schema
//
// The Books table keeps PascalCase column names (Id, Title, Author,
// EpubPath, HasCover, AddedOn, BookType, Series, SeriesNumber, Year,
// Description) so catalogs created by earlier desktop builds open unchanged.
package database
