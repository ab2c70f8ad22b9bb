package library

import "github.com/mrlokans/bookshelf/internal/entities"

// Catalog is the relational store of book records for one library.
// Implemented by books.Repository.
type Catalog interface {
	Exists(title, author string, series *string, seriesNumber *int) (bool, error)
	Insert(book *entities.Book) error
	Update(book *entities.Book) error
	Delete(id uint) error
	GetBookByID(id uint) (*entities.Book, error)
	ListBooks() ([]entities.Book, error)
}

// CoverProcessor installs cover.jpg and thumb.jpg into a book directory.
// Implemented by covers.Pipeline.
type CoverProcessor interface {
	Apply(src, bookDir string) error
}

// ProgressReporter receives progress of bulk operations. Implemented by
// jobs.Repository; NewProgressFunc adapts a plain callback.
type ProgressReporter interface {
	StartJob(totalItems int) error
	UpdateProgress(processed, succeeded, failed int, currentItem string) error
	CompleteJob(status entities.JobStatus, errorMsg string) error
}
