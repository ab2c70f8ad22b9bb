package library

import (
	"errors"
	"fmt"
)

var (
	// ErrIO wraps disk, permission and path failures during copy, move,
	// delete or repack.
	ErrIO = errors.New("filesystem operation failed")

	// ErrCatalog wraps failures of the underlying catalog store.
	ErrCatalog = errors.New("catalog operation failed")

	// ErrConsistency means the filesystem and the catalog were expected to
	// agree and did not. Manual repair is needed.
	ErrConsistency = errors.New("library and catalog are out of sync")

	// ErrCoverProcessing wraps cover images that could not be turned into
	// cover.jpg and thumb.jpg.
	ErrCoverProcessing = errors.New("cover processing failed")

	// ErrPathConflict is returned when a book would be written over a file
	// that belongs to another book.
	ErrPathConflict = errors.New("target path already in use")

	ErrNotFound    = errors.New("book not found")
	ErrInvalidBook = errors.New("invalid book")
)

func ioError(op, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrIO, err)
}

func catalogError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrCatalog, err)
}
