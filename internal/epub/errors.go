package epub

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is matched by every FormatError.
	ErrFormat = errors.New("invalid epub")

	// ErrCoverFormatMismatch is returned by SetCover when the replacement image
	// has a different extension than the cover already inside the archive.
	ErrCoverFormatMismatch = errors.New("cover format does not match existing cover")
)

// FormatError reports an archive that cannot be read as an EPUB container.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("epub %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("epub %s: %s", e.Path, e.Reason)
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}

func formatError(path, reason string, err error) error {
	return &FormatError{Path: path, Reason: reason, Err: err}
}
