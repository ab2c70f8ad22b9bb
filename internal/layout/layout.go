// Package layout derives where a book lives inside a library root.
//
// Every function is pure: the same inputs always produce the same paths,
// which is what lets a rename be detected by comparing the computed path with
// the stored one.
//
//	root/
//	└── Jane Doe/
//	    └── Trilogy 2 - My Book/
//	        ├── Jane Doe - Trilogy 2 - My Book.epub
//	        ├── cover.jpg
//	        └── thumb.jpg
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/mrlokans/bookshelf/internal/entities"
)

const (
	UnknownAuthor = "Unknown Author"
	UnknownTitle  = "Unknown Title"

	CoverFileName     = "cover.jpg"
	ThumbnailFileName = "thumb.jpg"
	ArchiveExt        = ".epub"

	// MaxComponentLength is the rune limit for each sanitized name.
	MaxComponentLength = 32
)

// Characters invalid in file names on at least one common filesystem.
var invalidPathChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// Sanitize strips invalid characters, truncates to MaxComponentLength runes
// and trims leading and trailing periods and whitespace.
func Sanitize(name string) string {
	name = invalidPathChars.ReplaceAllString(name, "")

	if runes := []rune(name); len(runes) > MaxComponentLength {
		name = string(runes[:MaxComponentLength])
	}

	return strings.TrimFunc(name, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
}

func sanitizeOr(name, fallback string) string {
	if s := Sanitize(name); s != "" {
		return s
	}
	return fallback
}

// seriesLabel returns "{series} {index}" or "" when either part is missing.
func seriesLabel(series string, index *int) string {
	s := Sanitize(series)
	if s == "" || index == nil {
		return ""
	}
	return fmt.Sprintf("%s %d", s, *index)
}

// Directory returns root/author/"{series} {index} - {title}" for books in a
// series and root/author/title otherwise.
func Directory(root, author, title, series string, seriesIndex *int) string {
	a := sanitizeOr(author, UnknownAuthor)
	t := sanitizeOr(title, UnknownTitle)
	if label := seriesLabel(series, seriesIndex); label != "" {
		return filepath.Join(root, a, label+" - "+t)
	}
	return filepath.Join(root, a, t)
}

// FileName returns "{author} - {series} {index} - {title}.epub" or
// "{author} - {title}.epub".
func FileName(author, title, series string, seriesIndex *int) string {
	a := sanitizeOr(author, UnknownAuthor)
	t := sanitizeOr(title, UnknownTitle)
	if label := seriesLabel(series, seriesIndex); label != "" {
		return a + " - " + label + " - " + t + ArchiveExt
	}
	return a + " - " + t + ArchiveExt
}

// ArchivePath is Directory joined with FileName.
func ArchivePath(root, author, title, series string, seriesIndex *int) string {
	return filepath.Join(
		Directory(root, author, title, series, seriesIndex),
		FileName(author, title, series, seriesIndex),
	)
}

// BookPath returns the canonical archive path for a catalog record.
func BookPath(root string, b entities.Book) string {
	return ArchivePath(root, b.Author, b.Title, entities.StringValue(b.Series), b.SeriesNumber)
}

// CoverPath is the cover image next to the archive in bookDir.
func CoverPath(bookDir string) string {
	return filepath.Join(bookDir, CoverFileName)
}

// ThumbnailPath is the thumbnail next to the archive in bookDir.
func ThumbnailPath(bookDir string) string {
	return filepath.Join(bookDir, ThumbnailFileName)
}

// Inside reports whether path is root itself or lies below it.
func Inside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// BookCover returns the cover of a catalogued book, or "" when the record
// has none or the file is missing.
func BookCover(b entities.Book) string {
	return existingSibling(b, CoverFileName)
}

// BookThumbnail is BookCover for the thumbnail.
func BookThumbnail(b entities.Book) string {
	return existingSibling(b, ThumbnailFileName)
}

func existingSibling(b entities.Book, name string) string {
	if !b.HasCover || b.EpubPath == "" {
		return ""
	}
	p := filepath.Join(b.Dir(), name)
	if info, err := os.Stat(p); err != nil || info.IsDir() {
		return ""
	}
	return p
}
