// Package library keeps the files of a library root, the archives' own
// metadata and the catalog in agreement.
//
// Every mutation goes through a Coordinator: it copies or moves files into
// the canonical layout first and writes the catalog second. There is no
// transaction spanning both stores. When the second step fails the first is
// undone on a best-effort basis; Delete cannot be undone once the files are
// gone.
//
// # Usage
//
//	db, err := database.OpenCatalog(root)
//	pipeline, err := covers.NewPipeline("")
//	coord, err := library.NewCoordinator(root, books.NewRepository(db.DB), pipeline)
//	book, err := coord.Import("/downloads/dune.epub")
package library

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/epub"
	"github.com/mrlokans/bookshelf/internal/layout"
)

// Coordinator performs book mutations for one library root. Mutations are
// serialized; reads go straight to the catalog.
type Coordinator struct {
	root     string
	catalog  Catalog
	covers   CoverProcessor
	validate *validator.Validate

	mu sync.Mutex
}

// NewCoordinator creates the library root if needed and returns a
// coordinator for it.
func NewCoordinator(root string, catalog Catalog, covers CoverProcessor) (*Coordinator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, ioError("resolve", root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, ioError("create", abs, err)
	}
	return &Coordinator{
		root:     abs,
		catalog:  catalog,
		covers:   covers,
		validate: validator.New(),
	}, nil
}

// Root returns the absolute library root.
func (c *Coordinator) Root() string {
	return c.root
}

// Catalog returns the store the coordinator writes to.
func (c *Coordinator) Catalog() Catalog {
	return c.catalog
}

// Import copies the archive at path into the library and records it.
//
// A missing title falls back to the file name and a missing author to
// layout.UnknownAuthor. When a book with the same title, author, series and
// series number is already catalogued the title gets a " (n)" suffix. A
// cover that cannot be processed leaves HasCover false without failing the
// import.
func (c *Coordinator) Import(path string) (entities.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := epub.Open(path)
	if err != nil {
		var fe *epub.FormatError
		if errors.As(err, &fe) {
			return entities.Book{}, err
		}
		return entities.Book{}, ioError("open", path, err)
	}
	defer src.Close()

	book := recordFromMetadata(path, src.Metadata)
	if err := c.disambiguate(&book); err != nil {
		return entities.Book{}, err
	}

	target := layout.BookPath(c.root, book)
	if _, err := os.Stat(target); err == nil {
		return entities.Book{}, fmt.Errorf("import %s: %w: %s", path, ErrPathConflict, target)
	}

	bookDir := filepath.Dir(target)
	createdDir := !dirExists(bookDir)
	if err := os.MkdirAll(bookDir, 0755); err != nil {
		return entities.Book{}, ioError("create", bookDir, err)
	}
	if err := copyFile(path, target); err != nil {
		c.discardImport(bookDir, target, createdDir)
		return entities.Book{}, ioError("copy", path, err)
	}
	book.EpubPath = target

	if cover := src.Metadata.CoverPath; cover != "" {
		if err := c.covers.Apply(cover, bookDir); err != nil {
			log.Printf("[IMPORT] %s: cover skipped: %v", filepath.Base(path), err)
		} else {
			book.HasCover = true
		}
	}

	if err := c.catalog.Insert(&book); err != nil {
		c.discardImport(bookDir, target, createdDir)
		return entities.Book{}, catalogError("insert "+book.Title, err)
	}

	log.Printf("[IMPORT] %q by %s -> %s", book.Title, book.Author, target)
	return book, nil
}

func recordFromMetadata(path string, m epub.Metadata) entities.Book {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	author := m.Author()
	if author == "" {
		author = layout.UnknownAuthor
	}

	book := entities.Book{
		Title:        title,
		Author:       author,
		BookType:     entities.StringPtr(m.Type),
		Series:       entities.StringPtr(strings.TrimSpace(m.Series)),
		SeriesNumber: m.SeriesIndex,
		Year:         m.Year,
		Description:  entities.StringPtr(DescriptionToText(m.Description)),
	}
	return book.Clone()
}

// disambiguate appends " (1)", " (2)", ... to the title until no catalogued
// book shares its title, author, series and series number and its archive
// path is free. Titles too long to keep the suffix after sanitizing are
// shortened so the suffix reaches the path.
func (c *Coordinator) disambiguate(book *entities.Book) error {
	base := book.Title
	for n := 1; ; n++ {
		exists, err := c.catalog.Exists(book.Title, book.Author, book.Series, book.SeriesNumber)
		if err != nil {
			return catalogError("check duplicate "+book.Title, err)
		}
		if !exists && !fileExists(layout.BookPath(c.root, *book)) {
			return nil
		}
		book.Title = suffixedTitle(base, n)
	}
}

func suffixedTitle(base string, n int) string {
	suffix := fmt.Sprintf(" (%d)", n)
	keep := layout.MaxComponentLength - len(suffix)
	if runes := []rune(base); len(runes) > keep {
		base = strings.TrimRightFunc(string(runes[:keep]), func(r rune) bool {
			return r == '.' || unicode.IsSpace(r)
		})
	}
	return base + suffix
}

// discardImport removes what a failed import wrote.
func (c *Coordinator) discardImport(bookDir, archive string, createdDir bool) {
	var err error
	if createdDir {
		err = os.RemoveAll(bookDir)
	} else {
		err = os.Remove(archive)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[IMPORT] cleanup of %s failed: %v", bookDir, err)
		return
	}
	if err := pruneBookDir(c.root, bookDir); err != nil {
		log.Printf("[IMPORT] cleanup of %s failed: %v", bookDir, err)
	}
}

// Update persists an edited snapshot of a catalogued book. When the edit
// changes the canonical path, the archive and its sibling files move to the
// new directory and the emptied book and author directories are removed.
// If the catalog write fails the files are moved back.
func (c *Coordinator) Update(book entities.Book) (entities.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate.Struct(book); err != nil {
		return entities.Book{}, fmt.Errorf("%w: %w", ErrInvalidBook, err)
	}
	stored, err := c.stored(book.ID)
	if err != nil {
		return entities.Book{}, err
	}

	updated := book.Clone()
	updated.AddedOn = stored.AddedOn
	oldPath := stored.EpubPath
	newPath := layout.BookPath(c.root, updated)

	var done []moved
	if newPath != oldPath {
		if !fileExists(oldPath) {
			return entities.Book{}, fmt.Errorf("update %d: %w: archive %s is missing", book.ID, ErrConsistency, oldPath)
		}
		if _, err := os.Stat(newPath); err == nil {
			return entities.Book{}, fmt.Errorf("update %d: %w: %s", book.ID, ErrPathConflict, newPath)
		}

		newDir := filepath.Dir(newPath)
		if err := os.MkdirAll(newDir, 0755); err != nil {
			return entities.Book{}, ioError("create", newDir, err)
		}
		done, err = moveBookFiles(oldPath, newPath)
		if err != nil {
			if uerr := undoMoves(done); uerr != nil {
				return entities.Book{}, fmt.Errorf("move %s: %w: %w (restore failed: %v)", oldPath, ErrConsistency, err, uerr)
			}
			c.prune(newDir)
			return entities.Book{}, ioError("move", oldPath, err)
		}
		c.prune(stored.Dir())
	}

	updated.EpubPath = newPath
	updated.HasCover = fileExists(layout.CoverPath(updated.Dir()))

	if err := c.catalog.Update(&updated); err != nil {
		if len(done) > 0 {
			if uerr := undoMoves(done); uerr != nil {
				return entities.Book{}, fmt.Errorf("update %d: %w: %w (files left at %s: %v)", book.ID, ErrConsistency, err, newPath, uerr)
			}
			c.prune(updated.Dir())
		}
		return entities.Book{}, catalogError(fmt.Sprintf("update %d", book.ID), err)
	}

	if newPath != oldPath {
		log.Printf("[LIBRARY] moved %s -> %s", oldPath, newPath)
	}
	return updated, nil
}

// UpdateCover installs the image at imagePath as the book's cover and
// thumbnail and marks the record as having a cover. The book directory must
// already exist.
func (c *Coordinator) UpdateCover(book entities.Book, imagePath string) (entities.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.stored(book.ID)
	if err != nil {
		return entities.Book{}, err
	}
	dir := stored.Dir()
	if !dirExists(dir) {
		return entities.Book{}, fmt.Errorf("update cover %d: %w: directory %s is missing", book.ID, ErrConsistency, dir)
	}

	if err := c.covers.Apply(imagePath, dir); err != nil {
		return entities.Book{}, fmt.Errorf("update cover %d: %w: %w", book.ID, ErrCoverProcessing, err)
	}

	updated := stored.Clone()
	updated.HasCover = true
	if err := c.catalog.Update(&updated); err != nil {
		return entities.Book{}, catalogError(fmt.Sprintf("update cover %d", book.ID), err)
	}
	return updated, nil
}

// Delete removes the book's directory, its author directory when that is
// left empty, and finally the catalog row.
func (c *Coordinator) Delete(book entities.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.stored(book.ID)
	if err != nil {
		return err
	}
	dir := stored.Dir()
	if !c.isBookDir(dir) {
		return fmt.Errorf("delete %d: %w: %s is not a book directory of %s", book.ID, ErrConsistency, dir, c.root)
	}

	if dirExists(dir) {
		if err := os.RemoveAll(dir); err != nil {
			return ioError("delete", dir, err)
		}
		c.prune(dir)
	} else {
		log.Printf("[LIBRARY] delete %d: directory %s already gone", book.ID, dir)
	}

	if err := c.catalog.Delete(stored.ID); err != nil {
		return catalogError(fmt.Sprintf("delete %d", book.ID), err)
	}
	log.Printf("[LIBRARY] deleted %q by %s", stored.Title, stored.Author)
	return nil
}

// SyncMetadataToContainer writes the catalogued record's descriptive fields
// into its archive. The creator is replaced by the record's author with role
// "aut". Only the stored record is trusted; book identifies it by ID.
func (c *Coordinator) SyncMetadataToContainer(book entities.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	book, err := c.stored(book.ID)
	if err != nil {
		return err
	}
	if !layout.Inside(c.root, book.EpubPath) {
		return fmt.Errorf("sync %d: %w: %s is outside %s", book.ID, ErrConsistency, book.EpubPath, c.root)
	}
	if !fileExists(book.EpubPath) {
		return fmt.Errorf("sync %d: %w: archive %s is missing", book.ID, ErrConsistency, book.EpubPath)
	}

	archive, err := epub.Open(book.EpubPath)
	if err != nil {
		var fe *epub.FormatError
		if errors.As(err, &fe) {
			return err
		}
		return ioError("open", book.EpubPath, err)
	}
	defer archive.Close()

	m := &archive.Metadata
	m.Title = book.Title
	m.Creators = []epub.Contributor{{
		Name:   book.Author,
		FileAs: epub.AuthorNameToFileAs(book.Author),
		Role:   epub.RoleAuthor,
	}}
	m.Type = entities.StringValue(book.BookType)
	m.Year = book.Year
	if book.Year == nil {
		m.Date = ""
	}
	m.Series = entities.StringValue(book.Series)
	m.SeriesIndex = book.SeriesNumber
	m.Description = entities.StringValue(book.Description)

	if err := archive.Save(); err != nil {
		return ioError("save", book.EpubPath, err)
	}
	return nil
}

// stored loads the catalogued version of the book with id.
func (c *Coordinator) stored(id uint) (entities.Book, error) {
	if id == 0 {
		return entities.Book{}, fmt.Errorf("%w: book has no id", ErrInvalidBook)
	}
	b, err := c.catalog.GetBookByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Book{}, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return entities.Book{}, catalogError(fmt.Sprintf("load %d", id), err)
	}
	return *b, nil
}

// isBookDir reports whether dir sits exactly at root/author/book.
func (c *Coordinator) isBookDir(dir string) bool {
	dir = filepath.Clean(dir)
	return layout.Inside(c.root, dir) && filepath.Dir(filepath.Dir(dir)) == c.root
}

func (c *Coordinator) prune(bookDir string) {
	if !c.isBookDir(bookDir) {
		return
	}
	if err := pruneBookDir(c.root, bookDir); err != nil {
		log.Printf("[LIBRARY] prune %s: %v", bookDir, err)
	}
}
