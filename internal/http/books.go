package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/epub"
	"github.com/mrlokans/bookshelf/internal/layout"
	"github.com/mrlokans/bookshelf/internal/library"
)

// BookStore defines the catalog queries used by the read endpoints.
type BookStore interface {
	ListBooks() ([]entities.Book, error)
	SearchBooks(query string) ([]entities.Book, error)
	GetBookByID(id uint) (*entities.Book, error)
	ListAuthors() ([]string, error)
	ListSeries() ([]string, error)
}

// BooksController serves the books of the selected library.
type BooksController struct {
	libs          LibraryStore
	maxUploadSize int64
}

func NewBooksController(libs LibraryStore, maxUploadSize int64) *BooksController {
	return &BooksController{libs: libs, maxUploadSize: maxUploadSize}
}

// selected resolves the selected library, responding with an error when
// there is none.
func (bc *BooksController) selected(c *gin.Context) (*library.Coordinator, BookStore, bool) {
	return selectedLibrary(c, bc.libs)
}

func selectedLibrary(c *gin.Context, libs LibraryStore) (*library.Coordinator, BookStore, bool) {
	lib, coord, err := libs.SelectedCoordinator()
	if err != nil {
		respondLibraryError(c, err, "select library")
		return nil, nil, false
	}
	db, err := libs.Database(lib.ID)
	if err != nil {
		respondLibraryError(c, err, "open catalog")
		return nil, nil, false
	}
	return coord, books.NewRepository(db.DB), true
}

// loadBook fetches the book named by the :id parameter.
func loadBook(c *gin.Context, store BookStore) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := store.GetBookByID(id)
	if err != nil {
		respondLibraryError(c, err, "get book")
		return nil, false
	}
	return book, true
}

// List handles GET /api/books
// An optional ?q= narrows the result to books whose title, author or
// series contain the query.
func (bc *BooksController) List(c *gin.Context) {
	_, store, ok := bc.selected(c)
	if !ok {
		return
	}

	var (
		result []entities.Book
		err    error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		result, err = store.SearchBooks(q)
	} else {
		result, err = store.ListBooks()
	}
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	if result == nil {
		result = []entities.Book{}
	}

	c.JSON(http.StatusOK, gin.H{
		"books": result,
		"count": len(result),
	})
}

// Get handles GET /api/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	_, store, ok := bc.selected(c)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, book)
}

// Authors handles GET /api/authors
func (bc *BooksController) Authors(c *gin.Context) {
	_, store, ok := bc.selected(c)
	if !ok {
		return
	}
	authors, err := store.ListAuthors()
	if err != nil {
		respondInternalError(c, err, "list authors")
		return
	}
	if authors == nil {
		authors = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"authors": authors})
}

// Series handles GET /api/series
func (bc *BooksController) Series(c *gin.Context) {
	_, store, ok := bc.selected(c)
	if !ok {
		return
	}
	series, err := store.ListSeries()
	if err != nil {
		respondInternalError(c, err, "list series")
		return
	}
	if series == nil {
		series = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"series": series})
}

// Import handles POST /api/books/import
// Expects a multipart "file" field holding an EPUB archive.
func (bc *BooksController) Import(c *gin.Context) {
	coord, _, ok := bc.selected(c)
	if !ok {
		return
	}

	path, cleanup, ok := bc.receiveUpload(c, "file", layout.ArchiveExt)
	if !ok {
		return
	}
	defer cleanup()

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		respondInternalError(c, err, "detect upload type")
		return
	}
	if !isZipFamily(mtype) {
		respondError(c, http.StatusUnsupportedMediaType, "unsupported_type",
			fmt.Sprintf("expected an EPUB archive, got %s", mtype.String()))
		return
	}

	book, err := coord.Import(path)
	if err != nil {
		respondLibraryError(c, err, "import book")
		return
	}
	respondCreated(c, book)
}

func isZipFamily(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

// UpdateBookRequest carries the descriptive fields of a book. Omitted
// fields keep their stored value. Empty strings clear series, book type and
// description.
type UpdateBookRequest struct {
	Title        *string `json:"title"`
	Author       *string `json:"author"`
	Series       *string `json:"series"`
	SeriesNumber *int    `json:"series_number"`
	Year         *int    `json:"year"`
	BookType     *string `json:"book_type"`
	Description  *string `json:"description"`
}

func (r UpdateBookRequest) apply(book entities.Book) entities.Book {
	if r.Title != nil {
		book.Title = strings.TrimSpace(*r.Title)
	}
	if r.Author != nil {
		book.Author = strings.TrimSpace(*r.Author)
	}
	if r.Series != nil {
		book.Series = entities.StringPtr(strings.TrimSpace(*r.Series))
		if book.Series == nil {
			book.SeriesNumber = nil
		}
	}
	if r.SeriesNumber != nil {
		book.SeriesNumber = entities.IntPtr(*r.SeriesNumber)
	}
	if r.Year != nil {
		book.Year = entities.IntPtr(*r.Year)
	}
	if r.BookType != nil {
		book.BookType = entities.StringPtr(*r.BookType)
	}
	if r.Description != nil {
		book.Description = entities.StringPtr(*r.Description)
	}
	return book
}

// Update handles PUT /api/books/:id
// Changing title, author or series moves the book's files.
func (bc *BooksController) Update(c *gin.Context) {
	coord, store, ok := bc.selected(c)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}

	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.BookType != nil && *req.BookType != "" && !epub.IsBookType(*req.BookType) {
		respondError(c, http.StatusBadRequest, "invalid_book", "unknown book type "+*req.BookType)
		return
	}

	updated, err := coord.Update(req.apply(*book))
	if err != nil {
		respondLibraryError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UpdateCover handles PUT /api/books/:id/cover
// Expects a multipart "cover" field holding a JPEG or PNG image.
func (bc *BooksController) UpdateCover(c *gin.Context) {
	coord, store, ok := bc.selected(c)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}

	path, cleanup, ok := bc.receiveUpload(c, "cover", "")
	if !ok {
		return
	}
	defer cleanup()

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		respondInternalError(c, err, "detect upload type")
		return
	}
	if !mtype.Is("image/jpeg") && !mtype.Is("image/png") {
		respondError(c, http.StatusUnsupportedMediaType, "unsupported_type",
			fmt.Sprintf("expected a JPEG or PNG image, got %s", mtype.String()))
		return
	}

	updated, err := coord.UpdateCover(*book, path)
	if err != nil {
		respondLibraryError(c, err, "update cover")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	coord, store, ok := bc.selected(c)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}

	if err := coord.Delete(*book); err != nil {
		respondLibraryError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}

// Sync handles POST /api/books/:id/sync
// Writes the catalog record back into the book's archive.
func (bc *BooksController) Sync(c *gin.Context) {
	coord, store, ok := bc.selected(c)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}

	if err := coord.SyncMetadataToContainer(*book); err != nil {
		respondLibraryError(c, err, "sync metadata")
		return
	}
	respondSuccess(c, "metadata written to archive")
}

// Download handles GET /api/books/:id/download
func (bc *BooksController) Download(c *gin.Context) {
	_, store, ok := bc.selected(c)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}

	if _, err := os.Stat(book.EpubPath); err != nil {
		respondNotFound(c, "archive")
		return
	}
	c.FileAttachment(book.EpubPath, filepath.Base(book.EpubPath))
}

// receiveUpload stores the multipart field in a temporary directory under
// its original base name. ext replaces the extension when set. cleanup
// removes the directory.
func (bc *BooksController) receiveUpload(c *gin.Context, field, ext string) (string, func(), bool) {
	if bc.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bc.maxUploadSize)
	}

	header, err := c.FormFile(field)
	if err != nil {
		respondBadRequest(c, field+" file not provided")
		return "", nil, false
	}
	if bc.maxUploadSize > 0 && header.Size > bc.maxUploadSize {
		respondError(c, http.StatusRequestEntityTooLarge, "too_large",
			fmt.Sprintf("file too large (max %d MB)", bc.maxUploadSize/(1024*1024)))
		return "", nil, false
	}

	dir, err := os.MkdirTemp("", "bookshelf-upload-")
	if err != nil {
		respondInternalError(c, err, "create upload dir")
		return "", nil, false
	}
	cleanup := func() { os.RemoveAll(dir) }

	name := filepath.Base(filepath.Clean("/" + header.Filename))
	if name == "/" || name == "." {
		name = "upload"
	}
	if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ext
	}

	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(header, path); err != nil {
		cleanup()
		respondInternalError(c, err, "save upload")
		return "", nil, false
	}
	return path, cleanup, true
}
