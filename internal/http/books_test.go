package http

import (
	"net/http"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/epub"
	"github.com/mrlokans/bookshelf/internal/epub/epubtest"
)

type booksResponse struct {
	Books []entities.Book `json:"books"`
	Count int             `json:"count"`
}

func bookURL(b entities.Book, suffix string) string {
	return "/api/books/" + strconv.FormatUint(uint64(b.ID), 10) + suffix
}

func TestBooksController_Import(t *testing.T) {
	s := setupServer(t, true)

	book := s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "Dune Chronicles", 1), "dune.epub")
	assert.NotZero(t, book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, filepath.Join(s.lib.Path, "Frank Herbert", "Dune Chronicles 1 - Dune"), book.Dir())
	assert.FileExists(t, book.EpubPath)

	t.Run("title falls back to the uploaded file name", func(t *testing.T) {
		untitled := s.importBook(t, epubtest.Archive{Metadata: `<dc:creator>Anon Writer</dc:creator>`}, "My Notes.epub")
		assert.Equal(t, "My Notes", untitled.Title)
	})

	t.Run("rejects non archives", func(t *testing.T) {
		w := s.upload(t, http.MethodPost, "/api/books/import", "file", "plain.epub", []byte("just some text"))
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("rejects broken archives", func(t *testing.T) {
		path := epubtest.Archive{NoOPF: true}.Write(t, filepath.Join(t.TempDir(), "broken.epub"))
		w := s.upload(t, http.MethodPost, "/api/books/import", "file", "broken.epub", mustRead(t, path))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "format_error", decode[ErrorResponse](t, w).Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		w := s.upload(t, http.MethodPost, "/api/books/import", "other", "x.epub", []byte("x"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_ListAndSearch(t *testing.T) {
	s := setupServer(t, true)
	s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "Dune Chronicles", 1), "dune.epub")
	s.importBook(t, epubtest.Book("Emma", "Jane Austen", "", 0), "emma.epub")

	w := s.get(t, "/api/books")
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[booksResponse](t, w)
	assert.Equal(t, 2, all.Count)
	assert.Equal(t, "Emma", all.Books[1].Title)

	found := decode[booksResponse](t, s.get(t, "/api/books?q=herb"))
	require.Equal(t, 1, found.Count)
	assert.Equal(t, "Dune", found.Books[0].Title)

	none := decode[booksResponse](t, s.get(t, "/api/books?q=zzz"))
	assert.Equal(t, 0, none.Count)
	assert.NotNil(t, none.Books)

	authors := decode[map[string][]string](t, s.get(t, "/api/authors"))
	assert.Equal(t, []string{"Frank Herbert", "Jane Austen"}, authors["authors"])

	series := decode[map[string][]string](t, s.get(t, "/api/series"))
	assert.Equal(t, []string{"Dune Chronicles"}, series["series"])
}

func TestBooksController_Get(t *testing.T) {
	s := setupServer(t, true)
	book := s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "", 0), "dune.epub")

	w := s.get(t, bookURL(book, ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, book.EpubPath, decode[entities.Book](t, w).EpubPath)

	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/books/999").Code)
	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/books/abc").Code)
	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/books/0").Code)
}

func TestBooksController_NoLibrarySelected(t *testing.T) {
	s := setupServer(t, false)

	w := s.get(t, "/api/books")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no_library", decode[ErrorResponse](t, w).Code)
}

func TestBooksController_Update(t *testing.T) {
	s := setupServer(t, true)
	book := s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "", 0), "dune.epub")
	oldPath := book.EpubPath

	title := "Dune Messiah"
	series := "Dune Chronicles"
	number := 2
	year := 1969
	bookType := "Fiction"
	w := s.sendJSON(t, http.MethodPut, bookURL(book, ""), UpdateBookRequest{
		Title:        &title,
		Series:       &series,
		SeriesNumber: &number,
		Year:         &year,
		BookType:     &bookType,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decode[entities.Book](t, w)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "Frank Herbert", updated.Author)
	assert.Equal(t, filepath.Join(s.lib.Path, "Frank Herbert", "Dune Chronicles 2 - Dune Messiah"), updated.Dir())
	assert.FileExists(t, updated.EpubPath)
	assert.NoFileExists(t, oldPath)
	require.NotNil(t, updated.Year)
	assert.Equal(t, 1969, *updated.Year)

	t.Run("clearing the series drops its number", func(t *testing.T) {
		empty := ""
		w := s.sendJSON(t, http.MethodPut, bookURL(book, ""), UpdateBookRequest{Series: &empty})
		require.Equal(t, http.StatusOK, w.Code)
		cleared := decode[entities.Book](t, w)
		assert.Nil(t, cleared.Series)
		assert.Nil(t, cleared.SeriesNumber)
	})

	t.Run("empty title is rejected", func(t *testing.T) {
		empty := ""
		w := s.sendJSON(t, http.MethodPut, bookURL(book, ""), UpdateBookRequest{Title: &empty})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_book", decode[ErrorResponse](t, w).Code)
	})

	t.Run("unknown book type is rejected", func(t *testing.T) {
		bad := "Pamphlet"
		w := s.sendJSON(t, http.MethodPut, bookURL(book, ""), UpdateBookRequest{BookType: &bad})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("collision with another book", func(t *testing.T) {
		other := s.importBook(t, epubtest.Book("Emma", "Jane Austen", "", 0), "emma.epub")
		title := "Dune Messiah"
		author := "Frank Herbert"
		w := s.sendJSON(t, http.MethodPut, bookURL(other, ""), UpdateBookRequest{Title: &title, Author: &author})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "path_conflict", decode[ErrorResponse](t, w).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := s.sendJSON(t, http.MethodPut, bookURL(book, ""), "not an object")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_UpdateCoverAndServe(t *testing.T) {
	s := setupServer(t, true)
	book := s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "", 0), "dune.epub")
	assert.False(t, book.HasCover)

	assert.Equal(t, http.StatusNotFound, s.get(t, bookURL(book, "/cover")).Code)

	w := s.upload(t, http.MethodPut, bookURL(book, "/cover"), "cover", "front.png", epubtest.PNG(t, 60, 90))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[entities.Book](t, w).HasCover)

	w = s.get(t, bookURL(book, "/cover"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	w = s.get(t, bookURL(book, "/thumbnail"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())

	t.Run("non image upload", func(t *testing.T) {
		w := s.upload(t, http.MethodPut, bookURL(book, "/cover"), "cover", "front.png", []byte("text"))
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})
}

func TestBooksController_ImportWithCover(t *testing.T) {
	s := setupServer(t, true)
	a := epubtest.Book("Covered", "Jane Doe", "", 0).WithCover("cover.jpg", epubtest.JPEG(t, 400, 600))
	book := s.importBook(t, a, "covered.epub")
	assert.True(t, book.HasCover)
	assert.Equal(t, http.StatusOK, s.get(t, bookURL(book, "/thumbnail")).Code)
}

func TestBooksController_SyncDownloadDelete(t *testing.T) {
	s := setupServer(t, true)
	book := s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "", 0), "dune.epub")

	year := 1965
	w := s.sendJSON(t, http.MethodPut, bookURL(book, ""), UpdateBookRequest{Year: &year})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.sendJSON(t, http.MethodPost, bookURL(book, "/sync"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m, err := epub.ReadMetadata(book.EpubPath)
	require.NoError(t, err)
	require.NotNil(t, m.Year)
	assert.Equal(t, 1965, *m.Year)

	w = s.get(t, bookURL(book, "/download"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), filepath.Base(book.EpubPath))
	assert.Equal(t, mustRead(t, book.EpubPath), w.Body.Bytes())

	req, _ := http.NewRequest(http.MethodDelete, bookURL(book, ""), nil)
	w = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoDirExists(t, book.Dir())
	assert.NoDirExists(t, filepath.Dir(book.Dir()))
	assert.Equal(t, http.StatusNotFound, s.get(t, bookURL(book, "")).Code)

	w = s.do(t, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
