package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/epub/epubtest"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/registry"
)

type testServer struct {
	router *gin.Engine
	reg    *registry.Registry
	lib    entities.Library
	queue  *fakeQueue
	dir    string
}

// setupServer builds a router over a fresh registry. With withLibrary a
// library is registered and selected.
func setupServer(t *testing.T, withLibrary bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	reg, err := registry.Load(filepath.Join(dir, "libraryState.json"), database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	s := &testServer{reg: reg, queue: &fakeQueue{}, dir: dir}
	if withLibrary {
		s.lib, err = reg.Add("Main", filepath.Join(dir, "books"))
		require.NoError(t, err)
	}

	s.router = NewRouter(RouterConfig{
		Libraries: reg,
		Tasks:     s.queue,
		Enricher:  metadata.NewEnricher(metadata.NewRegistry(stubProvider{})),
		Version:   "test",
	})
	return s
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(t *testing.T, url string) *httptest.ResponseRecorder {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	return s.do(t, req)
}

func (s *testServer) sendJSON(t *testing.T, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, _ := http.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func (s *testServer) upload(t *testing.T, method, url, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(t, req)
}

// importBook uploads a generated archive and returns the created record.
func (s *testServer) importBook(t *testing.T, a epubtest.Archive, filename string) entities.Book {
	t.Helper()
	path := a.Write(t, filepath.Join(t.TempDir(), filename))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	w := s.upload(t, http.MethodPost, "/api/books/import", "file", filename, data)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var book entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
	return book
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Search(_ context.Context, author, title string) ([]metadata.Candidate, error) {
	year := 1965
	return []metadata.Candidate{
		{Title: title, Authors: []string{author}, Description: "Found remotely.", FirstPublishedYear: &year},
	}, nil
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
