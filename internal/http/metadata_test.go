package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/epub/epubtest"
	"github.com/mrlokans/bookshelf/internal/metadata"
)

func TestMetadataController_Candidates(t *testing.T) {
	s := setupServer(t, true)
	book := s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "", 0), "dune.epub")

	w := s.get(t, bookURL(book, "/candidates"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	response := decode[CandidatesResponse](t, w)
	require.Len(t, response.Candidates, 1)
	assert.Equal(t, "stub", response.Candidates[0].Source)
	assert.Equal(t, "Dune", response.Suggestion.Title)
	require.NotNil(t, response.Suggestion.Year)
	assert.Equal(t, 1965, *response.Suggestion.Year)

	stored := decode[entities.Book](t, s.get(t, bookURL(book, "")))
	assert.Nil(t, stored.Year, "candidates must not write")
}

func TestMetadataController_Enrich(t *testing.T) {
	s := setupServer(t, true)
	book := s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "", 0), "dune.epub")

	w := s.sendJSON(t, http.MethodPost, bookURL(book, "/enrich"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	response := decode[EnrichBookResponse](t, w)
	assert.True(t, response.Success)
	assert.Equal(t, 1, response.Candidates)
	assert.Equal(t, []string{"description", "year"}, response.FieldsUpdated)

	stored := decode[entities.Book](t, s.get(t, bookURL(book, "")))
	require.NotNil(t, stored.Year)
	assert.Equal(t, 1965, *stored.Year)
	assert.Equal(t, "Found remotely.", entities.StringValue(stored.Description))

	w = s.sendJSON(t, http.MethodPost, bookURL(book, "/enrich"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[EnrichBookResponse](t, w).FieldsUpdated)
}

type failingProvider struct{}

func (failingProvider) Name() string { return "down" }

func (failingProvider) Search(context.Context, string, string) ([]metadata.Candidate, error) {
	return nil, errors.New("service unavailable")
}

func TestMetadataController_ProviderFailure(t *testing.T) {
	s := setupServer(t, true)
	book := s.importBook(t, epubtest.Book("Dune", "Frank Herbert", "", 0), "dune.epub")

	controller := NewMetadataController(s.reg, metadata.NewEnricher(metadata.NewRegistry(failingProvider{})))
	router := gin.New()
	router.GET("/api/books/:id/candidates", controller.Candidates)
	router.POST("/api/books/:id/enrich", controller.Enrich)
	s.router = router

	w := s.get(t, bookURL(book, "/candidates"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "provider_error", decode[ErrorResponse](t, w).Code)

	w = s.sendJSON(t, http.MethodPost, bookURL(book, "/enrich"), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
