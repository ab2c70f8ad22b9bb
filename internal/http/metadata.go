package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/metadata"
)

const metadataTimeout = 30 * time.Second

// MetadataController looks up metadata candidates for a book.
type MetadataController struct {
	libs     LibraryStore
	enricher *metadata.Enricher
}

// NewMetadataController creates a new MetadataController.
func NewMetadataController(libs LibraryStore, enricher *metadata.Enricher) *MetadataController {
	return &MetadataController{libs: libs, enricher: enricher}
}

// CandidatesResponse lists provider results and the consensus drawn from them.
type CandidatesResponse struct {
	Candidates []metadata.Candidate `json:"candidates"`
	Suggestion metadata.Suggestion  `json:"suggestion"`
}

// EnrichBookResponse is the response for an enrichment operation.
type EnrichBookResponse struct {
	Success       bool     `json:"success"`
	Book          any      `json:"book,omitempty"`
	FieldsUpdated []string `json:"fields_updated"`
	Candidates    int      `json:"candidates"`
}

// Candidates handles GET /api/books/:id/candidates
// Nothing is written; the caller decides what to apply.
func (mc *MetadataController) Candidates(c *gin.Context) {
	_, store, ok := selectedLibrary(c, mc.libs)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), metadataTimeout)
	defer cancel()

	candidates, suggestion, err := mc.enricher.Suggest(ctx, *book)
	if err != nil {
		respondError(c, http.StatusBadGateway, "provider_error", err.Error())
		return
	}
	if candidates == nil {
		candidates = []metadata.Candidate{}
	}
	c.JSON(http.StatusOK, CandidatesResponse{Candidates: candidates, Suggestion: suggestion})
}

// Enrich handles POST /api/books/:id/enrich
// Applies the consensus of the provider results to the book.
func (mc *MetadataController) Enrich(c *gin.Context) {
	coord, store, ok := selectedLibrary(c, mc.libs)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), metadataTimeout)
	defer cancel()

	result, err := mc.enricher.EnrichBook(ctx, coord, *book)
	if errors.Is(err, metadata.ErrSearchFailed) {
		respondError(c, http.StatusBadGateway, "provider_error", err.Error())
		return
	}
	if err != nil {
		respondLibraryError(c, err, "enrich book")
		return
	}

	fields := result.FieldsUpdated
	if fields == nil {
		fields = []string{}
	}
	c.JSON(http.StatusOK, EnrichBookResponse{
		Success:       true,
		Book:          result.Book,
		FieldsUpdated: fields,
		Candidates:    result.Candidates,
	})
}
