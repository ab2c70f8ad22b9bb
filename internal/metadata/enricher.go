package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Searcher finds candidates for a book. Implemented by Registry.
type Searcher interface {
	Search(ctx context.Context, author, title string) ([]Candidate, error)
}

// BookUpdater persists an edited book. Implemented by library.Coordinator,
// which also moves the files when the title or author changes.
type BookUpdater interface {
	Update(book entities.Book) (entities.Book, error)
}

// EnrichmentResult contains the result of an enrichment operation.
type EnrichmentResult struct {
	Book          entities.Book `json:"book"`
	Suggestion    Suggestion    `json:"suggestion"`
	Candidates    int           `json:"candidates"`
	FieldsUpdated []string      `json:"fields_updated"`
}

// ErrSearchFailed wraps provider failures during a search.
var ErrSearchFailed = errors.New("metadata search failed")

// Enricher fills catalog records from remote metadata.
type Enricher struct {
	searcher Searcher
}

// NewEnricher creates a new Enricher backed by searcher.
func NewEnricher(searcher Searcher) *Enricher {
	return &Enricher{searcher: searcher}
}

// Suggest searches for book and returns the raw candidates together with
// their consensus.
func (e *Enricher) Suggest(ctx context.Context, book entities.Book) ([]Candidate, Suggestion, error) {
	candidates, err := e.searcher.Search(ctx, book.Author, book.Title)
	if err != nil {
		return nil, Suggestion{}, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	return candidates, Consensus(candidates), nil
}

// EnrichBook applies the consensus of the search results to book and saves
// it through updater. Nothing is written when no field changes.
func (e *Enricher) EnrichBook(ctx context.Context, updater BookUpdater, book entities.Book) (*EnrichmentResult, error) {
	candidates, suggestion, err := e.Suggest(ctx, book)
	if err != nil {
		return nil, err
	}

	result := &EnrichmentResult{
		Book:       book,
		Suggestion: suggestion,
		Candidates: len(candidates),
	}

	enriched, fieldsUpdated := Apply(book, suggestion)
	if len(fieldsUpdated) == 0 {
		return result, nil
	}

	saved, err := updater.Update(enriched)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	result.Book = saved
	result.FieldsUpdated = fieldsUpdated
	return result, nil
}
