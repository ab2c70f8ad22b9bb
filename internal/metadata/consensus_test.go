package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func year(y int) *int { return &y }

func TestConsensus(t *testing.T) {
	candidates := []Candidate{
		{Title: "Dune", Authors: []string{"Frank Herbert"}, Description: "Short.", FirstPublishedYear: year(1966)},
		{Title: "Dune (Deluxe)", Authors: []string{"Herbert, Frank"}, Description: "A much longer description of another edition."},
		{Title: "Dune", Authors: []string{"Frank Herbert"}, Description: "A longer one.", FirstPublishedYear: year(1965)},
		{Title: "", Authors: nil},
	}

	s := Consensus(candidates)
	assert.Equal(t, "Dune", s.Title)
	assert.Equal(t, "Frank Herbert", s.Author)
	assert.Equal(t, "A longer one.", s.Description, "only descriptions of the winning title count")
	require.NotNil(t, s.Year)
	assert.Equal(t, 1965, *s.Year)
}

func TestConsensus_TiesGoToFirstSeen(t *testing.T) {
	s := Consensus([]Candidate{
		{Title: "A"}, {Title: "B"}, {Title: "B"}, {Title: "A"},
	})
	assert.Equal(t, "A", s.Title)
}

func TestConsensus_Empty(t *testing.T) {
	assert.Equal(t, Suggestion{}, Consensus(nil))
}

func TestApply(t *testing.T) {
	book := entities.Book{ID: 1, Title: "dune", Author: "Frank Herbert", Year: year(2005)}

	out, fields := Apply(book, Suggestion{Title: "Dune", Author: "Frank Herbert", Description: "Desert.", Year: year(1965)})
	assert.Equal(t, []string{"title", "description", "year"}, fields)
	assert.Equal(t, "Dune", out.Title)
	assert.Equal(t, "Desert.", entities.StringValue(out.Description))
	assert.Equal(t, 1965, *out.Year)
	assert.Equal(t, 2005, *book.Year, "input must not be modified")

	_, fields = Apply(out, Suggestion{Title: "Dune"})
	assert.Empty(t, fields)
}

type stubProvider struct {
	name       string
	candidates []Candidate
	err        error
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) Search(context.Context, string, string) ([]Candidate, error) {
	return s.candidates, s.err
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Search(context.Background(), "A", "T")
	assert.ErrorIs(t, err, ErrNoProviders)

	reg.Register(stubProvider{name: "one", candidates: []Candidate{{Title: "T"}}})
	reg.Register(stubProvider{name: "two", err: errors.New("down")})
	reg.Register(stubProvider{name: "ONE", candidates: []Candidate{{Title: "T2"}, {Title: "T3", Source: "custom"}}})
	assert.Equal(t, []string{"ONE", "two"}, reg.Providers())

	candidates, err := reg.Search(context.Background(), "A", "T")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "ONE", candidates[0].Source)
	assert.Equal(t, "custom", candidates[1].Source)
}

func TestRegistry_AllFail(t *testing.T) {
	reg := NewRegistry(stubProvider{name: "one", err: errors.New("down")})
	_, err := reg.Search(context.Background(), "A", "T")
	assert.ErrorContains(t, err, "one: down")
}

type recordingUpdater struct {
	saved []entities.Book
	err   error
}

func (r *recordingUpdater) Update(book entities.Book) (entities.Book, error) {
	if r.err != nil {
		return entities.Book{}, r.err
	}
	r.saved = append(r.saved, book)
	return book, nil
}

func TestEnrichBook(t *testing.T) {
	enricher := NewEnricher(NewRegistry(stubProvider{name: "s", candidates: []Candidate{
		{Title: "Dune", Authors: []string{"Frank Herbert"}, FirstPublishedYear: year(1965)},
	}}))
	book := entities.Book{ID: 7, Title: "Dune", Author: "Frank Herbert"}

	updater := &recordingUpdater{}
	result, err := enricher.EnrichBook(context.Background(), updater, book)
	require.NoError(t, err)
	assert.Equal(t, []string{"year"}, result.FieldsUpdated)
	assert.Equal(t, 1, result.Candidates)
	require.Len(t, updater.saved, 1)
	assert.Equal(t, 1965, *updater.saved[0].Year)

	result, err = enricher.EnrichBook(context.Background(), updater, result.Book)
	require.NoError(t, err)
	assert.Empty(t, result.FieldsUpdated)
	assert.Len(t, updater.saved, 1, "unchanged books are not saved")
}

func TestEnrichBook_Errors(t *testing.T) {
	failing := NewEnricher(NewRegistry(stubProvider{name: "s", err: errors.New("down")}))
	_, err := failing.EnrichBook(context.Background(), &recordingUpdater{}, entities.Book{Title: "T", Author: "A"})
	assert.Error(t, err)

	enricher := NewEnricher(NewRegistry(stubProvider{name: "s", candidates: []Candidate{{Title: "New"}}}))
	_, err = enricher.EnrichBook(context.Background(), &recordingUpdater{err: errors.New("locked")}, entities.Book{Title: "T", Author: "A"})
	assert.ErrorContains(t, err, "locked")
}
