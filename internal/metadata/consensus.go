package metadata

import (
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Suggestion is the merged view of a set of candidates. Empty fields mean
// the candidates had nothing to offer.
type Suggestion struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Year        *int   `json:"year,omitempty"`
}

// Consensus picks the most common title and author, the longest description
// among candidates carrying the winning title, and the earliest first
// publication year. Ties go to the value seen first.
func Consensus(candidates []Candidate) Suggestion {
	var s Suggestion
	if len(candidates) == 0 {
		return s
	}

	s.Title = mostCommon(candidates, func(c Candidate) string { return c.Title })
	s.Author = mostCommon(candidates, Candidate.Author)

	for _, c := range candidates {
		if c.Title == s.Title && len(c.Description) > len(s.Description) {
			s.Description = c.Description
		}
		if y := c.FirstPublishedYear; y != nil && (s.Year == nil || *y < *s.Year) {
			year := *y
			s.Year = &year
		}
	}
	return s
}

func mostCommon(candidates []Candidate, key func(Candidate) string) string {
	counts := make(map[string]int)
	for _, c := range candidates {
		if k := key(c); k != "" {
			counts[k]++
		}
	}

	var best string
	for _, c := range candidates {
		if k := key(c); k != "" && counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

// Apply copies the non-empty fields of s onto a copy of book and reports
// which fields changed.
func Apply(book entities.Book, s Suggestion) (entities.Book, []string) {
	out := book.Clone()
	var fieldsUpdated []string

	if s.Title != "" && s.Title != out.Title {
		out.Title = s.Title
		fieldsUpdated = append(fieldsUpdated, "title")
	}
	if s.Author != "" && s.Author != out.Author {
		out.Author = s.Author
		fieldsUpdated = append(fieldsUpdated, "author")
	}
	if s.Description != "" && s.Description != entities.StringValue(out.Description) {
		out.Description = entities.StringPtr(s.Description)
		fieldsUpdated = append(fieldsUpdated, "description")
	}
	if s.Year != nil && (out.Year == nil || *out.Year != *s.Year) {
		out.Year = entities.IntPtr(*s.Year)
		fieldsUpdated = append(fieldsUpdated, "year")
	}
	return out, fieldsUpdated
}
