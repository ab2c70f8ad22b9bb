// Package metadata looks up bibliographic candidates for a book from remote
// sources and merges them into a single suggestion.
//
// Sources implement Provider and are registered once at startup with a
// Registry. Nothing in the library core depends on a provider being present.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

// Candidate is one search hit from a provider.
type Candidate struct {
	Source             string   `json:"source"`
	Identifier         string   `json:"identifier,omitempty"`
	ISBN               string   `json:"isbn,omitempty"`
	Title              string   `json:"title"`
	Authors            []string `json:"authors,omitempty"`
	Description        string   `json:"description,omitempty"`
	PublishedYear      *int     `json:"published_year,omitempty"`
	FirstPublishedYear *int     `json:"first_published_year,omitempty"`
	CoverURL           string   `json:"cover_url,omitempty"`
}

// Author returns the first listed author.
func (c Candidate) Author() string {
	if len(c.Authors) == 0 {
		return ""
	}
	return c.Authors[0]
}

// Provider searches a metadata source.
type Provider interface {
	Name() string
	Search(ctx context.Context, author, title string) ([]Candidate, error)
}

// Registry holds the providers the host registered.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p. A provider with the same name replaces the earlier one.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.providers {
		if strings.EqualFold(existing.Name(), p.Name()) {
			r.providers[i] = p
			return
		}
	}
	r.providers = append(r.providers, p)
}

// Providers returns the registered provider names in registration order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// ErrNoProviders is returned by Search when nothing is registered.
var ErrNoProviders = errors.New("no metadata providers registered")

// Search queries every provider and concatenates the results. A failing
// provider is logged and skipped; the error is returned only when every
// provider failed.
func (r *Registry) Search(ctx context.Context, author, title string) ([]Candidate, error) {
	r.mu.RLock()
	providers := append([]Provider(nil), r.providers...)
	r.mu.RUnlock()

	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	var (
		candidates []Candidate
		errs       []error
	)
	for _, p := range providers {
		found, err := p.Search(ctx, author, title)
		if err != nil {
			log.Printf("[METADATA] %s search failed: %v", p.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		for i := range found {
			if found[i].Source == "" {
				found[i].Source = p.Name()
			}
		}
		candidates = append(candidates, found...)
	}

	if len(errs) == len(providers) {
		return nil, errors.Join(errs...)
	}
	return candidates, nil
}
