package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"0-13-468599-6", "0134685996"},
		{"978 0 13 468599 1", "9780134685991"},
		{"9780134685991", "9780134685991"},
		{"123", ""},            // Too short
		{"12345678901234", ""}, // Too long
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeISBN(tt.input)
			if result != tt.expected {
				t.Errorf("normalizeISBN(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestOpenLibrarySearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("title"); got != "Dune" {
			t.Errorf("title = %q, expected Dune", got)
		}
		if got := r.URL.Query().Get("author"); got != "Frank Herbert" {
			t.Errorf("author = %q, expected Frank Herbert", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}

		response := openLibrarySearchResult{
			NumFound: 2,
			Docs: []openLibrarySearchDoc{
				{
					Key:              "/works/OL893415W",
					Title:            "Dune",
					AuthorName:       []string{"Frank Herbert"},
					FirstPublishYear: 1965,
					PublishYear:      []int{1965, 1990, 2005},
					ISBN:             []string{"bad", "978-0-441-01359-3"},
					FirstSentence:    []string{"In the week before their departure to Arrakis..."},
				},
				{
					Key:        "/works/OL2W",
					Title:      "Dune Messiah",
					AuthorName: []string{"Frank Herbert"},
					CoverI:     42,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := NewOpenLibraryClient(server.URL)
	client.rateLimiter = newRateLimiter(0)

	candidates, err := client.Search(context.Background(), "Frank Herbert", "Dune")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.Identifier != "OL893415W" {
		t.Errorf("expected identifier OL893415W, got %q", first.Identifier)
	}
	if first.ISBN != "9780441013593" {
		t.Errorf("expected normalized ISBN, got %q", first.ISBN)
	}
	if first.FirstPublishedYear == nil || *first.FirstPublishedYear != 1965 {
		t.Errorf("expected first published year 1965, got %v", first.FirstPublishedYear)
	}
	if first.PublishedYear == nil || *first.PublishedYear != 2005 {
		t.Errorf("expected latest published year 2005, got %v", first.PublishedYear)
	}
	if first.Description == "" {
		t.Error("expected first sentence as description")
	}
	if first.CoverURL != "https://covers.openlibrary.org/b/isbn/9780441013593-L.jpg" {
		t.Errorf("unexpected cover URL %q", first.CoverURL)
	}
	if first.Source != "openlibrary" {
		t.Errorf("expected source openlibrary, got %q", first.Source)
	}

	if candidates[1].CoverURL != "https://covers.openlibrary.org/b/id/42-L.jpg" {
		t.Errorf("unexpected cover URL %q", candidates[1].CoverURL)
	}
	if candidates[1].FirstPublishedYear != nil {
		t.Errorf("expected no year, got %v", *candidates[1].FirstPublishedYear)
	}
}

func TestOpenLibrarySearch_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewOpenLibraryClient(server.URL)
	client.rateLimiter = newRateLimiter(0)

	if _, err := client.Search(context.Background(), "A", "T"); err == nil {
		t.Error("expected error for non-200 status")
	}
	if _, err := client.Search(context.Background(), "A", " "); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := newRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	_ = limiter.wait(ctx)
	_ = limiter.wait(ctx)
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected at least 50ms between calls, got %v", elapsed)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := limiter.wait(cancelled); err == nil {
		t.Error("expected cancelled wait to fail")
	}
}
