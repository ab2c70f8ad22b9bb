package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultOpenLibraryURL = "https://openlibrary.org"

	userAgent = "Bookshelf/1.0 (https://github.com/mrlokans/bookshelf)"
)

// OpenLibraryClient searches the OpenLibrary catalog.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		select {
		case <-time.After(r.interval - since):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewOpenLibraryClient creates a client for baseURL, or the public API when
// baseURL is empty. Requests are limited to one per second.
func NewOpenLibraryClient(baseURL string) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = DefaultOpenLibraryURL
	}
	return &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: newRateLimiter(time.Second),
	}
}

func (c *OpenLibraryClient) Name() string {
	return "openlibrary"
}

// Search returns up to ten works matching title and author, restricted to
// English editions.
func (c *OpenLibraryClient) Search(ctx context.Context, author, title string) ([]Candidate, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("title", title)
	if author != "" {
		q.Set("author", author)
	}
	q.Set("language", "eng")
	q.Set("limit", "10")
	q.Set("fields", "key,title,author_name,first_publish_year,publish_year,isbn,cover_i,first_sentence")

	searchURL := fmt.Sprintf("%s/search.json?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result openLibrarySearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	candidates := make([]Candidate, 0, len(result.Docs))
	for _, doc := range result.Docs {
		candidates = append(candidates, c.docToCandidate(doc))
	}
	return candidates, nil
}

func (c *OpenLibraryClient) docToCandidate(doc openLibrarySearchDoc) Candidate {
	candidate := Candidate{
		Source:     c.Name(),
		Identifier: strings.TrimPrefix(doc.Key, "/works/"),
		Title:      doc.Title,
		Authors:    doc.AuthorName,
	}

	if doc.FirstPublishYear > 0 {
		year := doc.FirstPublishYear
		candidate.FirstPublishedYear = &year
	}
	if latest := maxYear(doc.PublishYear); latest > 0 {
		candidate.PublishedYear = &latest
	}

	for _, isbn := range doc.ISBN {
		if normalized := normalizeISBN(isbn); normalized != "" {
			candidate.ISBN = normalized
			break
		}
	}

	if candidate.ISBN != "" {
		candidate.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", candidate.ISBN)
	} else if doc.CoverI != 0 {
		candidate.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverI)
	}

	if len(doc.FirstSentence) > 0 {
		candidate.Description = doc.FirstSentence[0]
	}
	return candidate
}

func maxYear(years []int) int {
	latest := 0
	for _, y := range years {
		if y > latest {
			latest = y
		}
	}
	return latest
}

// normalizeISBN removes hyphens and spaces and rejects anything that is not
// 10 or 13 characters long.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

// OpenLibrary API response types (internal)

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	PublishYear      []int    `json:"publish_year"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
	FirstSentence    []string `json:"first_sentence"`
}
