package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultGoogleBooksURL = "https://www.googleapis.com/books/v1"

// GoogleBooksClient searches the Google Books volumes API.
type GoogleBooksClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewGoogleBooksClient creates a client for baseURL, or the public API when
// baseURL is empty. apiKey is optional.
func NewGoogleBooksClient(baseURL, apiKey string) *GoogleBooksClient {
	if baseURL == "" {
		baseURL = DefaultGoogleBooksURL
	}
	return &GoogleBooksClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *GoogleBooksClient) Name() string {
	return "googlebooks"
}

func (c *GoogleBooksClient) Search(ctx context.Context, author, title string) ([]Candidate, error) {
	query := strings.TrimSpace(author + " " + title)
	if query == "" {
		return nil, fmt.Errorf("author or title is required")
	}

	q := url.Values{}
	q.Set("q", query)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result googleVolumes
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode volumes: %w", err)
	}

	candidates := make([]Candidate, 0, len(result.Items))
	for _, item := range result.Items {
		if item.VolumeInfo.Title == "" {
			continue
		}
		candidates = append(candidates, c.volumeToCandidate(item))
	}
	return candidates, nil
}

func (c *GoogleBooksClient) volumeToCandidate(item googleVolume) Candidate {
	info := item.VolumeInfo
	candidate := Candidate{
		Source:      c.Name(),
		Identifier:  item.ID,
		Title:       info.Title,
		Authors:     info.Authors,
		Description: info.Description,
	}

	if len(info.PublishedDate) >= 4 {
		var year int
		if _, err := fmt.Sscanf(info.PublishedDate[:4], "%d", &year); err == nil && year > 0 {
			candidate.PublishedYear = &year
		}
	}

	for _, id := range info.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			candidate.ISBN = id.Identifier
			break
		}
		if id.Type == "ISBN_10" && candidate.ISBN == "" {
			candidate.ISBN = id.Identifier
		}
	}

	if info.ImageLinks.Thumbnail != "" {
		candidate.CoverURL = strings.Replace(info.ImageLinks.Thumbnail, "http://", "https://", 1)
	}
	return candidate
}

type googleVolumes struct {
	TotalItems int            `json:"totalItems"`
	Items      []googleVolume `json:"items"`
}

type googleVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		Description         string   `json:"description"`
		PublishedDate       string   `json:"publishedDate"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}
