// Package searchclient implements the document-fetch collaborator against an
// Exa-style neural search API. The pipeline only sees the Fetcher interface;
// timeouts and transport errors stay on this side of the boundary.
package searchclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombar/newsintel/internal/models"
)

const (
	DefaultTimeout = 30 * time.Second

	newsCategory = "news"
)

// Client calls the external search API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	requests   *prometheus.CounterVec
}

// New creates a search client for the given endpoint. The API key is sent on
// every request; an empty key is allowed and left to the server to reject.
func New(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("search API base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid search API URL: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// WithAPIKey returns a copy of the client using a per-request credential. The
// HTTP layer uses this to propagate caller-supplied keys without sharing them
// across requests.
func (c *Client) WithAPIKey(apiKey string) *Client {
	clone := *c
	clone.apiKey = apiKey
	return &clone
}

// WithRequestCounter returns a copy of the client that counts each upstream
// call by outcome on the given vec (labels: status).
func (c *Client) WithRequestCounter(vec *prometheus.CounterVec) *Client {
	clone := *c
	clone.requests = vec
	return &clone
}

func (c *Client) countRequest(status string) {
	if c.requests != nil {
		c.requests.WithLabelValues(status).Inc()
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	Category   string `json:"category"`
	NumResults int    `json:"numResults"`
	Text       bool   `json:"text"`
	Summary    bool   `json:"summary"`
	Livecrawl  string `json:"livecrawl,omitempty"`
}

type searchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Summary       string `json:"summary"`
	Text          string `json:"text"`
	PublishedDate string `json:"publishedDate"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search fetches raw news documents for one query phrase.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.RawDocument, error) {
	body, err := json.Marshal(searchRequest{
		Query:      query,
		Category:   newsCategory,
		NumResults: limit,
		Text:       true,
		Summary:    true,
		Livecrawl:  "always",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countRequest("error")
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.countRequest("error")
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.countRequest("error")
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	c.countRequest("success")

	docs := make([]models.RawDocument, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		docs = append(docs, models.RawDocument{
			Title:         result.Title,
			URL:           result.URL,
			Summary:       result.Summary,
			Text:          result.Text,
			PublishedDate: result.PublishedDate,
		})
	}
	return docs, nil
}
