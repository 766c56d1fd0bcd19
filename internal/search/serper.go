// Package search wraps the Serper web-search API consumed by web_search mode.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const serperEndpoint = "https://google.serper.dev/search"

// ErrNotConfigured is returned when no Serper API key was provided.
var ErrNotConfigured = errors.New("web search is not configured")

// Client calls Serper and condenses organic results into prompt context.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	maxResults int
}

// NewClient creates a Serper search client. An empty key yields a client
// whose Search always returns ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   serperEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxResults: 5,
	}
}

type serperRequest struct {
	Query string `json:"q"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search runs a web search and returns a plain-text digest of the top
// results, suitable for prepending to an LLM prompt as grounding context.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(serperRequest{Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("serper API returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed serperResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse search response: %w", err)
	}

	if len(parsed.Organic) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Web search results:\n")
	for i, result := range parsed.Organic {
		if i >= c.maxResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, result.Title, result.Link, result.Snippet)
	}
	return b.String(), nil
}
