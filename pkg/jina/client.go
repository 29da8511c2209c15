// Package jina is a small client for Jina AI Search (s.jina.ai).
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://s.jina.ai"

// Client runs web searches.
type Client interface {
	Search(ctx context.Context, req SearchRequest) ([]Result, error)
}

// SearchRequest is one GET search. Site restricts hits to a domain. The API
// has no result count, so Num is applied to the decoded list; zero keeps
// everything.
type SearchRequest struct {
	Query string
	Site  string
	Num   int
}

// Result is one ranked hit. Snippet is the page description, or the start
// of the extracted page content when the description is empty.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// StatusError is returned for any status other than 200 and 422.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jina: unexpected status %d: %s", e.StatusCode, e.Body)
}

type wireResponse struct {
	Data []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Content     string `json:"content"`
	} `json:"data"`
}

// maxSnippet bounds a content fallback snippet, in runes.
const maxSnippet = 300

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.http.Timeout = d }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Jina search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search implements Client. A 422 means no results and yields an empty
// list.
func (c *httpClient) Search(ctx context.Context, sr SearchRequest) ([]Result, error) {
	q := url.Values{"q": {sr.Query}}
	if sr.Site != "" {
		q.Set("site", sr.Site)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Respond-With", "no-content")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: search")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read response")
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return nil, nil
	default:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}

	out := make([]Result, 0, len(wr.Data))
	for _, d := range wr.Data {
		if sr.Num > 0 && len(out) == sr.Num {
			break
		}
		snippet := d.Description
		if snippet == "" {
			snippet = truncate(d.Content, maxSnippet)
		}
		out = append(out, Result{Title: d.Title, URL: d.URL, Snippet: snippet})
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
