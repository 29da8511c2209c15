package evidence

import (
	"context"

	"github.com/sells-group/localpages-cli/pkg/jina"
	"github.com/sells-group/localpages-cli/pkg/serper"
)

// Hit is one ranked organic search result.
type Hit struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher issues a single search query and returns ranked hits.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]Hit, error)
}

// SerperSearcher adapts a serper.Client with locale hints and a result count.
type SerperSearcher struct {
	client   serper.Client
	country  string
	language string
	num      int
}

// NewSerperSearcher creates a Searcher backed by the Serper API.
func NewSerperSearcher(c serper.Client, country, language string, num int) *SerperSearcher {
	return &SerperSearcher{client: c, country: country, language: language, num: num}
}

// Name implements Searcher.
func (s *SerperSearcher) Name() string { return "serper" }

// Search implements Searcher.
func (s *SerperSearcher) Search(ctx context.Context, query string) ([]Hit, error) {
	resp, err := s.client.Search(ctx, serper.SearchRequest{
		Query:    query,
		Country:  s.country,
		Language: s.language,
		Num:      s.num,
	})
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		hits = append(hits, Hit{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return hits, nil
}

// JinaSearcher adapts a jina.Client. Jina takes no locale hints.
type JinaSearcher struct {
	client jina.Client
	num    int
}

// NewJinaSearcher creates a Searcher backed by Jina AI Search.
func NewJinaSearcher(c jina.Client, num int) *JinaSearcher {
	return &JinaSearcher{client: c, num: num}
}

// Name implements Searcher.
func (s *JinaSearcher) Name() string { return "jina" }

// Search implements Searcher.
func (s *JinaSearcher) Search(ctx context.Context, query string) ([]Hit, error) {
	res, err := s.client.Search(ctx, jina.SearchRequest{Query: query, Num: s.num})
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(res))
	for i, r := range res {
		hits[i] = Hit(r)
	}
	return hits, nil
}
