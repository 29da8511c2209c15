// Package evidence gathers search snippets that ground generated copy.
package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/localpages-cli/internal/model"
)

// DefaultDelay is the minimum spacing between two search requests.
const DefaultDelay = 1100 * time.Millisecond

// FetchError reports a search query that failed. Evidence collection for
// the whole work item is abandoned when one is returned.
type FetchError struct {
	Query    string
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("evidence: %s query %q: %v", e.Provider, e.Query, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Collector runs search queries one at a time and flattens the results
// into a deduplicated, capped evidence set.
type Collector struct {
	searcher Searcher
	limiter  *rate.Limiter
	maxItems int
	log      *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithDelay sets the spacing between requests. Zero disables spacing.
func WithDelay(d time.Duration) Option {
	return func(c *Collector) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxItems overrides the evidence cap.
func WithMaxItems(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxItems = n
		}
	}
}

// NewCollector creates a Collector. The limiter is shared by every Collect
// call, so spacing also holds across work items.
func NewCollector(s Searcher, log *zap.Logger, opts ...Option) *Collector {
	c := &Collector{
		searcher: s,
		limiter:  rate.NewLimiter(rate.Every(DefaultDelay), 1),
		maxItems: model.MaxEvidenceItems,
		log:      log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Collect issues every query in order. Results are deduplicated by URL
// (first occurrence wins) and truncated to the cap, so earlier queries are
// favored. Any failed query aborts collection with a *FetchError.
func (c *Collector) Collect(ctx context.Context, queries []string) ([]model.EvidenceItem, error) {
	seen := make(map[string]bool)
	var items []model.EvidenceItem
	raw := 0

	for _, q := range queries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "evidence: wait for rate limiter")
		}

		hits, err := c.searcher.Search(ctx, q)
		if err != nil {
			return nil, &FetchError{Query: q, Provider: c.searcher.Name(), Err: err}
		}
		c.log.Debug("evidence: query done",
			zap.String("query", q),
			zap.Int("hits", len(hits)),
		)

		for _, h := range hits {
			raw++
			if h.URL == "" || seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			items = append(items, model.EvidenceItem{
				Query:   q,
				Title:   h.Title,
				URL:     h.URL,
				Snippet: h.Snippet,
			})
		}
	}

	if len(items) > c.maxItems {
		items = items[:c.maxItems]
	}

	c.log.Info("evidence collected",
		zap.Int("queries", len(queries)),
		zap.Int("raw_hits", raw),
		zap.Int("items", len(items)),
	)
	return items, nil
}
