// Package monitoring records batch metrics and raises alerts when a batch
// goes badly.
package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rotisserie/eris"
)

// Metrics holds the batch collectors on a private registry, so tests and
// repeated runs never collide on the default registerer.
type Metrics struct {
	registry     *prometheus.Registry
	items        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	tokens       *prometheus.CounterVec
	costUSD      prometheus.Counter
	qualityScore prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		items: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localpages_items_total",
				Help: "Work items handled, by outcome",
			},
			[]string{"outcome"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localpages_failures_total",
				Help: "Failed work items, by failure kind",
			},
			[]string{"kind"},
		),
		stepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "localpages_step_duration_seconds",
				Help:    "Duration of generation steps in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"step"},
		),
		tokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localpages_tokens_total",
				Help: "Inference tokens consumed, by direction",
			},
			[]string{"direction"},
		),
		costUSD: f.NewCounter(prometheus.CounterOpts{
			Name: "localpages_estimated_cost_usd_total",
			Help: "Estimated API spend in USD",
		}),
		qualityScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "localpages_quality_score",
			Help:    "Quality score of assembled rows",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Item counts one work item with outcome completed, skipped or failed.
func (m *Metrics) Item(outcome string) {
	m.items.WithLabelValues(outcome).Inc()
}

// Failure counts one failed work item by kind.
func (m *Metrics) Failure(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

// Step records the duration of one step call.
func (m *Metrics) Step(step string, d time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// Tokens adds input and output token counts.
func (m *Metrics) Tokens(input, output int) {
	m.tokens.WithLabelValues("input").Add(float64(input))
	m.tokens.WithLabelValues("output").Add(float64(output))
}

// Cost adds estimated spend.
func (m *Metrics) Cost(usd float64) {
	if usd > 0 {
		m.costUSD.Add(usd)
	}
}

// Quality records the score of an assembled row.
func (m *Metrics) Quality(score float64) {
	m.qualityScore.Observe(score)
}

// Push sends every collected metric to a Pushgateway under job. Batch runs
// are short-lived, so metrics are pushed once at the end instead of scraped.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx)
	return eris.Wrapf(err, "monitoring: push to %s", gatewayURL)
}
