// Package batch runs the generation pipeline over a selection of
// (service, locality) work items, one item at a time.
package batch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/localpages-cli/internal/cost"
	"github.com/sells-group/localpages-cli/internal/generate"
	"github.com/sells-group/localpages-cli/internal/model"
	"github.com/sells-group/localpages-cli/internal/monitoring"
	"github.com/sells-group/localpages-cli/internal/persist"
	"github.com/sells-group/localpages-cli/internal/pipeline"
)

// Catalog is the read side of the store used to build and check work items.
type Catalog interface {
	ListServices(ctx context.Context, key string) ([]model.Service, error)
	ListLocalities(ctx context.Context, slug string) ([]model.Locality, error)
	GetContent(ctx context.Context, serviceID, localityID int64) (*model.ContentRow, error)
}

// ItemRunner runs the pipeline for one work item.
type ItemRunner interface {
	Run(ctx context.Context, item model.WorkItem, existing *model.ContentRow) (*pipeline.Result, error)
}

// Writer persists a finished item: its content row and new local entities
// as one unit.
type Writer interface {
	Save(ctx context.Context, row *model.ContentRow, existing *model.ContentRow, entities []model.LocalEntity) (int, error)
}

// Selection chooses the work set. Empty or "all" filters match every active
// row; Limit <= 0 means no limit.
type Selection struct {
	ServiceFilter  string
	LocalityFilter string
	Force          bool
	Limit          int
}

// Summary is the outcome of a batch.
type Summary struct {
	Processed        int            `json:"processed"`
	Completed        int            `json:"completed"`
	Skipped          int            `json:"skipped"`
	Failed           int            `json:"failed"`
	FailuresByKind   map[string]int `json:"failures_by_kind"`
	EntitiesInserted int            `json:"entities_inserted"`
	EntitiesDropped  int            `json:"entities_dropped"`
	InputTokens      int            `json:"input_tokens"`
	OutputTokens     int            `json:"output_tokens"`
	CostUSD          float64        `json:"cost_usd"`
	Duration         time.Duration  `json:"duration"`
}

// Snapshot converts the summary for alert evaluation.
func (s *Summary) Snapshot() monitoring.BatchSnapshot {
	return monitoring.BatchSnapshot{
		Processed:      s.Processed,
		Completed:      s.Completed,
		Skipped:        s.Skipped,
		Failed:         s.Failed,
		FailuresByKind: s.FailuresByKind,
		CostUSD:        s.CostUSD,
	}
}

// Orchestrator drives a batch.
type Orchestrator struct {
	catalog Catalog
	runner  ItemRunner
	writer  Writer
	costs   *cost.Calculator
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// New creates an Orchestrator. metrics may be nil.
func New(catalog Catalog, runner ItemRunner, writer Writer, costs *cost.Calculator, metrics *monitoring.Metrics, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		catalog: catalog,
		runner:  runner,
		writer:  writer,
		costs:   costs,
		metrics: metrics,
		log:     log,
	}
}

// WorkItems enumerates the active services and localities matching sel and
// returns their cross product, services outermost, truncated to sel.Limit.
func (o *Orchestrator) WorkItems(ctx context.Context, sel Selection) ([]model.WorkItem, error) {
	svcFilter := normalizeFilter(sel.ServiceFilter)
	locFilter := normalizeFilter(sel.LocalityFilter)

	svcs, err := o.catalog.ListServices(ctx, svcFilter)
	if err != nil {
		return nil, eris.Wrap(err, "batch: list services")
	}
	if svcFilter != "" && len(svcs) == 0 {
		return nil, eris.Errorf("batch: no active service %q", svcFilter)
	}
	locs, err := o.catalog.ListLocalities(ctx, locFilter)
	if err != nil {
		return nil, eris.Wrap(err, "batch: list localities")
	}
	if locFilter != "" && len(locs) == 0 {
		return nil, eris.Errorf("batch: no active locality %q", locFilter)
	}

	items := make([]model.WorkItem, 0, len(svcs)*len(locs))
	for _, svc := range svcs {
		for _, loc := range locs {
			if sel.Limit > 0 && len(items) >= sel.Limit {
				return items, nil
			}
			items = append(items, model.NewWorkItem(svc, loc, sel.Force))
		}
	}
	return items, nil
}

// Run processes every selected work item in order. A failing item is
// logged and counted and the batch continues. Cancelling ctx stops the
// batch before the next item; the partial summary is returned with the
// cancellation error.
func (o *Orchestrator) Run(ctx context.Context, sel Selection) (*Summary, error) {
	start := time.Now()
	items, err := o.WorkItems(ctx, sel)
	if err != nil {
		return nil, err
	}

	sum := &Summary{FailuresByKind: make(map[string]int)}
	o.log.Info("batch: starting",
		zap.Int("items", len(items)),
		zap.Bool("force", sel.Force),
		zap.Int("limit", sel.Limit),
	)

	var runErr error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			o.log.Warn("batch: canceled, stopping before next item", zap.Int("remaining", len(items)-sum.Processed))
			runErr = eris.Wrap(err, "batch: canceled")
			break
		}
		sum.Processed++
		o.process(ctx, item, sum)
	}

	sum.Duration = time.Since(start)
	o.log.Info("batch: finished",
		zap.Int("processed", sum.Processed),
		zap.Int("completed", sum.Completed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Any("failures_by_kind", sum.FailuresByKind),
		zap.Int("entities_inserted", sum.EntitiesInserted),
		zap.Int("input_tokens", sum.InputTokens),
		zap.Int("output_tokens", sum.OutputTokens),
		zap.Float64("estimated_cost_usd", sum.CostUSD),
		zap.Duration("duration", sum.Duration),
	)
	return sum, runErr
}

func (o *Orchestrator) process(ctx context.Context, item model.WorkItem, sum *Summary) {
	log := o.log.With(zap.String("service", item.ServiceKey), zap.String("locality", item.LocalitySlug))

	existing, err := o.catalog.GetContent(ctx, item.ServiceID, item.LocalityID)
	if err != nil {
		o.fail(log, sum, model.StatePending, &persist.Error{Op: "get content", Err: err})
		return
	}
	if existing != nil && !item.ForceRegenerate {
		sum.Skipped++
		o.item("skipped")
		log.Info("batch: skipped, content exists", zap.String("id", existing.ID))
		return
	}

	res, err := o.runner.Run(ctx, item, existing)
	if err != nil {
		state := model.StateFailed
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			state = perr.State
			o.account(log, sum, perr.Queries, perr.Usage)
		}
		o.fail(log, sum, state, err)
		return
	}
	itemCost := o.account(log, sum, res.Queries, res.Usage)
	sum.EntitiesDropped += len(res.Dropped)

	state := model.StateRunningSteps
	if err := state.Advance(model.StateAssembling); err != nil {
		o.fail(log, sum, state, err)
		return
	}
	row, err := pipeline.Assemble(res, item)
	if err != nil {
		o.fail(log, sum, state, err)
		return
	}

	if err := state.Advance(model.StatePersisting); err != nil {
		o.fail(log, sum, state, err)
		return
	}
	inserted, err := o.writer.Save(ctx, row, existing, pipeline.Entities(res))
	if err != nil {
		o.fail(log, sum, state, err)
		return
	}
	if err := state.Advance(model.StateDone); err != nil {
		o.fail(log, sum, state, err)
		return
	}

	sum.Completed++
	sum.EntitiesInserted += inserted
	o.item("completed")
	if o.metrics != nil {
		o.metrics.Quality(row.QualityScore)
	}
	log.Info("batch: item completed",
		zap.String("title", row.Primary.Title),
		zap.Float64("quality_score", row.QualityScore),
		zap.Int("evidence", row.EvidenceCount),
		zap.Int("entities_new", inserted),
		zap.Int("entities_dropped", len(res.Dropped)),
		zap.Float64("estimated_cost_usd", itemCost),
	)
}

// account adds search and token spend to the summary and returns the item
// cost. Failed items are charged too.
func (o *Orchestrator) account(log *zap.Logger, sum *Summary, queries int, usage []generate.Usage) float64 {
	total := o.costs.Search(queries)
	for _, u := range usage {
		c := o.costs.Tokens(u.Model, u.InputTokens, u.OutputTokens)
		total += c
		sum.InputTokens += u.InputTokens
		sum.OutputTokens += u.OutputTokens
		if !o.costs.Known(u.Model) {
			log.Debug("batch: no pricing for model", zap.String("model", u.Model))
		}
		log.Info("cost attribution",
			zap.String("model", u.Model),
			zap.String("step", string(u.Step)),
			zap.Int("input_tokens", u.InputTokens),
			zap.Int("output_tokens", u.OutputTokens),
			zap.Float64("estimated_cost_usd", c),
		)
		if o.metrics != nil {
			o.metrics.Step(string(u.Step), u.Duration)
			o.metrics.Tokens(u.InputTokens, u.OutputTokens)
		}
	}
	sum.CostUSD += total
	if o.metrics != nil {
		o.metrics.Cost(total)
	}
	return total
}

func (o *Orchestrator) fail(log *zap.Logger, sum *Summary, state model.ItemState, err error) {
	kind := FailureKind(err)
	sum.Failed++
	sum.FailuresByKind[kind]++
	o.item("failed")
	if o.metrics != nil {
		o.metrics.Failure(kind)
	}

	fields := []zap.Field{
		zap.String("failure_kind", kind),
		zap.String("state", string(state)),
		zap.Error(err),
	}
	if step, ok := generate.StepOf(err); ok {
		fields = append(fields, zap.String("step", string(step)))
	}
	log.Error("batch: item failed", fields...)
}

func (o *Orchestrator) item(outcome string) {
	if o.metrics != nil {
		o.metrics.Item(outcome)
	}
}

func normalizeFilter(f string) string {
	f = strings.TrimSpace(f)
	if strings.EqualFold(f, "all") {
		return ""
	}
	return f
}
