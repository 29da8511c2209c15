// Package pipeline runs the generation steps for one work item and maps the
// results onto a content row.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/localpages-cli/internal/generate"
	"github.com/sells-group/localpages-cli/internal/model"
	"github.com/sells-group/localpages-cli/internal/steps"
)

// EvidenceCollector gathers evidence for a query set.
type EvidenceCollector interface {
	Collect(ctx context.Context, queries []string) ([]model.EvidenceItem, error)
}

// StepExecutor runs a single step.
type StepExecutor interface {
	Execute(ctx context.Context, step steps.Step, sc steps.Context) (steps.Result, *generate.Usage, error)
}

// Result is the outcome of a fully successful run. It is never returned
// partially filled.
type Result struct {
	Item       model.WorkItem
	Queries    int
	Evidence   []model.EvidenceItem
	Steps      map[steps.ID]steps.Result
	Order      []steps.ID
	Kept       int
	Dropped    []model.LocalEntity
	Usage      []generate.Usage
	FinishedAt time.Time
}

// Error reports a failed run. State is where the run stopped; Queries and
// Usage hold the calls already paid for.
type Error struct {
	Item    model.WorkItem
	State   model.ItemState
	Queries int
	Usage   []generate.Usage
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline: %s failed during %s: %v", e.Item, e.State, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Runner sequences evidence collection and the plan steps for a work item.
type Runner struct {
	collector EvidenceCollector
	executor  StepExecutor
	planFor   func(model.ServiceType) (steps.Plan, error)
	now       func() time.Time
	log       *zap.Logger
}

// NewRunner creates a Runner using the static step plans.
func NewRunner(c EvidenceCollector, e StepExecutor, log *zap.Logger) *Runner {
	return &Runner{
		collector: c,
		executor:  e,
		planFor:   steps.PlanFor,
		now:       time.Now,
		log:       log,
	}
}

// Run collects evidence and executes every step of the item's plan in
// order. The first failing step stops the run; later steps are not
// attempted. After all steps succeed, extracted local entities not backed
// by evidence are removed.
func (r *Runner) Run(ctx context.Context, item model.WorkItem, existing *model.ContentRow) (*Result, error) {
	log := r.log.With(zap.String("service", item.ServiceKey), zap.String("locality", item.LocalitySlug))
	state := model.StatePending
	var usage []generate.Usage
	var queries []string

	fail := func(err error) (*Result, error) {
		return nil, &Error{Item: item, State: state, Queries: len(queries), Usage: usage, Err: err}
	}

	plan, err := r.planFor(item.ServiceType)
	if err != nil {
		return fail(err)
	}

	if err := state.Advance(model.StateCollectingEvidence); err != nil {
		return fail(err)
	}
	queries = plan.Queries(item)
	evidence, err := r.collector.Collect(ctx, queries)
	if err != nil {
		return fail(err)
	}

	if err := state.Advance(model.StateRunningSteps); err != nil {
		return fail(err)
	}
	sc := steps.Context{Item: item, Evidence: evidence, Existing: existing}
	results := make(map[steps.ID]steps.Result, len(plan.Steps))
	order := make([]steps.ID, 0, len(plan.Steps))

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return fail(eris.Wrap(err, "pipeline: canceled"))
		}

		res, u, err := r.executor.Execute(ctx, step, sc)
		if u != nil {
			usage = append(usage, *u)
		}
		if err != nil {
			return fail(err)
		}
		results[step.ID] = res
		order = append(order, step.ID)
		log.Debug("pipeline: step complete", zap.String("step", string(step.ID)))
	}

	out := &Result{
		Item:     item,
		Queries:  len(queries),
		Evidence: evidence,
		Steps:    results,
		Order:    order,
		Usage:    usage,
	}

	for _, id := range order {
		carrier, ok := results[id].(steps.EntityCarrier)
		if !ok {
			continue
		}
		kept, dropped := VerifyEntities(carrier.Entities(), evidence)
		carrier.SetEntities(kept)
		out.Kept += len(kept)
		out.Dropped = append(out.Dropped, dropped...)
		for _, d := range dropped {
			log.Warn("pipeline: dropped unverified entity",
				zap.String("step", string(id)),
				zap.String("entity", d.Name),
				zap.String("entity_type", string(d.EntityType)),
			)
		}
	}

	out.FinishedAt = r.now()
	log.Info("pipeline: steps complete",
		zap.Int("evidence", len(evidence)),
		zap.Int("steps", len(order)),
		zap.Int("entities_kept", out.Kept),
		zap.Int("entities_dropped", len(out.Dropped)),
	)
	return out, nil
}
