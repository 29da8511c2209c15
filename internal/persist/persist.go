// Package persist writes assembled content rows and verified local entities
// to the store.
package persist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/localpages-cli/internal/model"
)

// Writer is the subset of store.Store the persister needs.
type Writer interface {
	SaveItem(ctx context.Context, row *model.ContentRow, entities []model.LocalEntity) (int64, error)
}

// Error is returned when a store write fails.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persist: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Persister writes finished items. In dry-run mode it never touches the
// store.
type Persister struct {
	store  Writer
	dryRun bool
	log    *zap.Logger
}

// New creates a Persister.
func New(w Writer, dryRun bool, log *zap.Logger) *Persister {
	return &Persister{store: w, dryRun: dryRun, log: log}
}

// DryRun reports whether writes are skipped.
func (p *Persister) DryRun() bool { return p.dryRun }

// Save writes one item as a unit: row keyed by (service, locality) and the
// entities of its locality that are not stored yet. Either both are
// written or neither is. When existing is non-nil its second-language
// content and ID carry over; the first-language content of row replaces
// whatever was stored. Returns the number of new entities.
func (p *Persister) Save(ctx context.Context, row *model.ContentRow, existing *model.ContentRow, entities []model.LocalEntity) (int, error) {
	if existing != nil {
		row.Secondary = existing.Secondary
		if row.ID == "" {
			row.ID = existing.ID
		}
	}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	batch := Dedupe(entities)

	if p.dryRun {
		names := make([]string, len(batch))
		for i, e := range batch {
			names[i] = e.Name
		}
		p.log.Info("dry run: content row not written",
			zap.Int64("service_id", row.ServiceID),
			zap.Int64("locality_id", row.LocalityID),
			zap.String("title", row.Primary.Title),
			zap.String("h1", row.Primary.H1),
			zap.Int("sections", len(row.Primary.Sections)),
			zap.Int("faqs", len(row.Primary.FAQs)),
			zap.Int("process_steps", len(row.Primary.ProcessSteps)),
			zap.Int("custom_sections", len(row.CustomSections)),
			zap.Float64("quality_score", row.QualityScore),
			zap.Strings("entities", names),
		)
		return 0, nil
	}

	n, err := p.store.SaveItem(ctx, row, batch)
	if err != nil {
		return 0, &Error{Op: "save item", Err: err}
	}
	p.log.Debug("item written",
		zap.String("id", row.ID),
		zap.Int64("service_id", row.ServiceID),
		zap.Int64("locality_id", row.LocalityID),
		zap.Int64("entities_new", n),
	)
	return int(n), nil
}

// Dedupe keeps the first entity for each (type, normalized name) key.
func Dedupe(entities []model.LocalEntity) []model.LocalEntity {
	seen := make(map[model.EntityKey]bool, len(entities))
	out := make([]model.LocalEntity, 0, len(entities))
	for _, e := range entities {
		k := e.Key()
		if k.NormalizedName == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}
