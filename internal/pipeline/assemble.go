package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/localpages-cli/internal/model"
	"github.com/sells-group/localpages-cli/internal/steps"
)

// Assemble maps step results onto a content row. All validation happened
// in the steps; a missing or mistyped result is a wiring bug and returns
// an error rather than a default. The row ID and Secondary fields are left
// for the persistence layer.
func Assemble(res *Result, item model.WorkItem) (*model.ContentRow, error) {
	seo, err := lookup[*steps.SEOResult](res, steps.SEO)
	if err != nil {
		return nil, err
	}
	intro, err := lookup[*steps.IntroResult](res, steps.Intro)
	if err != nil {
		return nil, err
	}
	secs, err := lookup[*steps.SectionsResult](res, steps.Sections)
	if err != nil {
		return nil, err
	}
	faqs, err := lookup[*steps.FAQsResult](res, steps.FAQs)
	if err != nil {
		return nil, err
	}
	proc, err := lookup[*steps.ProcessResult](res, steps.Process)
	if err != nil {
		return nil, err
	}

	row := &model.ContentRow{
		ServiceID:  item.ServiceID,
		LocalityID: item.LocalityID,
		Primary: model.LocalizedContent{
			Title:           seo.TitleES,
			MetaDescription: seo.MetaDescriptionES,
			H1:              seo.H1ES,
			Intro:           intro.IntroES,
			Sections:        secs.Sections,
			FAQs:            faqs.FAQs,
			ProcessSteps:    proc.Steps,
		},
		QualityScore:  Score(res).Final,
		EvidenceCount: len(res.Evidence),
		GeneratedAt:   res.FinishedAt,
		UpdatedAt:     res.FinishedAt,
	}

	switch item.ServiceType {
	case model.ServiceTypeLitigation:
		local, err := lookup[*steps.LocalResult](res, steps.Local)
		if err != nil {
			return nil, err
		}
		row.Primary.LocalContext = local.LocalContextES
	case model.ServiceTypeAdvisory:
		custom, err := lookup[*steps.CustomResult](res, steps.Custom)
		if err != nil {
			return nil, err
		}
		row.CustomSections = custom.CustomSections
	default:
		return nil, eris.Errorf("pipeline: assemble: unknown service type %q", item.ServiceType)
	}

	return row, nil
}

// Entities returns the verified entities of every entity-carrying step.
func Entities(res *Result) []model.LocalEntity {
	var out []model.LocalEntity
	for _, id := range res.Order {
		if c, ok := res.Steps[id].(steps.EntityCarrier); ok {
			out = append(out, c.Entities()...)
		}
	}
	return out
}

func lookup[T steps.Result](res *Result, id steps.ID) (T, error) {
	var zero T
	r, ok := res.Steps[id]
	if !ok {
		return zero, eris.Errorf("pipeline: assemble: missing %s result", id)
	}
	t, ok := r.(T)
	if !ok {
		return zero, eris.Errorf("pipeline: assemble: %s result has type %T", id, r)
	}
	return t, nil
}
