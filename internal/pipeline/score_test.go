package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/localpages-cli/internal/model"
	"github.com/sells-group/localpages-cli/internal/steps"
)

func evidenceN(n, queries int) []model.EvidenceItem {
	out := make([]model.EvidenceItem, n)
	for i := range out {
		out[i] = model.EvidenceItem{Query: fmt.Sprintf("q%d", i%queries), URL: fmt.Sprintf("u%d", i)}
	}
	return out
}

func TestScore_Perfect(t *testing.T) {
	t.Parallel()

	res := &Result{
		Queries:  3,
		Evidence: evidenceN(20, 3),
		Kept:     2,
		Steps: map[steps.ID]steps.Result{
			steps.Intro: &steps.IntroResult{IntroES: string(make([]rune, steps.MaxIntroLen))},
			steps.Local: &steps.LocalResult{LocalEntities: []model.LocalEntity{{Name: "a"}, {Name: "b"}}},
		},
	}
	b := Score(res)
	assert.InDelta(t, 1.0, b.Evidence, 0.0001)
	assert.InDelta(t, 1.0, b.Diversity, 0.0001)
	assert.InDelta(t, 1.0, b.Verification, 0.0001)
	assert.InDelta(t, 1.0, b.Completeness, 0.0001)
	assert.InDelta(t, 1.0, b.Final, 0.0001)
}

func TestScore_Dimensions(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, scoreEvidence(nil), 0.0001)
	assert.InDelta(t, 0.4, scoreEvidence(evidenceN(6, 1)), 0.0001)

	assert.InDelta(t, 0.0, scoreDiversity(nil, 0), 0.0001)
	assert.InDelta(t, 0.5, scoreDiversity(evidenceN(4, 2), 4), 0.0001)

	assert.InDelta(t, 1.0, scoreVerification(0, 0), 0.0001)
	assert.InDelta(t, 0.25, scoreVerification(1, 3), 0.0001)

	assert.InDelta(t, 0.0, scoreCompleteness(nil), 0.0001)
	assert.InDelta(t, 0.5, scoreCompleteness(map[steps.ID]steps.Result{
		steps.Custom: &steps.CustomResult{CustomSections: map[string]string{"a": "x", "b": "y"}},
	}), 0.0001)
	assert.InDelta(t, 0.0, scoreCompleteness(map[steps.ID]steps.Result{
		steps.Local: &steps.LocalResult{},
	}), 0.0001)
}

func TestScore_Deterministic(t *testing.T) {
	t.Parallel()

	res := &Result{Queries: 5, Evidence: evidenceN(7, 3), Kept: 1, Dropped: []model.LocalEntity{{Name: "x"}}}
	assert.Equal(t, Score(res), Score(res))
	f := Score(res).Final
	assert.GreaterOrEqual(t, f, 0.0)
	assert.LessOrEqual(t, f, 1.0)
}
