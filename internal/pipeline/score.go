package pipeline

import (
	"math"
	"unicode/utf8"

	"github.com/sells-group/localpages-cli/internal/model"
	"github.com/sells-group/localpages-cli/internal/steps"
)

// ScoreBreakdown holds the individual dimension scores and the final weighted score.
type ScoreBreakdown struct {
	Evidence     float64 `json:"evidence"`
	Diversity    float64 `json:"diversity"`
	Verification float64 `json:"verification"`
	Completeness float64 `json:"completeness"`
	Final        float64 `json:"final"`
}

const (
	weightEvidence     = 0.35
	weightDiversity    = 0.15
	weightVerification = 0.30
	weightCompleteness = 0.20

	// fullEvidence is the evidence count that earns full coverage.
	fullEvidence = 15
)

// Score computes a deterministic 0.0-1.0 quality score for a run.
func Score(res *Result) ScoreBreakdown {
	b := ScoreBreakdown{
		Evidence:     scoreEvidence(res.Evidence),
		Diversity:    scoreDiversity(res.Evidence, res.Queries),
		Verification: scoreVerification(res.Kept, len(res.Dropped)),
		Completeness: scoreCompleteness(res.Steps),
	}
	final := weightEvidence*b.Evidence +
		weightDiversity*b.Diversity +
		weightVerification*b.Verification +
		weightCompleteness*b.Completeness
	b.Final = math.Round(final*100) / 100
	return b
}

func scoreEvidence(ev []model.EvidenceItem) float64 {
	return math.Min(1, float64(len(ev))/fullEvidence)
}

// scoreDiversity is the share of queries that contributed at least one item.
func scoreDiversity(ev []model.EvidenceItem, queries int) float64 {
	if queries == 0 {
		return 0
	}
	seen := make(map[string]bool)
	for _, e := range ev {
		seen[e.Query] = true
	}
	return math.Min(1, float64(len(seen))/float64(queries))
}

// scoreVerification is the share of generated entities that survived
// verification. No entities at all counts as fully verified.
func scoreVerification(kept, dropped int) float64 {
	total := kept + dropped
	if total == 0 {
		return 1
	}
	return float64(kept) / float64(total)
}

// scoreCompleteness rewards an intro that uses its room and, for
// litigation plans, at least one verified entity.
func scoreCompleteness(results map[steps.ID]steps.Result) float64 {
	var parts []float64
	if intro, ok := results[steps.Intro].(*steps.IntroResult); ok {
		parts = append(parts, math.Min(1, float64(utf8.RuneCountInString(intro.IntroES))/(steps.MaxIntroLen*0.6)))
	}
	if local, ok := results[steps.Local].(*steps.LocalResult); ok {
		if len(local.LocalEntities) > 0 {
			parts = append(parts, 1)
		} else {
			parts = append(parts, 0)
		}
	}
	if custom, ok := results[steps.Custom].(*steps.CustomResult); ok {
		parts = append(parts, float64(len(custom.CustomSections))/steps.MaxCustomSections)
	}
	if len(parts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}
