package pipeline

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/localpages-cli/internal/model"
)

// VerifyEntities keeps the entities whose name appears, ignoring case, in
// the title or snippet of at least one evidence item. Entities are never
// rewritten; the rest are returned as dropped.
func VerifyEntities(entities []model.LocalEntity, evidence []model.EvidenceItem) (kept, dropped []model.LocalEntity) {
	fold := cases.Fold()
	haystack := make([]string, 0, len(evidence)*2)
	for _, ev := range evidence {
		haystack = append(haystack, fold.String(ev.Title), fold.String(ev.Snippet))
	}

	for _, e := range entities {
		name := strings.TrimSpace(e.Name)
		if name != "" && containsAny(haystack, fold.String(name)) {
			kept = append(kept, e)
			continue
		}
		dropped = append(dropped, e)
	}
	return kept, dropped
}

func containsAny(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}
