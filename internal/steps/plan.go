package steps

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/localpages-cli/internal/model"
)

// Plan is the ordered step list and evidence query set for a service type.
type Plan struct {
	Type    model.ServiceType
	Steps   []Step
	Queries func(model.WorkItem) []string
}

var catalog = mustLoadCatalog()

func mustLoadCatalog() map[ID]Step {
	c, err := loadCatalog(promptsYAML)
	if err != nil {
		panic(err)
	}
	return c
}

var planSteps = map[model.ServiceType][]ID{
	model.ServiceTypeLitigation: {SEO, Intro, Sections, FAQs, Process, Local},
	model.ServiceTypeAdvisory:   {SEO, Intro, Sections, FAQs, Process, Custom},
}

var planQueries = map[model.ServiceType]func(model.WorkItem) []string{
	model.ServiceTypeLitigation: litigationQueries,
	model.ServiceTypeAdvisory:   advisoryQueries,
}

// PlanFor returns the static plan for a service type.
func PlanFor(t model.ServiceType) (Plan, error) {
	ids, ok := planSteps[t]
	if !ok {
		return Plan{}, eris.Errorf("steps: no plan for service type %q", t)
	}
	p := Plan{Type: t, Queries: planQueries[t]}
	for _, id := range ids {
		p.Steps = append(p.Steps, catalog[id])
	}
	return p, nil
}

// Lookup returns the catalog entry for id.
func Lookup(id ID) (Step, bool) {
	s, ok := catalog[id]
	return s, ok
}

func place(item model.WorkItem) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", item.LocalityName, item.LocalityProvince))
}

func litigationQueries(item model.WorkItem) []string {
	p := place(item)
	return []string{
		fmt.Sprintf("%s %s", strings.ToLower(item.ServiceName), p),
		fmt.Sprintf("juzgados %s dirección", p),
		fmt.Sprintf("registro civil %s", item.LocalityName),
		fmt.Sprintf("hospital %s", p),
		fmt.Sprintf("comisaría policía %s", p),
	}
}

func advisoryQueries(item model.WorkItem) []string {
	p := place(item)
	return []string{
		fmt.Sprintf("%s %s", strings.ToLower(item.ServiceName), p),
		fmt.Sprintf("ayuntamiento %s trámites", p),
		fmt.Sprintf("notaría %s", item.LocalityName),
	}
}
