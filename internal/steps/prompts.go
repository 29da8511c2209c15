package steps

import (
	_ "embed"
	"sort"
	"text/template"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptFile struct {
	BaseSystem string                `yaml:"base_system"`
	Partials   map[string]string     `yaml:"partials"`
	Steps      map[string]stepPrompt `yaml:"steps"`
}

type stepPrompt struct {
	TokenBudget int    `yaml:"token_budget"`
	System      string `yaml:"system"`
	User        string `yaml:"user"`
}

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"truncate": func(s string, n int) string {
		if utf8.RuneCountInString(s) <= n {
			return s
		}
		return string([]rune(s)[:n]) + "…"
	},
}

// loadCatalog parses the embedded prompt data and builds every step.
func loadCatalog(data []byte) (map[ID]Step, error) {
	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrap(err, "steps: parse prompts")
	}

	base := template.New("base").Funcs(templateFuncs).Option("missingkey=error")
	names := make([]string, 0, len(pf.Partials))
	for name := range pf.Partials {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := base.New(name).Parse(pf.Partials[name]); err != nil {
			return nil, eris.Wrapf(err, "steps: parse partial %s", name)
		}
	}

	catalog := make(map[ID]Step, len(AllIDs))
	for _, id := range AllIDs {
		sp, ok := pf.Steps[string(id)]
		if !ok {
			return nil, eris.Errorf("steps: no prompt for step %s", id)
		}
		if sp.TokenBudget <= 0 {
			return nil, eris.Errorf("steps: step %s has no token budget", id)
		}

		t, err := base.Clone()
		if err != nil {
			return nil, eris.Wrapf(err, "steps: clone templates for %s", id)
		}
		if _, err := t.New(string(id)).Parse(sp.User); err != nil {
			return nil, eris.Wrapf(err, "steps: parse %s user prompt", id)
		}

		schema, err := compileSchema(id)
		if err != nil {
			return nil, eris.Wrapf(err, "steps: compile %s schema", id)
		}

		catalog[id] = Step{
			ID:          id,
			TokenBudget: sp.TokenBudget,
			System:      pf.BaseSystem + "\n" + sp.System,
			user:        t,
			schema:      schema,
			newResult:   resultFactory(id),
		}
	}
	return catalog, nil
}

func resultFactory(id ID) func() Result {
	switch id {
	case SEO:
		return func() Result { return &SEOResult{} }
	case Intro:
		return func() Result { return &IntroResult{} }
	case Sections:
		return func() Result { return &SectionsResult{} }
	case FAQs:
		return func() Result { return &FAQsResult{} }
	case Process:
		return func() Result { return &ProcessResult{} }
	case Local:
		return func() Result { return &LocalResult{} }
	case Custom:
		return func() Result { return &CustomResult{} }
	}
	panic("steps: unknown step " + string(id))
}
