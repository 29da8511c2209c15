// Package steps defines the static generation steps: their prompts, output
// schemas, typed results, and the per-service-type plans that order them.
package steps

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/localpages-cli/internal/model"
)

// ID identifies a generation step.
type ID string

const (
	SEO      ID = "seo"
	Intro    ID = "intro"
	Sections ID = "sections"
	FAQs     ID = "faqs"
	Process  ID = "process"
	Local    ID = "local"
	Custom   ID = "custom"
)

// AllIDs lists every step identifier.
var AllIDs = []ID{SEO, Intro, Sections, FAQs, Process, Local, Custom}

// Context is the input shared by every step of a work item. Steps never
// see each other's output.
type Context struct {
	Item     model.WorkItem
	Evidence []model.EvidenceItem
	Existing *model.ContentRow
}

// Rules are the run-level constraints applied on top of each step schema.
type Rules struct {
	ForbiddenPhrases []string
	LocalityName     string
}

// Result is the typed, validated output of one step.
type Result interface {
	StepID() ID
	Validate(rules Rules) error
}

// EntityCarrier is implemented by results that extract local entities.
type EntityCarrier interface {
	Entities() []model.LocalEntity
	SetEntities([]model.LocalEntity)
}

// Step is a declarative unit of generation.
type Step struct {
	ID          ID
	TokenBudget int
	System      string

	user      *template.Template
	schema    *gojsonschema.Schema
	newResult func() Result
}

// UserPrompt renders the step's user prompt for sc.
func (s Step) UserPrompt(sc Context) (string, error) {
	var buf bytes.Buffer
	if err := s.user.ExecuteTemplate(&buf, string(s.ID), sc); err != nil {
		return "", eris.Wrapf(err, "steps: render %s prompt", s.ID)
	}
	return buf.String(), nil
}

// Decode checks obj against the step schema and the forbidden phrase list,
// then decodes it into the step's typed result and runs its Validate.
// Any returned error means the output was rejected.
func (s Step) Decode(obj map[string]any, rules Rules) (Result, error) {
	res, err := s.schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return nil, eris.Wrapf(err, "steps: %s schema check", s.ID)
	}
	if !res.Valid() {
		msgs := make([]string, len(res.Errors()))
		for i, desc := range res.Errors() {
			msgs[i] = desc.String()
		}
		return nil, eris.Errorf("steps: %s output does not match schema: %s", s.ID, strings.Join(msgs, "; "))
	}

	if err := CheckForbidden(obj, rules.ForbiddenPhrases); err != nil {
		return nil, eris.Wrapf(err, "steps: %s", s.ID)
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, eris.Wrapf(err, "steps: %s re-encode", s.ID)
	}
	out := s.newResult()
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, eris.Wrapf(err, "steps: %s decode", s.ID)
	}
	if n, ok := out.(interface{ normalize() }); ok {
		n.normalize()
	}
	if err := out.Validate(rules); err != nil {
		return nil, eris.Wrapf(err, "steps: %s", s.ID)
	}
	return out, nil
}
