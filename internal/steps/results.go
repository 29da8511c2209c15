package steps

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/localpages-cli/internal/model"
)

// Hard limits on generated copy. Lengths count characters, not bytes.
const (
	MaxTitleLen           = 60
	MaxMetaDescriptionLen = 160
	MaxH1Len              = 70
	MaxIntroLen           = 900
	SectionCount          = 4
	FAQCount              = 6
	ProcessStepCount      = 5
	MaxLocalContextLen    = 900
	MaxLocalEntities      = 12
	MinCustomSections     = 2
	MaxCustomSections     = 4
)

// SEOResult holds the page metadata.
type SEOResult struct {
	TitleES           string `json:"title_es"`
	MetaDescriptionES string `json:"meta_description_es"`
	H1ES              string `json:"h1_es"`
}

func (*SEOResult) StepID() ID { return SEO }

// Validate requires the title and H1 to name the locality.
func (r *SEOResult) Validate(rules Rules) error {
	if rules.LocalityName == "" {
		return nil
	}
	loc := model.NormalizeName(rules.LocalityName)
	if !strings.Contains(model.NormalizeName(r.TitleES), loc) {
		return eris.Errorf("title_es does not mention locality %q", rules.LocalityName)
	}
	if !strings.Contains(model.NormalizeName(r.H1ES), loc) {
		return eris.Errorf("h1_es does not mention locality %q", rules.LocalityName)
	}
	return nil
}

// IntroResult holds the opening paragraph.
type IntroResult struct {
	IntroES string `json:"intro_es"`
}

func (*IntroResult) StepID() ID { return Intro }

// Validate implements Result.
func (r *IntroResult) Validate(Rules) error { return nil }

// SectionsResult holds the body sections.
type SectionsResult struct {
	Sections []model.Section `json:"sections_es"`
}

func (*SectionsResult) StepID() ID { return Sections }

// Validate rejects repeated headings.
func (r *SectionsResult) Validate(Rules) error {
	seen := make(map[string]bool, len(r.Sections))
	for i, s := range r.Sections {
		k := model.NormalizeName(s.Heading)
		if seen[k] {
			return eris.Errorf("sections_es[%d].heading repeats %q", i, s.Heading)
		}
		seen[k] = true
	}
	return nil
}

// FAQsResult holds the question/answer list.
type FAQsResult struct {
	FAQs []model.FAQ `json:"faqs_es"`
}

func (*FAQsResult) StepID() ID { return FAQs }

// Validate rejects repeated questions.
func (r *FAQsResult) Validate(Rules) error {
	seen := make(map[string]bool, len(r.FAQs))
	for i, f := range r.FAQs {
		k := model.NormalizeName(f.Question)
		if seen[k] {
			return eris.Errorf("faqs_es[%d].question repeats %q", i, f.Question)
		}
		seen[k] = true
	}
	return nil
}

// ProcessResult holds the ordered "how we work" steps.
type ProcessResult struct {
	Steps []model.ProcessStep `json:"process_steps_es"`
}

func (*ProcessResult) StepID() ID { return Process }

// Validate implements Result.
func (r *ProcessResult) Validate(Rules) error { return nil }

// LocalResult holds locality-specific copy plus the institutions it names.
type LocalResult struct {
	LocalContextES string              `json:"local_context_es"`
	LocalEntities  []model.LocalEntity `json:"localEntities"`
}

func (*LocalResult) StepID() ID { return Local }

// Validate implements Result.
func (r *LocalResult) Validate(Rules) error { return nil }

// Entities implements EntityCarrier.
func (r *LocalResult) Entities() []model.LocalEntity { return r.LocalEntities }

// SetEntities implements EntityCarrier.
func (r *LocalResult) SetEntities(e []model.LocalEntity) { r.LocalEntities = e }

func (r *LocalResult) normalize() {
	for i := range r.LocalEntities {
		e := &r.LocalEntities[i]
		e.EntityType = model.ParseEntityType(string(e.EntityType))
		e.Name = strings.TrimSpace(e.Name)
	}
}

// CustomResult holds free-form sections keyed by slug.
type CustomResult struct {
	CustomSections map[string]string `json:"custom_sections"`
}

func (*CustomResult) StepID() ID { return Custom }

// Validate rejects blank keys.
func (r *CustomResult) Validate(Rules) error {
	for k := range r.CustomSections {
		if strings.TrimSpace(k) == "" {
			return eris.New("custom_sections has a blank key")
		}
	}
	return nil
}
