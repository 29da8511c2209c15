package model

import "time"

// Section is one heading + body block of a landing page.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// FAQ is a question/answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ProcessStep is one step of the "how we work" list.
type ProcessStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LocalizedContent holds the language-specific copy of a page.
type LocalizedContent struct {
	Title           string        `json:"title"`
	MetaDescription string        `json:"meta_description"`
	H1              string        `json:"h1"`
	Intro           string        `json:"intro"`
	LocalContext    string        `json:"local_context,omitempty"`
	Sections        []Section     `json:"sections"`
	FAQs            []FAQ         `json:"faqs"`
	ProcessSteps    []ProcessStep `json:"process_steps"`
}

// Empty reports whether no field carries content.
func (c LocalizedContent) Empty() bool {
	return c.Title == "" && c.MetaDescription == "" && c.H1 == "" && c.Intro == "" && c.LocalContext == "" &&
		len(c.Sections) == 0 && len(c.FAQs) == 0 && len(c.ProcessSteps) == 0
}

// ContentRow is the persisted page content for one (service, locality).
//
// Primary is the generated language (Spanish, *_es columns). Secondary is
// the second-language set (*_en columns); it is filled by a separate
// translation process and the generator only ever carries it over.
type ContentRow struct {
	ID             string            `json:"id"`
	ServiceID      int64             `json:"service_id"`
	LocalityID     int64             `json:"locality_id"`
	Primary        LocalizedContent  `json:"primary"`
	Secondary      LocalizedContent  `json:"secondary"`
	CustomSections map[string]string `json:"custom_sections"`
	QualityScore   float64           `json:"quality_score"`
	EvidenceCount  int               `json:"evidence_count"`
	GeneratedAt    time.Time         `json:"generated_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
