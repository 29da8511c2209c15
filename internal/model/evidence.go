package model

// MaxEvidenceItems caps the evidence set handed to the prompt builders.
const MaxEvidenceItems = 30

// EvidenceItem is one search result used as factual grounding.
type EvidenceItem struct {
	Query   string `json:"query"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}
