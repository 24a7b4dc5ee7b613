// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared records passed between pipeline stages.
package types

// LinkInfo is an outbound link found on a page.
type LinkInfo struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// PageContent is the normalized form of a fetched resource.
type PageContent struct {
	URL      string     `json:"url" yaml:"url"`
	Title    string     `json:"title" yaml:"title"`
	Markdown string     `json:"markdown" yaml:"-"`
	Links    []LinkInfo `json:"links" yaml:"links"`

	// Truncated reports whether the markdown was cut at the size limit.
	Truncated bool `json:"truncated" yaml:"truncated"`

	// MarkdownPath is where the markdown artifact was stored. Empty
	// until the artifact store has persisted the page.
	MarkdownPath string `json:"markdown_path,omitempty" yaml:"markdown_path,omitempty"`
}

// Score is a 1-5 rating with its justification.
type Score struct {
	Rating        int    `json:"rating" yaml:"rating"`
	Justification string `json:"justification" yaml:"justification"`
}

// RecommendedLink is a follow-up link suggested by the assessment.
type RecommendedLink struct {
	Title  string `json:"title" yaml:"title"`
	URL    string `json:"url" yaml:"url"`
	Reason string `json:"reason" yaml:"reason"`
}

// PageAssessment is the structured relevance judgment for one page.
type PageAssessment struct {
	Summary          string            `json:"summary" yaml:"summary"`
	TechnicalDepth   Score             `json:"technical_depth" yaml:"technical_depth"`
	PromptFit        Score             `json:"prompt_fit" yaml:"prompt_fit"`
	RecommendedLinks []RecommendedLink `json:"recommended_links" yaml:"recommended_links"`
}

// ProcessedPage pairs a normalized page with its assessment. Produced
// exactly once per successfully processed URL.
type ProcessedPage struct {
	Page       PageContent    `json:"page"`
	Assessment PageAssessment `json:"assessment"`
}
