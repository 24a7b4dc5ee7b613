// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Exit codes returned by the research workflow. Each terminal cause has
// a stable, distinct code so callers can branch on the outcome.
const (
	ExitOK           = 0
	ExitNoPages      = 1
	ExitMissingInput = 2
	ExitNoCandidates = 3
)

// SynthesisResult is the final answer with the pages that informed it,
// ordered from most to least relevant.
type SynthesisResult struct {
	Answer       string          `json:"answer"`
	OrderedPages []ProcessedPage `json:"ordered_pages"`
}

// ResearchResult is the single terminal output of one workflow run.
type ResearchResult struct {
	Prompt         string           `json:"prompt"`
	URLs           []string         `json:"urls"`
	SearchPlan     *SearchPlan      `json:"search_plan,omitempty"`
	ProcessedPages []ProcessedPage  `json:"processed_pages"`
	Synthesis      *SynthesisResult `json:"synthesis,omitempty"`
	ExitCode       int              `json:"exit_code"`
	Errors         []string         `json:"errors,omitempty"`
}
