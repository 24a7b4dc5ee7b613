// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders processed pages and the final answer for the
// terminal and as a JSON summary file.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/niderhoff/scolar/pkg/types"
)

var sectionSeparator = "\n" + strings.Repeat("=", 80) + "\n"

// RenderPage formats one assessed page as markdown.
func RenderPage(page types.PageContent, assessment types.PageAssessment) string {
	lines := []string{
		"# " + page.Title,
		"Source: " + page.URL,
		"",
		"## Summary",
		assessment.Summary,
		"",
		"## Technical Depth",
		fmt.Sprintf("Rating: %d/5", assessment.TechnicalDepth.Rating),
		assessment.TechnicalDepth.Justification,
		"",
		"## Prompt Fit",
		fmt.Sprintf("Rating: %d/5", assessment.PromptFit.Rating),
		assessment.PromptFit.Justification,
	}

	if len(assessment.RecommendedLinks) > 0 {
		lines = append(lines, "", "## Recommended Follow-up Links")
		for _, link := range assessment.RecommendedLinks {
			lines = append(lines, fmt.Sprintf("- [%s](%s): %s", link.Title, link.URL, link.Reason))
		}
	}

	return strings.Join(lines, "\n")
}

// RenderFinalAnswer formats the synthesized answer with the sources it
// consulted.
func RenderFinalAnswer(synthesis *types.SynthesisResult) string {
	lines := []string{"# Final Answer", "", strings.TrimSpace(synthesis.Answer)}
	if len(synthesis.OrderedPages) > 0 {
		lines = append(lines, "", "## Sources Consulted")
		for i, item := range synthesis.OrderedPages {
			lines = append(lines, fmt.Sprintf(
				"- Page %d: %s (%s) - prompt fit %d/5, technical depth %d/5",
				i+1,
				item.Page.Title,
				item.Page.URL,
				item.Assessment.PromptFit.Rating,
				item.Assessment.TechnicalDepth.Rating,
			))
		}
	}
	return strings.Join(lines, "\n")
}

// OrderForDisplay puts synthesis-ranked pages first, followed by the
// remaining pages in gather order. Pages are matched by URL.
func OrderForDisplay(pages []types.ProcessedPage, synthesis *types.SynthesisResult) []types.ProcessedPage {
	if synthesis == nil || len(synthesis.OrderedPages) == 0 {
		return pages
	}

	prioritized := make(map[string]struct{}, len(synthesis.OrderedPages))
	ordered := make([]types.ProcessedPage, 0, len(pages))
	for _, item := range synthesis.OrderedPages {
		prioritized[item.Page.URL] = struct{}{}
		ordered = append(ordered, item)
	}
	for _, item := range pages {
		if _, ok := prioritized[item.Page.URL]; !ok {
			ordered = append(ordered, item)
		}
	}
	return ordered
}

// Write prints the full report to w: the final answer first when
// present, then every page section.
func Write(w io.Writer, result *types.ResearchResult) error {
	ordered := OrderForDisplay(result.ProcessedPages, result.Synthesis)

	var sections []string
	if result.Synthesis != nil {
		sections = append(sections, RenderFinalAnswer(result.Synthesis))
	}
	for _, item := range ordered {
		sections = append(sections, RenderPage(item.Page, item.Assessment))
	}

	_, err := fmt.Fprintln(w, strings.Join(sections, sectionSeparator))
	return err
}

// JSONSource describes one synthesis source in the JSON summary.
type JSONSource struct {
	PageNumber     int    `json:"page_number"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	PromptFit      int    `json:"prompt_fit"`
	TechnicalDepth int    `json:"technical_depth"`
}

// JSONPage is the JSON record for one processed page.
type JSONPage struct {
	Title            string                  `json:"title"`
	URL              string                  `json:"url"`
	MarkdownPath     string                  `json:"markdown_path,omitempty"`
	Truncated        bool                    `json:"truncated"`
	OutboundLinks    []types.LinkInfo        `json:"outbound_links"`
	Summary          string                  `json:"summary"`
	TechnicalDepth   types.Score             `json:"technical_depth"`
	PromptFit        types.Score             `json:"prompt_fit"`
	RecommendedLinks []types.RecommendedLink `json:"recommended_links"`
}

// JSONReport is the complete JSON summary for one run.
type JSONReport struct {
	Prompt           string       `json:"prompt"`
	FinalAnswer      string       `json:"final_answer,omitempty"`
	SourcesConsulted []JSONSource `json:"sources_consulted"`
	Pages            []JSONPage   `json:"pages"`
}

// BuildJSONPage converts one processed page for the JSON summary.
func BuildJSONPage(page types.PageContent, assessment types.PageAssessment) JSONPage {
	return JSONPage{
		Title:            page.Title,
		URL:              page.URL,
		MarkdownPath:     page.MarkdownPath,
		Truncated:        page.Truncated,
		OutboundLinks:    page.Links,
		Summary:          assessment.Summary,
		TechnicalDepth:   assessment.TechnicalDepth,
		PromptFit:        assessment.PromptFit,
		RecommendedLinks: assessment.RecommendedLinks,
	}
}

// BuildJSONReport assembles the summary payload for a run.
func BuildJSONReport(result *types.ResearchResult) JSONReport {
	rep := JSONReport{
		Prompt:           result.Prompt,
		SourcesConsulted: []JSONSource{},
		Pages:            []JSONPage{},
	}

	if result.Synthesis != nil {
		rep.FinalAnswer = result.Synthesis.Answer
		for i, item := range result.Synthesis.OrderedPages {
			rep.SourcesConsulted = append(rep.SourcesConsulted, JSONSource{
				PageNumber:     i + 1,
				Title:          item.Page.Title,
				URL:            item.Page.URL,
				PromptFit:      item.Assessment.PromptFit.Rating,
				TechnicalDepth: item.Assessment.TechnicalDepth.Rating,
			})
		}
	}

	for _, item := range OrderForDisplay(result.ProcessedPages, result.Synthesis) {
		rep.Pages = append(rep.Pages, BuildJSONPage(item.Page, item.Assessment))
	}
	return rep
}

// WriteJSON writes the summary payload to path, creating parent
// directories as needed.
func WriteJSON(path string, rep JSONReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating JSON summary dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing JSON summary: %w", err)
	}
	return nil
}
