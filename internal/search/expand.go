// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search expands a research prompt into web search queries via
// the language model.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/niderhoff/scolar/internal/llm"
	"github.com/niderhoff/scolar/pkg/types"
)

const systemPrompt = "You are an adept web research strategist. Expand the user's research prompt " +
	"into effective web search queries and supporting keywords. Respond strictly " +
	"with JSON that follows the requested schema."

// siteFilterLimit caps suggested site/filetype qualifiers.
const siteFilterLimit = 5

var expansionPromptTmpl = template.Must(template.New("expansion").Parse(`Research prompt:
{{.ResearchPrompt}}

Produce JSON that conforms to this schema:
{"primary_query": "string", "expanded_queries": ["string", "..."], "focus_topics": ["string", "..."], "site_filters": ["site:example.com", "..."], "notes": "string | null"}

Guidance:
- primary_query should be the single best general-purpose query for search engines.
- expanded_queries should list up to {{.MaxQueries}} diverse variations covering complementary angles.
- focus_topics should include 3-{{.MaxQueries}} short keywords or phrases to mix and match.
- site_filters should include domain or filetype qualifiers when appropriate; return an empty list if none.
- notes is optional but may contain strategy tips. Use null when no additional guidance is needed.
Ensure the response is valid JSON and obey the limits.`))

type expansionPayload struct {
	PrimaryQuery    string   `json:"primary_query"`
	ExpandedQueries []string `json:"expanded_queries"`
	FocusTopics     []string `json:"focus_topics"`
	SiteFilters     []string `json:"site_filters"`
	Notes           string   `json:"notes"`
}

// Expander turns a research prompt into a SearchPlan.
type Expander struct {
	backend llm.Backend
	// maxQueries bounds expanded queries and focus topics.
	maxQueries int
	logger     *zap.Logger
}

// New builds an Expander. maxQueries below five is raised to five.
func New(backend llm.Backend, maxQueries int, logger *zap.Logger) *Expander {
	if maxQueries < 5 {
		maxQueries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{backend: backend, maxQueries: maxQueries, logger: logger}
}

// Expand asks the model for search queries serving the research prompt.
// A response without a primary query is an error.
func (e *Expander) Expand(ctx context.Context, researchPrompt string) (*types.SearchPlan, error) {
	var buf bytes.Buffer
	err := expansionPromptTmpl.Execute(&buf, struct {
		ResearchPrompt string
		MaxQueries     int
	}{ResearchPrompt: researchPrompt, MaxQueries: e.maxQueries})
	if err != nil {
		return nil, fmt.Errorf("rendering expansion prompt: %w", err)
	}

	raw, err := e.backend.Complete(ctx, systemPrompt, buf.String())
	if err != nil {
		return nil, fmt.Errorf("search expansion request: %w", err)
	}

	var p expansionPayload
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &p); err != nil {
		e.logger.Error("invalid search expansion JSON from model", zap.Error(err))
		return nil, fmt.Errorf("parsing search expansion: %w", err)
	}
	primary := strings.TrimSpace(p.PrimaryQuery)
	if primary == "" {
		return nil, fmt.Errorf("search expansion has no primary query")
	}

	return &types.SearchPlan{
		PrimaryQuery:    primary,
		ExpandedQueries: cleanUnique(p.ExpandedQueries, e.maxQueries),
		FocusTopics:     cleanUnique(p.FocusTopics, e.maxQueries),
		SiteFilters:     cleanUnique(p.SiteFilters, siteFilterLimit),
		Notes:           strings.TrimSpace(p.Notes),
	}, nil
}

// cleanUnique trims values, drops empties and case-insensitive
// duplicates, and caps the result at limit.
func cleanUnique(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		text := strings.TrimSpace(v)
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, text)
		if len(result) >= limit {
			break
		}
	}
	return result
}

// Render formats the plan as markdown for display and reports.
func Render(plan *types.SearchPlan) string {
	lines := []string{"# Suggested Search Queries", ""}
	lines = append(lines, fmt.Sprintf("Primary query: %s", plan.PrimaryQuery))

	if len(plan.ExpandedQueries) > 0 {
		lines = append(lines, "", "## Expanded Queries")
		for _, q := range plan.ExpandedQueries {
			lines = append(lines, "- "+q)
		}
	}
	if len(plan.FocusTopics) > 0 {
		lines = append(lines, "", "## Focus Topics")
		for _, topic := range plan.FocusTopics {
			lines = append(lines, "- "+topic)
		}
	}
	if len(plan.SiteFilters) > 0 {
		lines = append(lines, "", "## Suggested Site Filters")
		for _, site := range plan.SiteFilters {
			lines = append(lines, "- "+site)
		}
	}
	if plan.Notes != "" {
		lines = append(lines, "", "## Notes", plan.Notes)
	}
	return strings.Join(lines, "\n")
}
