// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer synthesizes a final markdown answer from assessed
// pages, most relevant evidence first.
package answer

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/niderhoff/scolar/internal/llm"
	"github.com/niderhoff/scolar/pkg/types"
)

const systemPrompt = "You are an expert research synthesizer. Combine evidence from provided pages " +
	"to answer the research prompt. Be precise, neutral, and acknowledge " +
	"uncertainties."

var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`Research prompt:
{{.ResearchPrompt}}

The following page digests are ordered from most relevant to least, based on the
prompt fit and technical depth ratings. Use only this evidence to answer the
research prompt. Cite supporting material inline using the notation (Page N).
If the information is insufficient, state the gaps explicitly.

Page digests:
{{.Context}}

Respond in markdown with the following structure:
## Answer
<direct response>

## Evidence
- <bullet points referencing Page N>

## Remaining Gaps
<short explanation or "None">

## Suggest Follow-up Questions
- <bullet points with suggested Questions>`))

var digestTmpl = template.Must(template.New("digest").Parse(`Page {{.Index}}: {{.Page.Title}}
URL: {{.Page.URL}}
Prompt fit: {{.Assessment.PromptFit.Rating}}/5 - {{.Assessment.PromptFit.Justification}}
Technical depth: {{.Assessment.TechnicalDepth.Rating}}/5 - {{.Assessment.TechnicalDepth.Justification}}
Summary: {{.Assessment.Summary}}
Content excerpt:
---
{{.Excerpt}}
---`))

// Synthesizer produces the final answer over the highest-rated pages.
type Synthesizer struct {
	backend llm.Backend
	cfg     types.AnswerConfig
	logger  *zap.Logger
}

// New builds a Synthesizer over the given backend.
func New(backend llm.Backend, cfg types.AnswerConfig, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{backend: backend, cfg: cfg, logger: logger}
}

// Synthesize answers the research prompt from the given pages. Pages
// are ranked by prompt fit then technical depth and only the top
// MaxPages are sent to the model. An empty page list is an error.
func (s *Synthesizer) Synthesize(ctx context.Context, researchPrompt string, pages []types.ProcessedPage) (*types.SynthesisResult, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to synthesize")
	}

	selected := OrderPages(pages)
	if s.cfg.MaxPages > 0 && len(selected) > s.cfg.MaxPages {
		selected = selected[:s.cfg.MaxPages]
	}

	prompt, err := s.renderPrompt(researchPrompt, selected)
	if err != nil {
		return nil, fmt.Errorf("rendering synthesis prompt: %w", err)
	}

	raw, err := s.backend.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}

	return &types.SynthesisResult{
		Answer:       strings.TrimSpace(raw),
		OrderedPages: selected,
	}, nil
}

// OrderPages returns the pages sorted by prompt fit, then technical
// depth, both descending. The sort is stable so equally rated pages
// keep their gather order.
func OrderPages(pages []types.ProcessedPage) []types.ProcessedPage {
	ordered := make([]types.ProcessedPage, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Assessment, ordered[j].Assessment
		if a.PromptFit.Rating != b.PromptFit.Rating {
			return a.PromptFit.Rating > b.PromptFit.Rating
		}
		return a.TechnicalDepth.Rating > b.TechnicalDepth.Rating
	})
	return ordered
}

// Excerpt clips markdown to at most limit characters, marking the cut.
// A non-positive limit returns the text untouched.
func Excerpt(markdown string, limit int) string {
	text := strings.TrimSpace(markdown)
	if text == "" {
		return "[No content extracted]"
	}
	if limit <= 0 || len(text) <= limit {
		return text
	}
	clipped := strings.TrimRight(text[:limit], " \t\n")
	return clipped + "\n...[truncated]..."
}

func (s *Synthesizer) renderPrompt(researchPrompt string, pages []types.ProcessedPage) (string, error) {
	var sections []string
	for i, item := range pages {
		var buf bytes.Buffer
		err := digestTmpl.Execute(&buf, struct {
			Index      int
			Page       types.PageContent
			Assessment types.PageAssessment
			Excerpt    string
		}{
			Index:      i + 1,
			Page:       item.Page,
			Assessment: item.Assessment,
			Excerpt:    Excerpt(item.Page.Markdown, s.cfg.ExcerptChars),
		})
		if err != nil {
			return "", err
		}
		sections = append(sections, buf.String())
	}

	var buf bytes.Buffer
	err := synthesisPromptTmpl.Execute(&buf, struct {
		ResearchPrompt string
		Context        string
	}{
		ResearchPrompt: researchPrompt,
		Context:        strings.Join(sections, "\n\n"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
