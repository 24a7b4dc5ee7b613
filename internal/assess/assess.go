// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assess asks the language model to summarize a page and rate
// how well it serves a research prompt.
package assess

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

const systemPrompt = "You are a careful research assistant. Summarize web pages and judge their usefulness " +
	"for the provided research prompt. Respond in compact JSON only."

var assessmentPromptTmpl = template.Must(template.New("assessment").Parse(`Research prompt:
{{.ResearchPrompt}}

Page title: {{.Title}}
Page URL: {{.URL}}
Page content (Markdown only){{if .Truncated}} [TRUNCATED]{{end}}:
---
{{.Markdown}}
---

Outbound links (first {{.LinkCount}}):
{{.LinksJSON}}

Respond strictly as JSON with:
{
  "summary": <80-120 word neutral summary>,
  "technical_depth": {"rating": 1-5, "justification": <text>},
  "prompt_fit": {"rating": 1-5, "justification": <text>},
  "recommended_links": [
    {"title": <text>, "url": <absolute url>, "reason": <text>}
  ]
}
Limit recommended_links to at most {{.MaxLinks}} items that advance the research.`))

type promptData struct {
	ResearchPrompt string
	Title          string
	URL            string
	Truncated      bool
	Markdown       string
	LinkCount      int
	LinksJSON      string
	MaxLinks       int
}

// payload mirrors the JSON shape the model is asked to produce.
type payload struct {
	Summary          string                  `json:"summary"`
	TechnicalDepth   scorePayload            `json:"technical_depth"`
	PromptFit        scorePayload            `json:"prompt_fit"`
	RecommendedLinks []types.RecommendedLink `json:"recommended_links"`
}

type scorePayload struct {
	Rating        int    `json:"rating"`
	Justification string `json:"justification"`
}

// Assessor rates pages against a research prompt.
type Assessor struct {
	backend llm.Backend
	content types.ContentConfig
	// maxRecommendedLinks caps the model's link suggestions; negative
	// means unlimited.
	maxRecommendedLinks int
	logger              *zap.Logger
}

// New builds an Assessor over the given backend.
func New(backend llm.Backend, content types.ContentConfig, maxRecommendedLinks int, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{
		backend:             backend,
		content:             content,
		maxRecommendedLinks: maxRecommendedLinks,
		logger:              logger,
	}
}

// Assess summarizes and rates page for the research prompt. A response
// the model cannot justify as valid JSON with in-range ratings is an
// error; the page itself is never modified.
func (a *Assessor) Assess(ctx context.Context, researchPrompt string, page types.PageContent) (types.PageAssessment, error) {
	prompt, err := a.renderPrompt(researchPrompt, page)
	if err != nil {
		return types.PageAssessment{}, fmt.Errorf("rendering assessment prompt: %w", err)
	}

	raw, err := a.backend.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return types.PageAssessment{}, fmt.Errorf("assessing %s: %w", page.URL, err)
	}

	var p payload
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &p); err != nil {
		a.logger.Error("invalid assessment JSON from model",
			zap.String("url", page.URL),
			zap.Error(err))
		return types.PageAssessment{}, fmt.Errorf("parsing assessment for %s: %w", page.URL, err)
	}
	if err := p.validate(); err != nil {
		return types.PageAssessment{}, fmt.Errorf("assessment for %s: %w", page.URL, err)
	}

	links := p.RecommendedLinks
	if a.maxRecommendedLinks >= 0 && len(links) > a.maxRecommendedLinks {
		links = links[:a.maxRecommendedLinks]
	}

	return types.PageAssessment{
		Summary:          strings.TrimSpace(p.Summary),
		TechnicalDepth:   types.Score{Rating: p.TechnicalDepth.Rating, Justification: p.TechnicalDepth.Justification},
		PromptFit:        types.Score{Rating: p.PromptFit.Rating, Justification: p.PromptFit.Justification},
		RecommendedLinks: links,
	}, nil
}

func (a *Assessor) renderPrompt(researchPrompt string, page types.PageContent) (string, error) {
	links := page.Links
	if a.content.MaxLinksInspected >= 0 && len(links) > a.content.MaxLinksInspected {
		links = links[:a.content.MaxLinksInspected]
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = assessmentPromptTmpl.Execute(&buf, promptData{
		ResearchPrompt: researchPrompt,
		Title:          page.Title,
		URL:            page.URL,
		Truncated:      page.Truncated,
		Markdown:       page.Markdown,
		LinkCount:      len(links),
		LinksJSON:      string(linksJSON),
		MaxLinks:       a.maxRecommendedLinks,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *payload) validate() error {
	if strings.TrimSpace(p.Summary) == "" {
		return fmt.Errorf("summary is empty")
	}
	if err := validRating("technical_depth", p.TechnicalDepth.Rating); err != nil {
		return err
	}
	return validRating("prompt_fit", p.PromptFit.Rating)
}

func validRating(field string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%s rating %d out of range 1-5", field, rating)
	}
	return nil
}
