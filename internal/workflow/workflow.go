// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow runs the research sequence: query expansion, URL
// discovery, page gathering, answer synthesis. It is a strict forward
// machine with early exits; every run produces exactly one result.
package workflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/niderhoff/scolar/pkg/types"
)

// QueryExpander turns a research prompt into a search plan.
type QueryExpander interface {
	Expand(ctx context.Context, researchPrompt string) (*types.SearchPlan, error)
}

// URLDiscoverer finds candidate URLs for a prompt.
type URLDiscoverer interface {
	Discover(ctx context.Context, prompt string, refresh bool) ([]string, error)
}

// PageGatherer processes URLs into assessed pages.
type PageGatherer interface {
	Gather(ctx context.Context, urls []string, researchPrompt string, refresh bool) []types.ProcessedPage
}

// AnswerSynthesizer produces the final answer from assessed pages.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, researchPrompt string, pages []types.ProcessedPage) (*types.SynthesisResult, error)
}

// Request describes one research invocation.
type Request struct {
	Prompt         string
	URLs           []string
	SuggestQueries bool
	RefreshCache   bool
}

// Workflow wires the research stages together.
type Workflow struct {
	expander    QueryExpander
	discoverer  URLDiscoverer
	gatherer    PageGatherer
	synthesizer AnswerSynthesizer
	logger      *zap.Logger
}

// New builds a Workflow. The expander and discoverer may be nil when
// their stages are not wired; their absence short-circuits the
// corresponding step.
func New(expander QueryExpander, discoverer URLDiscoverer, gatherer PageGatherer, synthesizer AnswerSynthesizer, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		expander:    expander,
		discoverer:  discoverer,
		gatherer:    gatherer,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Run executes the workflow and always returns a result with a stable
// exit code. Stage failures never panic through; they surface as
// terminal results with error messages.
func (w *Workflow) Run(ctx context.Context, req Request) *types.ResearchResult {
	result := &types.ResearchResult{
		Prompt: req.Prompt,
		URLs:   req.URLs,
	}

	if strings.TrimSpace(req.Prompt) == "" {
		result.ExitCode = types.ExitMissingInput
		result.Errors = append(result.Errors, "a research prompt is required")
		return result
	}

	w.logger.Info("workflow start",
		zap.Int("urls", len(req.URLs)),
		zap.Bool("suggest_queries", req.SuggestQueries),
		zap.Bool("refresh_cache", req.RefreshCache))

	if req.SuggestQueries && w.expander != nil {
		plan, err := w.expander.Expand(ctx, req.Prompt)
		if err != nil {
			w.logger.Error("search expansion failed", zap.Error(err))
			result.Errors = append(result.Errors, "search expansion failed: "+err.Error())
		} else {
			result.SearchPlan = plan
		}
	}

	urls := req.URLs
	if len(urls) == 0 {
		urls = w.discover(ctx, req, result)
		if len(urls) == 0 {
			// A suggest-queries run that produced a plan is still a
			// success even when no candidates turned up.
			if req.SuggestQueries && result.SearchPlan != nil {
				result.ExitCode = types.ExitOK
				return result
			}
			result.ExitCode = types.ExitNoCandidates
			result.Errors = append(result.Errors, "no candidate URLs discovered for the provided prompt")
			return result
		}
		result.URLs = urls
	}

	w.logger.Info("workflow gather", zap.Int("urls", len(urls)))
	pages := w.gatherer.Gather(ctx, urls, req.Prompt, req.RefreshCache)
	if len(pages) == 0 {
		result.ExitCode = types.ExitNoPages
		result.Errors = append(result.Errors, "no pages processed successfully")
		return result
	}
	result.ProcessedPages = pages

	w.logger.Info("workflow synthesize", zap.Int("pages", len(pages)))
	synthesis, err := w.synthesizer.Synthesize(ctx, req.Prompt, pages)
	if err != nil {
		// Synthesis is best-effort: the assessed pages alone are a
		// usable outcome.
		w.logger.Error("synthesis failed", zap.Error(err))
		result.Errors = append(result.Errors, "synthesis failed: "+err.Error())
	} else {
		result.Synthesis = synthesis
	}

	result.ExitCode = types.ExitOK
	return result
}

func (w *Workflow) discover(ctx context.Context, req Request, result *types.ResearchResult) []string {
	if w.discoverer == nil {
		return nil
	}
	urls, err := w.discoverer.Discover(ctx, req.Prompt, req.RefreshCache)
	if err != nil {
		w.logger.Error("discovery failed", zap.Error(err))
		result.Errors = append(result.Errors, "discovery failed: "+err.Error())
		return nil
	}
	w.logger.Info("discovered candidate urls", zap.Int("count", len(urls)))
	return urls
}
