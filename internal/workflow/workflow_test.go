// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niderhoff/scolar/pkg/types"
)

type stubExpander struct {
	plan  *types.SearchPlan
	err   error
	calls int
}

func (s *stubExpander) Expand(_ context.Context, _ string) (*types.SearchPlan, error) {
	s.calls++
	return s.plan, s.err
}

type stubDiscoverer struct {
	urls    []string
	err     error
	calls   int
	refresh bool
}

func (s *stubDiscoverer) Discover(_ context.Context, _ string, refresh bool) ([]string, error) {
	s.calls++
	s.refresh = refresh
	return s.urls, s.err
}

type stubGatherer struct {
	pages   []types.ProcessedPage
	gotURLs []string
	refresh bool
}

func (s *stubGatherer) Gather(_ context.Context, urls []string, _ string, refresh bool) []types.ProcessedPage {
	s.gotURLs = urls
	s.refresh = refresh
	return s.pages
}

type stubSynthesizer struct {
	result *types.SynthesisResult
	err    error
	calls  int
}

func (s *stubSynthesizer) Synthesize(_ context.Context, _ string, _ []types.ProcessedPage) (*types.SynthesisResult, error) {
	s.calls++
	return s.result, s.err
}

func somePages() []types.ProcessedPage {
	return []types.ProcessedPage{{
		Page: types.PageContent{URL: "https://a", Title: "A"},
		Assessment: types.PageAssessment{
			Summary:        "summary",
			PromptFit:      types.Score{Rating: 4},
			TechnicalDepth: types.Score{Rating: 3},
		},
	}}
}

func TestRun_FullSequenceWithSuppliedURLs(t *testing.T) {
	expander := &stubExpander{}
	discoverer := &stubDiscoverer{}
	gatherer := &stubGatherer{pages: somePages()}
	synthesizer := &stubSynthesizer{result: &types.SynthesisResult{Answer: "final"}}
	w := New(expander, discoverer, gatherer, synthesizer, nil)

	result := w.Run(context.Background(), Request{
		Prompt: "local llm inference",
		URLs:   []string{"https://a"},
	})

	assert.Equal(t, types.ExitOK, result.ExitCode)
	assert.Empty(t, result.Errors)
	assert.Equal(t, somePages(), result.ProcessedPages)
	require.NotNil(t, result.Synthesis)
	assert.Equal(t, "final", result.Synthesis.Answer)

	// Supplied URLs skip discovery; no plan was requested.
	assert.Zero(t, discoverer.calls)
	assert.Zero(t, expander.calls)
	assert.Equal(t, []string{"https://a"}, gatherer.gotURLs)
}

func TestRun_DiscoveryFillsMissingURLs(t *testing.T) {
	discoverer := &stubDiscoverer{urls: []string{"https://found"}}
	gatherer := &stubGatherer{pages: somePages()}
	w := New(nil, discoverer, gatherer, &stubSynthesizer{result: &types.SynthesisResult{}}, nil)

	result := w.Run(context.Background(), Request{Prompt: "prompt", RefreshCache: true})

	assert.Equal(t, types.ExitOK, result.ExitCode)
	assert.Equal(t, 1, discoverer.calls)
	assert.True(t, discoverer.refresh)
	assert.True(t, gatherer.refresh)
	assert.Equal(t, []string{"https://found"}, result.URLs)
	assert.Equal(t, []string{"https://found"}, gatherer.gotURLs)
}

func TestRun_MissingPrompt(t *testing.T) {
	w := New(nil, nil, &stubGatherer{}, &stubSynthesizer{}, nil)
	result := w.Run(context.Background(), Request{Prompt: "   "})

	assert.Equal(t, types.ExitMissingInput, result.ExitCode)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "prompt")
}

func TestRun_NoCandidatesDiscovered(t *testing.T) {
	w := New(nil, &stubDiscoverer{}, &stubGatherer{}, &stubSynthesizer{}, nil)
	result := w.Run(context.Background(), Request{Prompt: "prompt"})

	assert.Equal(t, types.ExitNoCandidates, result.ExitCode)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no candidate URLs")
	assert.Empty(t, result.ProcessedPages)
}

func TestRun_DiscoveryErrorIsNoCandidates(t *testing.T) {
	discoverer := &stubDiscoverer{err: fmt.Errorf("search down")}
	w := New(nil, discoverer, &stubGatherer{}, &stubSynthesizer{}, nil)
	result := w.Run(context.Background(), Request{Prompt: "prompt"})

	assert.Equal(t, types.ExitNoCandidates, result.ExitCode)
	assert.Contains(t, result.Errors[0], "search down")
}

func TestRun_SuggestQueriesOnlyIsSuccess(t *testing.T) {
	plan := &types.SearchPlan{PrimaryQuery: "query"}
	expander := &stubExpander{plan: plan}
	w := New(expander, &stubDiscoverer{}, &stubGatherer{}, &stubSynthesizer{}, nil)

	result := w.Run(context.Background(), Request{Prompt: "prompt", SuggestQueries: true})

	assert.Equal(t, types.ExitOK, result.ExitCode)
	assert.Equal(t, plan, result.SearchPlan)
	assert.Empty(t, result.ProcessedPages)
}

func TestRun_ExpansionFailureNotTerminal(t *testing.T) {
	expander := &stubExpander{err: fmt.Errorf("model refused")}
	gatherer := &stubGatherer{pages: somePages()}
	w := New(expander, nil, gatherer, &stubSynthesizer{result: &types.SynthesisResult{}}, nil)

	result := w.Run(context.Background(), Request{
		Prompt:         "prompt",
		URLs:           []string{"https://a"},
		SuggestQueries: true,
	})

	assert.Equal(t, types.ExitOK, result.ExitCode)
	assert.Nil(t, result.SearchPlan)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "model refused")
}

func TestRun_NoPagesProcessed(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	w := New(nil, nil, &stubGatherer{}, synthesizer, nil)

	result := w.Run(context.Background(), Request{Prompt: "prompt", URLs: []string{"https://a"}})

	assert.Equal(t, types.ExitNoPages, result.ExitCode)
	assert.Contains(t, result.Errors[0], "no pages processed")
	assert.Zero(t, synthesizer.calls)
}

func TestRun_SynthesisFailureStillSuccess(t *testing.T) {
	gatherer := &stubGatherer{pages: somePages()}
	synthesizer := &stubSynthesizer{err: fmt.Errorf("context too long")}
	w := New(nil, nil, gatherer, synthesizer, nil)

	result := w.Run(context.Background(), Request{Prompt: "prompt", URLs: []string{"https://a"}})

	assert.Equal(t, types.ExitOK, result.ExitCode)
	assert.Nil(t, result.Synthesis)
	assert.Equal(t, somePages(), result.ProcessedPages)
	assert.Contains(t, result.Errors[0], "context too long")
}
