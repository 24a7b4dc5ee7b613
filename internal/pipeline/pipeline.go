// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline gathers a set of URLs into assessed pages: fetch,
// normalize to markdown, persist, assess, cache. Each URL is processed
// in its own goroutine; one failure never takes down the batch.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/niderhoff/scolar/internal/cache"
	"github.com/niderhoff/scolar/internal/fetch"
	"github.com/niderhoff/scolar/pkg/types"
)

// Fetcher retrieves a resource for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (fetch.Resource, error)
}

// Normalizer converts fetched resources to page content.
type Normalizer interface {
	Page(pageURL, htmlContent string) (*types.PageContent, error)
	Thread(thread *fetch.Thread) *types.PageContent
}

// Persister writes the markdown artifact and returns its path.
type Persister interface {
	WritePage(page types.PageContent) (string, error)
}

// Assessor rates a page against the research prompt.
type Assessor interface {
	Assess(ctx context.Context, researchPrompt string, page types.PageContent) (types.PageAssessment, error)
}

// PageCache stores processed pages between runs.
type PageCache interface {
	Load(url string) (*cache.CachedPage, bool)
	Save(url string, page types.PageContent, assessment types.PageAssessment) error
}

// Config bounds the pipeline's concurrency.
type Config struct {
	// FetchConcurrency caps concurrent fetches; minimum 1.
	FetchConcurrency int

	// LLMConcurrency caps concurrent assessment calls; minimum 1.
	LLMConcurrency int
}

// Pipeline turns URLs into processed pages.
type Pipeline struct {
	fetcher    Fetcher
	normalizer Normalizer
	store      Persister
	assessor   Assessor
	pages      PageCache

	fetchSlots *semaphore.Weighted
	llmSlots   *semaphore.Weighted
	logger     *zap.Logger
}

// New builds a Pipeline. The page cache may be nil to disable caching.
func New(cfg Config, fetcher Fetcher, normalizer Normalizer, store Persister, assessor Assessor, pages PageCache, logger *zap.Logger) *Pipeline {
	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = 1
	}
	if cfg.LLMConcurrency < 1 {
		cfg.LLMConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:    fetcher,
		normalizer: normalizer,
		store:      store,
		assessor:   assessor,
		pages:      pages,
		fetchSlots: semaphore.NewWeighted(int64(cfg.FetchConcurrency)),
		llmSlots:   semaphore.NewWeighted(int64(cfg.LLMConcurrency)),
		logger:     logger,
	}
}

// Gather processes the URLs and returns one processed page per distinct
// URL that succeeded, in first-occurrence order. Cached pages are
// reused unless refresh is set. Failures are logged and skipped.
func (p *Pipeline) Gather(ctx context.Context, urls []string, researchPrompt string, refresh bool) []types.ProcessedPage {
	distinct := dedupe(urls)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]types.ProcessedPage, len(distinct))
	)

	for _, url := range distinct {
		if !refresh && p.pages != nil {
			if cached, ok := p.pages.Load(url); ok {
				p.logger.Info("cache hit",
					zap.String("url", url),
					zap.Time("fetched_at", cached.FetchedAt))
				results[url] = types.ProcessedPage{Page: cached.Page, Assessment: cached.Assessment}
				continue
			}
			p.logger.Info("cache miss, scheduling fetch", zap.String("url", url))
		} else if refresh {
			p.logger.Info("refresh requested, scheduling fetch", zap.String("url", url))
		}

		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			processed, err := p.processURL(ctx, url, researchPrompt)
			if err != nil {
				p.logger.Error("skipping url", zap.String("url", url), zap.Error(err))
				return
			}
			mu.Lock()
			results[url] = *processed
			mu.Unlock()
		}(url)
	}
	wg.Wait()

	ordered := make([]types.ProcessedPage, 0, len(results))
	for _, url := range distinct {
		if processed, ok := results[url]; ok {
			ordered = append(ordered, processed)
		}
	}
	return ordered
}

// processURL runs one URL through fetch, normalize, persist, assess and
// cache. The fetch slot is held only around the fetch and the inference
// slot only around the assessment, so slow model calls never starve the
// fetch pool.
func (p *Pipeline) processURL(ctx context.Context, url, researchPrompt string) (*types.ProcessedPage, error) {
	if err := p.fetchSlots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	resource, err := p.fetcher.Fetch(ctx, url)
	p.fetchSlots.Release(1)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}

	var page *types.PageContent
	switch res := resource.(type) {
	case *fetch.HTMLDocument:
		page, err = p.normalizer.Page(url, res.HTML)
		if err != nil {
			return nil, fmt.Errorf("normalizing: %w", err)
		}
	case *fetch.Thread:
		page = p.normalizer.Thread(res)
	default:
		return nil, fmt.Errorf("unsupported resource type %T", resource)
	}

	if p.store != nil {
		path, err := p.store.WritePage(*page)
		if err != nil {
			return nil, fmt.Errorf("storing markdown: %w", err)
		}
		page.MarkdownPath = path
		p.logger.Info("stored markdown", zap.String("url", url), zap.String("path", path))
	}

	if err := p.llmSlots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	assessment, err := p.assessor.Assess(ctx, researchPrompt, *page)
	p.llmSlots.Release(1)
	if err != nil {
		return nil, fmt.Errorf("assessing: %w", err)
	}

	if p.pages != nil {
		if err := p.pages.Save(url, *page, assessment); err != nil {
			p.logger.Warn("failed to cache page", zap.String("url", url), zap.Error(err))
		}
	}

	return &types.ProcessedPage{Page: *page, Assessment: assessment}, nil
}

// dedupe keeps the first occurrence of each URL.
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var distinct []string
	for _, url := range urls {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		distinct = append(distinct, url)
	}
	return distinct
}
