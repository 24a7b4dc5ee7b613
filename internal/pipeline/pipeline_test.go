// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niderhoff/scolar/internal/cache"
	"github.com/niderhoff/scolar/internal/fetch"
	"github.com/niderhoff/scolar/pkg/types"
)

// stubFetcher serves canned resources and counts in-flight calls so
// tests can observe the concurrency bound.
type stubFetcher struct {
	resources map[string]fetch.Resource
	errs      map[string]error
	delay     time.Duration

	calls     int32
	inFlight  int32
	maxActive int32
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (fetch.Resource, error) {
	atomic.AddInt32(&f.calls, 1)
	active := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxActive)
		if active <= max || atomic.CompareAndSwapInt32(&f.maxActive, max, active) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	atomic.AddInt32(&f.inFlight, -1)

	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if res, ok := f.resources[rawURL]; ok {
		return res, nil
	}
	return &fetch.HTMLDocument{URL: rawURL, HTML: "<html><head><title>T</title></head><body>body</body></html>"}, nil
}

type stubNormalizer struct{}

func (stubNormalizer) Page(pageURL, _ string) (*types.PageContent, error) {
	return &types.PageContent{URL: pageURL, Title: "Title " + pageURL, Markdown: "content " + pageURL}, nil
}

func (stubNormalizer) Thread(thread *fetch.Thread) *types.PageContent {
	return &types.PageContent{URL: thread.URL, Title: thread.Title, Markdown: "thread " + thread.URL}
}

type stubStore struct {
	mu    sync.Mutex
	paths map[string]string
}

func (s *stubStore) WritePage(page types.PageContent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paths == nil {
		s.paths = make(map[string]string)
	}
	path := "/artifacts/" + strings.ReplaceAll(page.URL, "/", "_") + ".md"
	s.paths[page.URL] = path
	return path, nil
}

type stubAssessor struct {
	errs  map[string]error
	delay time.Duration

	inFlight  int32
	maxActive int32
}

func (a *stubAssessor) Assess(_ context.Context, _ string, page types.PageContent) (types.PageAssessment, error) {
	active := atomic.AddInt32(&a.inFlight, 1)
	for {
		max := atomic.LoadInt32(&a.maxActive)
		if active <= max || atomic.CompareAndSwapInt32(&a.maxActive, max, active) {
			break
		}
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	atomic.AddInt32(&a.inFlight, -1)

	if err, ok := a.errs[page.URL]; ok {
		return types.PageAssessment{}, err
	}
	return types.PageAssessment{
		Summary:        "summary " + page.URL,
		TechnicalDepth: types.Score{Rating: 3, Justification: "d"},
		PromptFit:      types.Score{Rating: 3, Justification: "f"},
	}, nil
}

func newPageCache(t *testing.T) *cache.PageCache {
	t.Helper()
	c, err := cache.NewPageCache(t.TempDir(), time.Hour, nil)
	require.NoError(t, err)
	return c
}

func newPipeline(t *testing.T, cfg Config, fetcher *stubFetcher, assessor *stubAssessor, pages PageCache) *Pipeline {
	t.Helper()
	return New(cfg, fetcher, stubNormalizer{}, &stubStore{}, assessor, pages, nil)
}

func urlsOf(pages []types.ProcessedPage) []string {
	var urls []string
	for _, p := range pages {
		urls = append(urls, p.Page.URL)
	}
	return urls
}

func TestGather_OnePagePerDistinctURLInOrder(t *testing.T) {
	fetcher := &stubFetcher{errs: map[string]error{"https://b": fmt.Errorf("HTTP 404")}}
	assessor := &stubAssessor{}
	p := newPipeline(t, Config{FetchConcurrency: 4, LLMConcurrency: 2}, fetcher, assessor, newPageCache(t))

	got := p.Gather(context.Background(), []string{"https://a", "https://a", "https://b"}, "prompt", false)

	// One result for the duplicated url, none for the failed one.
	assert.Equal(t, []string{"https://a"}, urlsOf(got))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
}

func TestGather_PreservesFirstOccurrenceOrder(t *testing.T) {
	fetcher := &stubFetcher{delay: time.Millisecond}
	p := newPipeline(t, Config{FetchConcurrency: 4, LLMConcurrency: 4}, fetcher, &stubAssessor{}, newPageCache(t))

	urls := []string{"https://c", "https://a", "https://b", "https://a"}
	got := p.Gather(context.Background(), urls, "prompt", false)

	assert.Equal(t, []string{"https://c", "https://a", "https://b"}, urlsOf(got))
}

func TestGather_CacheHitSkipsFetch(t *testing.T) {
	pages := newPageCache(t)
	fetcher := &stubFetcher{}
	p := newPipeline(t, Config{FetchConcurrency: 2, LLMConcurrency: 1}, fetcher, &stubAssessor{}, pages)

	first := p.Gather(context.Background(), []string{"https://a"}, "prompt", false)
	require.Len(t, first, 1)
	require.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))

	second := p.Gather(context.Background(), []string{"https://a"}, "prompt", false)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Assessment.Summary, second[0].Assessment.Summary)
	// Still one fetch: the second run was served from the cache.
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestGather_RefreshBypassesCache(t *testing.T) {
	pages := newPageCache(t)
	fetcher := &stubFetcher{}
	p := newPipeline(t, Config{FetchConcurrency: 2, LLMConcurrency: 1}, fetcher, &stubAssessor{}, pages)

	p.Gather(context.Background(), []string{"https://a"}, "prompt", false)
	p.Gather(context.Background(), []string{"https://a"}, "prompt", true)

	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
}

func TestGather_AssessmentFailureIsolated(t *testing.T) {
	assessor := &stubAssessor{errs: map[string]error{"https://bad": fmt.Errorf("model refused")}}
	p := newPipeline(t, Config{FetchConcurrency: 4, LLMConcurrency: 2}, &stubFetcher{}, assessor, newPageCache(t))

	got := p.Gather(context.Background(), []string{"https://ok1", "https://bad", "https://ok2"}, "prompt", false)

	assert.Equal(t, []string{"https://ok1", "https://ok2"}, urlsOf(got))
}

func TestGather_FetchConcurrencyBound(t *testing.T) {
	fetcher := &stubFetcher{delay: 20 * time.Millisecond}
	p := newPipeline(t, Config{FetchConcurrency: 1, LLMConcurrency: 4}, fetcher, &stubAssessor{}, nil)

	urls := []string{"https://a", "https://b", "https://c", "https://d"}
	got := p.Gather(context.Background(), urls, "prompt", false)

	require.Len(t, got, 4)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.maxActive))
}

func TestGather_InferenceConcurrencyBound(t *testing.T) {
	assessor := &stubAssessor{delay: 20 * time.Millisecond}
	p := newPipeline(t, Config{FetchConcurrency: 4, LLMConcurrency: 1}, &stubFetcher{}, assessor, nil)

	urls := []string{"https://a", "https://b", "https://c", "https://d"}
	got := p.Gather(context.Background(), urls, "prompt", false)

	require.Len(t, got, 4)
	assert.Equal(t, int32(1), atomic.LoadInt32(&assessor.maxActive))
}

func TestGather_StoresMarkdownAndCachesResult(t *testing.T) {
	pages := newPageCache(t)
	p := newPipeline(t, Config{FetchConcurrency: 1, LLMConcurrency: 1}, &stubFetcher{}, &stubAssessor{}, pages)

	got := p.Gather(context.Background(), []string{"https://a"}, "prompt", false)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].Page.MarkdownPath)

	cached, ok := pages.Load("https://a")
	require.True(t, ok)
	assert.Equal(t, got[0].Assessment, cached.Assessment)
}

func TestGather_ThreadResource(t *testing.T) {
	thread := &fetch.Thread{
		ID:    "abc",
		URL:   "https://www.reddit.com/r/localllama/comments/abc/post/",
		Title: "Thread Title",
	}
	fetcher := &stubFetcher{resources: map[string]fetch.Resource{thread.URL: thread}}
	p := newPipeline(t, Config{FetchConcurrency: 1, LLMConcurrency: 1}, fetcher, &stubAssessor{}, nil)

	got := p.Gather(context.Background(), []string{thread.URL}, "prompt", false)
	require.Len(t, got, 1)
	assert.Equal(t, "Thread Title", got[0].Page.Title)
	assert.Equal(t, "thread "+thread.URL, got[0].Page.Markdown)
}

func TestGather_NoURLs(t *testing.T) {
	p := newPipeline(t, Config{FetchConcurrency: 1, LLMConcurrency: 1}, &stubFetcher{}, &stubAssessor{}, nil)
	got := p.Gather(context.Background(), nil, "prompt", false)
	assert.Empty(t, got)
}
