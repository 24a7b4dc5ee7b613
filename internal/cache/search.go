// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const searchCacheDirname = "search_hits"

// SearchHit is a cached discovery result for one prompt.
type SearchHit struct {
	Prompt    string    `json:"prompt"`
	URLs      []string  `json:"urls"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SearchHitCache stores discovery results keyed by prompt text under
// outputDir/_cache/search_hits/, separate from the page cache.
type SearchHitCache struct {
	store *fileStore
}

// NewSearchHitCache opens (and creates if needed) the search-hit cache
// under outputDir.
func NewSearchHitCache(outputDir string, ttl time.Duration, logger *zap.Logger) (*SearchHitCache, error) {
	dir := filepath.Join(outputDir, pageCacheDirname, searchCacheDirname)
	store, err := newFileStore(dir, ttl, logger)
	if err != nil {
		return nil, err
	}
	return &SearchHitCache{store: store}, nil
}

// Load returns the cached hit for prompt. Entries with no usable URLs
// read as a miss.
func (c *SearchHitCache) Load(prompt string) (*SearchHit, bool) {
	var hit SearchHit
	if !c.store.load(prompt, &hit) {
		return nil, false
	}
	if !c.store.fresh(hit.FetchedAt) {
		return nil, false
	}

	var urls []string
	for _, u := range hit.URLs {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if len(urls) == 0 {
		return nil, false
	}

	hit.Prompt = prompt
	hit.URLs = urls
	return &hit, true
}

// Save stores the discovered URLs for prompt, timestamped now (UTC).
func (c *SearchHitCache) Save(prompt string, urls []string) error {
	return c.store.save(prompt, SearchHit{
		Prompt:    prompt,
		URLs:      urls,
		FetchedAt: c.store.now().UTC(),
	})
}
