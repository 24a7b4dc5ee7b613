// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/niderhoff/scolar/pkg/types"
)

const pageCacheDirname = "_cache"

// CachedPage is a previously processed page restored from the cache.
type CachedPage struct {
	Page       types.PageContent
	Assessment types.PageAssessment
	FetchedAt  time.Time
}

type pageRecord struct {
	URL        string               `json:"url"`
	FetchedAt  time.Time            `json:"fetched_at"`
	Page       types.PageContent    `json:"page"`
	Assessment types.PageAssessment `json:"assessment"`
}

// PageCache stores processed pages keyed by URL under
// outputDir/_cache/. Artifact paths are stored relative to the output
// directory whenever possible so the cache survives a directory move.
type PageCache struct {
	store *fileStore
	root  string
}

// NewPageCache opens (and creates if needed) the page cache under
// outputDir.
func NewPageCache(outputDir string, ttl time.Duration, logger *zap.Logger) (*PageCache, error) {
	store, err := newFileStore(filepath.Join(outputDir, pageCacheDirname), ttl, logger)
	if err != nil {
		return nil, err
	}
	return &PageCache{store: store, root: outputDir}, nil
}

// Load returns the cached page for url, or a miss when the record is
// absent, corrupt, incomplete, or older than the TTL. Relative artifact
// paths are resolved against the output directory.
func (c *PageCache) Load(url string) (*CachedPage, bool) {
	var rec pageRecord
	if !c.store.load(url, &rec) {
		return nil, false
	}
	if !c.store.fresh(rec.FetchedAt) {
		return nil, false
	}
	if rec.Page.URL == "" || rec.Assessment.Summary == "" {
		return nil, false
	}

	if p := rec.Page.MarkdownPath; p != "" && !filepath.IsAbs(p) {
		rec.Page.MarkdownPath = filepath.Join(c.root, p)
	}
	return &CachedPage{Page: rec.Page, Assessment: rec.Assessment, FetchedAt: rec.FetchedAt}, true
}

// Save stores the page and its assessment for url, replacing any prior
// record and timestamping it now (UTC). An artifact path outside the
// output directory is kept absolute.
func (c *PageCache) Save(url string, page types.PageContent, assessment types.PageAssessment) error {
	if p := page.MarkdownPath; p != "" {
		if rel, err := filepath.Rel(c.root, p); err == nil && !strings.HasPrefix(rel, "..") {
			page.MarkdownPath = rel
		}
	}

	rec := pageRecord{
		URL:        url,
		FetchedAt:  c.store.now().UTC(),
		Page:       page,
		Assessment: assessment,
	}
	return c.store.save(url, rec)
}
