// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discovery finds candidate URLs for a research prompt via
// subreddit search, with cached results to keep reruns cheap.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/niderhoff/scolar/internal/cache"
	"github.com/niderhoff/scolar/internal/httputil"
	"github.com/niderhoff/scolar/pkg/types"
)

// DefaultEndpoint is the subreddit search endpoint used when the
// configuration leaves it empty.
const DefaultEndpoint = "https://www.reddit.com/r/localllama/search.json"

const defaultResultLimit = 10

// searchListing mirrors the subset of the Reddit search payload we
// harvest URLs from.
type searchListing struct {
	Data struct {
		Children []struct {
			Data struct {
				URL       string `json:"url"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Discoverer searches a subreddit for candidate URLs.
type Discoverer struct {
	endpoint string
	limit    int
	http     types.HTTPConfig
	client   *http.Client
	hits     *cache.SearchHitCache
	logger   *zap.Logger
}

// New builds a Discoverer. The cache may be nil, in which case every
// call searches.
func New(cfg types.DiscoveryConfig, httpCfg types.HTTPConfig, hits *cache.SearchHitCache, logger *zap.Logger) *Discoverer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	limit := cfg.ResultLimit
	if limit <= 0 {
		limit = defaultResultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		endpoint: endpoint,
		limit:    limit,
		http:     httpCfg,
		client:   &http.Client{Timeout: httpCfg.Timeout},
		hits:     hits,
		logger:   logger,
	}
}

// Discover returns up to the configured limit of candidate URLs for the
// prompt, deduplicated case-insensitively in result order. Cached
// results are served unless refresh is set; fresh results are cached.
func (d *Discoverer) Discover(ctx context.Context, prompt string, refresh bool) ([]string, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("discovery needs a prompt")
	}

	if !refresh && d.hits != nil {
		if hit, ok := d.hits.Load(prompt); ok {
			d.logger.Info("using cached search results",
				zap.String("prompt", prompt),
				zap.Time("fetched_at", hit.FetchedAt))
			return dedupeURLs(hit.URLs, d.limit), nil
		}
	}

	urls, err := d.search(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if len(urls) > 0 && d.hits != nil {
		if err := d.hits.Save(prompt, urls); err != nil {
			d.logger.Warn("failed to cache search results", zap.Error(err))
		}
	}
	return urls, nil
}

func (d *Discoverer) search(ctx context.Context, prompt string) ([]string, error) {
	params := url.Values{
		"q":               {prompt},
		"restrict_sr":     {"1"},
		"sort":            {"relevance"},
		"limit":           {strconv.Itoa(d.limit)},
		"include_over_18": {"on"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("User-Agent", d.http.UserAgent)

	d.logger.Info("searching for candidate urls",
		zap.String("prompt", prompt),
		zap.Int("limit", d.limit))

	resp, err := httputil.DoWithRetry(ctx, d.client, req, httputil.Policy{
		Retries: d.http.Retries,
		Backoff: d.http.Backoff,
	})
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: HTTP %d", resp.StatusCode)
	}

	var listing searchListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	var urls []string
	for _, child := range listing.Data.Children {
		if u := child.Data.URL; u != "" {
			urls = append(urls, u)
		}
		if p := child.Data.Permalink; p != "" {
			urls = append(urls, "https://www.reddit.com"+p)
		}
	}

	deduped := dedupeURLs(urls, d.limit)
	d.logger.Info("search yielded candidate urls", zap.Int("count", len(deduped)))
	return deduped, nil
}

// dedupeURLs trims, drops empties and case-insensitive duplicates, and
// caps the result at limit.
func dedupeURLs(urls []string, limit int) []string {
	seen := make(map[string]struct{}, len(urls))
	var result []string
	for _, u := range urls {
		normalized := strings.TrimSpace(u)
		if normalized == "" {
			continue
		}
		lowered := strings.ToLower(normalized)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		result = append(result, normalized)
		if len(result) >= limit {
			break
		}
	}
	return result
}
