// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Retries is the number of retry attempts after a failed request.
	// The total number of attempts is Retries+1.
	Retries int `json:"retries" yaml:"retries"`

	// Backoff is the delay before the first retry. It doubles after
	// each failed attempt.
	Backoff time.Duration `json:"backoff" yaml:"backoff"`
}

// FetchConfig holds settings for the retrieval stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Concurrency bounds the number of simultaneous fetches (default 5).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxCommentDepth caps recursion into thread comment replies.
	// Replies below the cap are dropped (default 50).
	MaxCommentDepth int `json:"max_comment_depth" yaml:"max_comment_depth"`
}

// ContentConfig holds settings for page normalization.
type ContentConfig struct {
	// MaxMarkdownChars truncates normalized markdown beyond this length.
	MaxMarkdownChars int `json:"max_markdown_chars" yaml:"max_markdown_chars"`

	// MaxLinksInspected caps the number of outbound links extracted
	// from a page and forwarded to the assessment prompt.
	MaxLinksInspected int `json:"max_links_inspected" yaml:"max_links_inspected"`
}

// OpenAIConfig holds settings for components that call the OpenAI API.
type OpenAIConfig struct {
	// Model is the model identifier (e.g. "gpt-4.1-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates requests. Loaded from the environment or
	// the .secrets/ directory, never written back to disk.
	APIKey string `json:"-" yaml:"-"`

	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout is the per-request timeout for API calls.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Concurrency bounds simultaneous inference calls (default 1).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxRecommendedLinks caps follow-up links kept per assessment.
	MaxRecommendedLinks int `json:"max_recommended_links" yaml:"max_recommended_links"`
}

// AnswerConfig holds settings for final answer synthesis.
type AnswerConfig struct {
	// MaxPages is the number of top-ranked pages given to synthesis.
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// ExcerptChars caps the content excerpt included per page.
	ExcerptChars int `json:"excerpt_chars" yaml:"excerpt_chars"`
}

// DiscoveryConfig holds settings for candidate URL discovery.
type DiscoveryConfig struct {
	// Endpoint is the search endpoint queried for candidate threads.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// ResultLimit caps the number of candidate URLs returned.
	ResultLimit int `json:"result_limit" yaml:"result_limit"`
}

// CacheConfig holds TTLs for the two content caches.
type CacheConfig struct {
	// PageTTL is the maximum age of a cached processed page.
	PageTTL time.Duration `json:"page_ttl" yaml:"page_ttl"`

	// SearchTTL is the maximum age of a cached discovery search hit.
	SearchTTL time.Duration `json:"search_ttl" yaml:"search_ttl"`
}

// Settings is the assembled configuration for one research run.
type Settings struct {
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch"`
	Content   ContentConfig   `json:"content" yaml:"content"`
	OpenAI    OpenAIConfig    `json:"openai" yaml:"openai"`
	Answer    AnswerConfig    `json:"answer" yaml:"answer"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`

	// OutputDir is the base directory for markdown artifacts, caches,
	// and the run library.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}
