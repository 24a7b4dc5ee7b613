// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage writes page markdown artifacts and their metadata
// sidecars into the output directory.
package storage

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/niderhoff/scolar/pkg/types"
)

const (
	maxSlugLength = 80
	hashLength    = 8
)

var slugCleanup = regexp.MustCompile(`[^a-z0-9-]+`)

// Sidecar is the YAML metadata written next to each markdown artifact.
type Sidecar struct {
	URL       string           `yaml:"url"`
	Title     string           `yaml:"title"`
	Truncated bool             `yaml:"truncated,omitempty"`
	Links     []types.LinkInfo `yaml:"links,omitempty"`
	StoredAt  time.Time        `yaml:"stored_at"`
}

// Store persists markdown artifacts under a root directory.
type Store struct {
	root string
	now  func() time.Time
}

// New creates the output directory if needed and returns a Store over
// it.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &Store{root: root, now: time.Now}, nil
}

// WritePage writes the page markdown as <slug>.md with a <slug>.yaml
// metadata sidecar and returns the markdown path.
func (s *Store) WritePage(page types.PageContent) (string, error) {
	slug := BuildSlug(page)

	mdPath := filepath.Join(s.root, slug+".md")
	if err := os.WriteFile(mdPath, []byte(page.Markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown for %s: %w", page.URL, err)
	}

	meta, err := yaml.Marshal(Sidecar{
		URL:       page.URL,
		Title:     page.Title,
		Truncated: page.Truncated,
		Links:     page.Links,
		StoredAt:  s.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("encoding sidecar for %s: %w", page.URL, err)
	}
	if err := os.WriteFile(filepath.Join(s.root, slug+".yaml"), meta, 0o644); err != nil {
		return "", fmt.Errorf("writing sidecar for %s: %w", page.URL, err)
	}

	return mdPath, nil
}

// BuildSlug derives a stable filename stem for the page: a slug of the
// title (falling back to URL host, then path, then "page") capped so
// that slug plus an 8-hex URL digest stays within 80 characters.
func BuildSlug(page types.PageContent) string {
	base := baseSlug(page)

	digest := sha256.Sum256([]byte(page.URL))
	suffix := fmt.Sprintf("%x", digest)[:hashLength]

	maxBase := maxSlugLength - hashLength - 1
	trimmed := strings.TrimRight(truncateString(base, maxBase), "-")
	if trimmed == "" {
		trimmed = "page"
	}
	return trimmed + "-" + suffix
}

func baseSlug(page types.PageContent) string {
	if slug := slugify(page.Title); slug != "" {
		return slug
	}
	if parsed, err := url.Parse(page.URL); err == nil {
		for _, part := range []string{parsed.Host, parsed.Path} {
			if slug := slugify(part); slug != "" {
				return slug
			}
		}
	}
	return "page"
}

func slugify(text string) string {
	base := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(text)), " ", "-")
	return slugCleanup.ReplaceAllString(base, "")
}

func truncateString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
