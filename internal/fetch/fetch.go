// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves web resources with retry and validation.
// A resource is either a generic HTML document or a thread-structured
// discussion recognized by its host name.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/niderhoff/scolar/internal/httputil"
	"github.com/niderhoff/scolar/pkg/types"
)

// maxBodyBytes limits response bodies to prevent memory exhaustion.
const maxBodyBytes = 10 * 1024 * 1024 // 10MB

// sleep waits for the backoff interval. Package-level var so tests can
// record intervals without real delays.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Resource is a fetched web resource: *HTMLDocument or *Thread.
type Resource interface {
	isResource()
}

// HTMLDocument is a generic HTML page.
type HTMLDocument struct {
	URL  string
	HTML string
}

func (*HTMLDocument) isResource() {}

// Thread is a structured discussion: a post plus nested comments.
type Thread struct {
	ID       string
	URL      string
	Title    string
	Author   string
	BodyHTML string
	Score    int
	Comments []Comment
}

func (*Thread) isResource() {}

// Comment is one node of a thread's comment tree. Each comment
// exclusively owns its children; there are no parent back-references.
type Comment struct {
	ID       string
	Author   string
	BodyHTML string
	Score    int
	Children []Comment
}

// Client fetches resources. It keeps no state between calls beyond the
// shared HTTP client.
type Client struct {
	httpClient *http.Client
	cfg        types.FetchConfig
	logger     *zap.Logger
}

// NewClient returns a Client using the given HTTP client and settings.
// A nil client gets a default one with the configured timeout; a nil
// logger disables logging.
func NewClient(httpClient *http.Client, cfg types.FetchConfig, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, cfg: cfg, logger: logger}
}

// Fetch retrieves a single URL. Thread URLs are fetched through their
// JSON listing form; a malformed listing falls back to generic HTML.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Resource, error) {
	if listingURL, ok := threadListingURL(rawURL); ok {
		thread, err := c.fetchThread(ctx, rawURL, listingURL)
		if err == nil {
			return thread, nil
		}
		c.logger.Warn("thread fetch failed, falling back to HTML",
			zap.String("url", rawURL), zap.Error(err))
	}

	html, err := c.fetchHTML(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &HTMLDocument{URL: rawURL, HTML: html}, nil
}

// fetchHTML retrieves a URL and validates the declared content type.
// Anything other than HTML or XHTML is a non-retryable failure.
func (c *Client) fetchHTML(ctx context.Context, rawURL string) (string, error) {
	body, contentType, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	ct := strings.ToLower(contentType)
	if !strings.Contains(ct, "text/html") && !strings.Contains(ct, "application/xhtml+xml") {
		return "", fmt.Errorf("unsupported content type %q for %s", contentType, rawURL)
	}
	return string(body), nil
}

// get performs a GET with up to Retries+1 attempts. Transport errors,
// 429, and 5xx responses are retried with doubling backoff; any other
// non-2xx status fails immediately.
func (c *Client) get(ctx context.Context, rawURL string) (body []byte, contentType string, err error) {
	attempts := c.cfg.Retries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := c.cfg.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Debug("fetching",
			zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Int("attempts", attempts))

		data, status, ct, reqErr := c.doGet(ctx, rawURL)
		switch {
		case reqErr != nil:
			lastErr = reqErr
			c.logger.Warn("request error", zap.String("url", rawURL), zap.Error(reqErr))
		case status >= 200 && status < 300:
			return data, ct, nil
		case !httputil.RetryableStatus(status):
			return nil, "", fmt.Errorf("fetch %s: HTTP %d", rawURL, status)
		default:
			lastErr = fmt.Errorf("HTTP %d", status)
			c.logger.Warn("retryable HTTP error",
				zap.String("url", rawURL), zap.Int("status", status))
		}

		if attempt < attempts {
			if werr := sleep(ctx, backoff); werr != nil {
				return nil, "", werr
			}
			backoff *= 2
		}
	}

	return nil, "", fmt.Errorf("fetch %s failed after %d attempts: %w", rawURL, attempts, lastErr)
}

// doGet performs a single GET attempt.
func (c *Client) doGet(ctx context.Context, rawURL string) (body []byte, status int, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, "", err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, "", err
	}
	return data, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}
