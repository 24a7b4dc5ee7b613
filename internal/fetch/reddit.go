// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"
)

// defaultMaxCommentDepth bounds comment recursion when the config does
// not set a cap. Externally supplied nesting depth is never trusted
// unconditionally.
const defaultMaxCommentDepth = 50

// threadListingURL reports whether rawURL points at a Reddit thread and,
// if so, returns the machine-readable JSON listing URL for it. Trailing
// slashes and an existing .json suffix are both handled.
func threadListingURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com") {
		return "", false
	}
	if !strings.Contains(u.Path, "/comments/") {
		return "", false
	}

	p := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(p, ".json") {
		p += ".json"
	}
	u.Path = p
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), true
}

// redditListing mirrors one element of the two-element thread listing.
type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []redditChild `json:"children"`
	} `json:"data"`
}

// redditChild is a tagged entry inside a listing. Data stays raw until
// the kind tag decides its shape.
type redditChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type redditPost struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	SelftextHTML string `json:"selftext_html"`
	Score        int    `json:"score"`
}

type redditComment struct {
	ID       string          `json:"id"`
	Author   string          `json:"author"`
	BodyHTML string          `json:"body_html"`
	Score    int             `json:"score"`
	Replies  json.RawMessage `json:"replies"`
}

// fetchThread retrieves the JSON listing for a thread URL and parses it.
func (c *Client) fetchThread(ctx context.Context, originalURL, listingURL string) (*Thread, error) {
	body, _, err := c.get(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	maxDepth := c.cfg.MaxCommentDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxCommentDepth
	}
	return parseThreadListing(body, originalURL, maxDepth)
}

// parseThreadListing decodes a two-element thread listing: element 0 is
// the post listing, element 1 the comment listing. Any shape mismatch is
// a parse error, never a panic; the caller falls back to generic HTML.
func parseThreadListing(data []byte, originalURL string, maxDepth int) (*Thread, error) {
	var listings []redditListing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("decoding thread listing: %w", err)
	}
	if len(listings) != 2 {
		return nil, fmt.Errorf("thread listing has %d elements, want 2", len(listings))
	}
	if len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("thread listing has no post entry")
	}

	var post redditPost
	if err := json.Unmarshal(listings[0].Data.Children[0].Data, &post); err != nil {
		return nil, fmt.Errorf("decoding post entry: %w", err)
	}
	if post.Title == "" {
		return nil, fmt.Errorf("post entry has no title")
	}

	// The listing carries body HTML entity-escaped inside JSON strings.
	return &Thread{
		ID:       post.ID,
		URL:      originalURL,
		Title:    post.Title,
		Author:   post.Author,
		BodyHTML: html.UnescapeString(post.SelftextHTML),
		Score:    post.Score,
		Comments: parseComments(listings[1].Data.Children, 1, maxDepth),
	}, nil
}

// parseComments converts listing children into the owned comment tree.
// Only "t1" (comment) entries are kept; "more" markers and other kinds
// are skipped. Replies beyond maxDepth are dropped.
func parseComments(children []redditChild, depth, maxDepth int) []Comment {
	var comments []Comment
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var rc redditComment
		if err := json.Unmarshal(child.Data, &rc); err != nil {
			continue
		}

		comment := Comment{
			ID:       rc.ID,
			Author:   rc.Author,
			BodyHTML: html.UnescapeString(rc.BodyHTML),
			Score:    rc.Score,
		}
		if depth < maxDepth {
			if replies, ok := decodeReplies(rc.Replies); ok {
				comment.Children = parseComments(replies, depth+1, maxDepth)
			}
		}
		comments = append(comments, comment)
	}
	return comments
}

// decodeReplies unpacks the replies field, which is either an empty
// string, null, or a nested listing.
func decodeReplies(raw json.RawMessage) ([]redditChild, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == `""` || trimmed == "null" {
		return nil, false
	}
	var listing redditListing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, false
	}
	return listing.Data.Children, true
}
