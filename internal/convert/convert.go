// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert normalizes fetched resources into markdown page content.
package convert

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"github.com/niderhoff/scolar/internal/fetch"
	"github.com/niderhoff/scolar/internal/threads"
	"github.com/niderhoff/scolar/pkg/types"
)

// excessiveLinesRe collapses runs of blank lines for readability.
var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// strippedElements are removed from the document before conversion.
var strippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"svg": true, "img": true, "video": true, "source": true,
}

// Converter normalizes HTML documents and thread resources.
type Converter struct {
	md  *md.Converter
	cfg types.ContentConfig
}

// New returns a Converter using GitHub-flavored markdown output.
func New(cfg types.ContentConfig) *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{md: converter, cfg: cfg}
}

// Page converts an HTML document into normalized page content: title,
// markdown body, outbound links, and a truncation flag.
func (c *Converter) Page(pageURL, htmlContent string) (*types.PageContent, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML for %s: %w", pageURL, err)
	}

	title := extractTitle(doc)
	if title == "" {
		title = pageURL
	}

	links := extractLinks(doc, pageURL, c.cfg.MaxLinksInspected)

	removeElements(doc)
	markdown, err := c.md.ConvertString(renderBody(doc))
	if err != nil {
		return nil, fmt.Errorf("converting %s to markdown: %w", pageURL, err)
	}
	markdown = strings.TrimSpace(excessiveLinesRe.ReplaceAllString(markdown, "\n\n"))
	markdown, truncated := Truncate(markdown, c.cfg.MaxMarkdownChars)

	return &types.PageContent{
		URL:       pageURL,
		Title:     title,
		Markdown:  markdown,
		Links:     links,
		Truncated: truncated,
	}, nil
}

// Thread flattens a thread resource into path-labeled markdown lines.
// Threads carry no outbound links.
func (c *Converter) Thread(thread *fetch.Thread) *types.PageContent {
	markdown := strings.TrimSpace(strings.Join(threads.Flatten(thread), "\n"))
	markdown, truncated := Truncate(markdown, c.cfg.MaxMarkdownChars)

	return &types.PageContent{
		URL:       thread.URL,
		Title:     thread.Title,
		Markdown:  markdown,
		Truncated: truncated,
	}
}

// Truncate cuts markdown at the limit on a line boundary and reports
// whether anything was dropped. A limit of zero disables truncation.
func Truncate(markdown string, limit int) (string, bool) {
	if limit <= 0 || len(markdown) <= limit {
		return markdown, false
	}
	clipped := markdown[:limit]
	if i := strings.LastIndex(clipped, "\n"); i > 0 {
		clipped = clipped[:i]
	}
	return clipped, true
}

// extractTitle returns the text of the document's <title> element.
func extractTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// extractLinks collects deduplicated absolute http(s) anchors, capped at
// limit. Relative hrefs resolve against the page URL.
func extractLinks(doc *html.Node, pageURL string, limit int) []types.LinkInfo {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []types.LinkInfo
	seen := make(map[types.LinkInfo]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if limit > 0 && len(links) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			if link, ok := anchorLink(n, base); ok && !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func anchorLink(n *html.Node, base *url.URL) (types.LinkInfo, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}
	if href == "" {
		return types.LinkInfo{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return types.LinkInfo{}, false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return types.LinkInfo{}, false
	}

	text := strings.Join(strings.Fields(nodeText(n)), " ")
	if text == "" {
		text = abs.String()
	}
	return types.LinkInfo{Title: text, URL: abs.String()}, true
}

func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			parts = append(parts, node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// removeElements unlinks non-content elements from the tree in place.
func removeElements(doc *html.Node) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strippedElements[n.Data] {
			doomed = append(doomed, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// renderBody serializes the document body, or the whole document when
// no body element exists.
func renderBody(doc *html.Node) string {
	target := doc
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "body" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	if body := find(doc); body != nil {
		target = body
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, target); err != nil {
		return ""
	}
	return buf.String()
}
