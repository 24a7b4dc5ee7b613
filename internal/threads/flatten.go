// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package threads flattens a comment tree into path-labeled lines.
package threads

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/niderhoff/scolar/internal/fetch"
)

const anonymousAuthor = "Anonymous"

// CleanHTML strips markup from an HTML fragment, unescapes entities, and
// collapses whitespace into single spaces.
func CleanHTML(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// Flatten renders a thread as one line per node in the form
// "[path] author: text". The root post is path "1", the k-th top-level
// comment "1.k", and the j-th reply to path P is "P.j". Sibling order is
// preserved as received. Pure function: deterministic, no I/O.
func Flatten(thread *fetch.Thread) []string {
	author := thread.Author
	if author == "" {
		author = anonymousAuthor
	}

	body := CleanHTML(thread.BodyHTML)
	content := thread.Title
	if body != "" {
		content = thread.Title + " - " + body
	}

	lines := []string{fmt.Sprintf("[1] %s: %s", author, content)}
	for i, comment := range thread.Comments {
		appendCommentLines(&lines, comment, fmt.Sprintf("1.%d", i+1))
	}
	return lines
}

func appendCommentLines(lines *[]string, comment fetch.Comment, path string) {
	author := comment.Author
	if author == "" {
		author = anonymousAuthor
	}
	*lines = append(*lines, fmt.Sprintf("[%s] %s: %s", path, author, CleanHTML(comment.BodyHTML)))

	for i, child := range comment.Children {
		appendCommentLines(lines, child, fmt.Sprintf("%s.%d", path, i+1))
	}
}
