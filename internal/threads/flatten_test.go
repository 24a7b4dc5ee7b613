// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package threads

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/niderhoff/scolar/internal/fetch"
)

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips markup", "<div>First &amp; second<br>line</div>", "First & second line"},
		{"collapses whitespace", "<p>a\n\n  b\tc</p>", "a b c"},
		{"drops script content", "<p>keep</p><script>var x = 1;</script>", "keep"},
		{"empty input", "", ""},
		{"nested emphasis", "<p>Reply <em>text</em></p>", "Reply text"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanHTML(tc.in))
		})
	}
}

func TestFlatten_NestedComments(t *testing.T) {
	thread := &fetch.Thread{
		ID:       "abc",
		URL:      "https://www.reddit.com/r/test/comments/abc/thread/",
		Title:    "Thread Title",
		Author:   "op_user",
		BodyHTML: "<p>OP Body</p>",
		Score:    42,
		Comments: []fetch.Comment{
			{
				ID:       "c1",
				Author:   "user1",
				BodyHTML: "<p>Comment 1</p>",
				Score:    10,
				Children: []fetch.Comment{
					{
						ID:       "c2",
						Author:   "user2",
						BodyHTML: "<p>Reply <em>text</em></p>",
						Score:    5,
					},
				},
			},
		},
	}

	assert.Equal(t, []string{
		"[1] op_user: Thread Title - OP Body",
		"[1.1] user1: Comment 1",
		"[1.1.1] user2: Reply text",
	}, Flatten(thread))
}

func TestFlatten_TitleOnlyWhenBodyEmpty(t *testing.T) {
	thread := &fetch.Thread{Title: "Just a Title", Author: "op"}
	assert.Equal(t, []string{"[1] op: Just a Title"}, Flatten(thread))
}

func TestFlatten_AnonymousAuthors(t *testing.T) {
	thread := &fetch.Thread{
		Title:    "T",
		BodyHTML: "<p>b</p>",
		Comments: []fetch.Comment{
			{BodyHTML: "<p>c</p>"},
		},
	}

	lines := Flatten(thread)
	assert.Equal(t, "[1] Anonymous: T - b", lines[0])
	assert.Equal(t, "[1.1] Anonymous: c", lines[1])
}

func TestFlatten_SiblingOrderPreserved(t *testing.T) {
	thread := &fetch.Thread{
		Title:  "T",
		Author: "op",
		Comments: []fetch.Comment{
			{Author: "a", BodyHTML: "first"},
			{Author: "b", BodyHTML: "second", Children: []fetch.Comment{
				{Author: "c", BodyHTML: "reply"},
			}},
			{Author: "d", BodyHTML: "third"},
		},
	}

	assert.Equal(t, []string{
		"[1] op: T",
		"[1.1] a: first",
		"[1.2] b: second",
		"[1.2.1] c: reply",
		"[1.3] d: third",
	}, Flatten(thread))
}
