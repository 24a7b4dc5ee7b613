// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchPlan is the structured output of query expansion: the queries
// and keywords a researcher would feed to a web search engine.
type SearchPlan struct {
	PrimaryQuery    string   `json:"primary_query"`
	ExpandedQueries []string `json:"expanded_queries"`
	FocusTopics     []string `json:"focus_topics"`
	SiteFilters     []string `json:"site_filters"`
	Notes           string   `json:"notes,omitempty"`
}
