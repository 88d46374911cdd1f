// Package model holds the JSON shapes shared by the search, discovery and
// pitch services and their transports.
package model

// RankedStory is a story as returned by search.
type RankedStory struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Publication    string  `json:"publication"`
	Date           string  `json:"date"` // YYYY-MM-DD
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevanceScore"`
	StoryType      string  `json:"storyType"`
}

// Arc is a narrative grouping of stories computed from a result set.
type Arc struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	StoryCount int      `json:"storyCount"`
	Timespan   string   `json:"timespan"`
	Summary    string   `json:"summary"`
	Themes     []string `json:"themes"`
	StoryType  string   `json:"storyType"`
}

// DatasetContext summarises the story set behind a pitch conversation.
type DatasetContext struct {
	Count     int      `json:"count"`
	DateRange string   `json:"dateRange"`
	TopPeople []string `json:"topPeople"`
	Themes    []string `json:"themes"`
}

// NamedCount is an entity with its number of mentions.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TermCount is a keyword with its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// EntitySummary groups extracted entities by kind.
type EntitySummary struct {
	People        []NamedCount `json:"people"`
	Places        []NamedCount `json:"places"`
	Organizations []NamedCount `json:"organizations"`
}

// NotableStory is a long story picked for the discovery summary.
type NotableStory struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Date    string `json:"date"`
}

// DiscoverySummary is the analytic snapshot of a publication over a window.
type DiscoverySummary struct {
	EntitySummary  EntitySummary  `json:"entity_summary"`
	TopKeywords    []TermCount    `json:"top_keywords"`
	TopThemes      []string       `json:"top_themes"`
	NotableStories []NotableStory `json:"notable_stories"`
}
