package search

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/storyatlas/internal/model"
)

// DefaultStoryType is the label used when no classifier rule matches.
const DefaultStoryType = "Historical Arc with Forgotten Details"

type storyTypeRule struct {
	keywords []string
	label    string
}

// First match wins.
var storyTypeRules = []storyTypeRule{
	{[]string{"crime", "murder", "killer"}, "True Crime Potential"},
	{[]string{"politics", "government"}, "Political Thriller with Hidden Consequences"},
	{[]string{"sports", "game"}, "Sports Narrative with Unexpected Complexity"},
	{[]string{"war", "conflict"}, "Conflict Chronicle with Human Impact"},
}

// Classify derives a narrative label from the query text.
func Classify(query string) string {
	q := strings.ToLower(query)
	for _, rule := range storyTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.label
			}
		}
	}
	return DefaultStoryType
}

// Snippet cuts text to n characters plus "..." when it is longer than n;
// shorter text is returned unchanged.
func Snippet(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

var arcThemes = []string{"Historical Events", "Local Impact", "Public Response"}

// BuildArcs groups stories by publication, in order of first appearance, and
// emits one arc per group spanning the group's earliest to latest date.
func BuildArcs(stories []model.RankedStory, query string) []model.Arc {
	arcs := []model.Arc{}
	if len(stories) == 0 {
		return arcs
	}

	type group struct {
		publication string
		count       int
		min, max    string
	}
	var groups []*group
	byPub := make(map[string]*group)
	for _, s := range stories {
		g, ok := byPub[s.Publication]
		if !ok {
			g = &group{publication: s.Publication, min: s.Date, max: s.Date}
			byPub[s.Publication] = g
			groups = append(groups, g)
		}
		g.count++
		// YYYY-MM-DD compares lexically.
		if s.Date < g.min {
			g.min = s.Date
		}
		if s.Date > g.max {
			g.max = s.Date
		}
	}

	storyType := Classify(query)
	for i, g := range groups {
		arcs = append(arcs, model.Arc{
			ID:         fmt.Sprintf("arc-%d", i),
			Title:      fmt.Sprintf("%s Coverage: %s", g.publication, query),
			StoryCount: g.count,
			Timespan:   fmt.Sprintf("%s to %s", g.min, g.max),
			Summary: fmt.Sprintf("A collection of stories from %s covering various aspects of %s. "+
				"These stories reveal interesting patterns and connections that could form the basis of a compelling narrative.",
				g.publication, query),
			Themes:    append([]string(nil), arcThemes...),
			StoryType: storyType,
		})
	}
	return arcs
}

var serialKillerFollowups = []string{
	"Explore the psychological profiles behind notorious serial killers",
	"Find cases where serial killers evaded detection for decades",
	"Discover unsolved serial killer cases that remain mysteries today",
	"Uncover patterns connecting multiple serial killer investigations",
	"Compare media coverage of different serial killer cases over time",
}

// Followups suggests three to five next queries.
func Followups(query string, stories []model.RankedStory) []string {
	q := strings.ToLower(query)
	if strings.Contains(q, "serial") && strings.Contains(q, "killer") {
		return append([]string(nil), serialKillerFollowups...)
	}

	out := []string{
		fmt.Sprintf("Explore forgotten human stories behind %s", query),
		fmt.Sprintf("Uncover the narrative potential in %s", query),
		fmt.Sprintf("Find the dramatic arcs connecting %s to larger events", query),
	}
	if len(stories) == 0 {
		return out
	}

	pubs := make(map[string]struct{})
	years := make(map[string]struct{})
	for _, s := range stories {
		pubs[s.Publication] = struct{}{}
		if len(s.Date) >= 4 {
			years[s.Date[:4]] = struct{}{}
		}
	}
	if len(pubs) > 1 {
		out = append(out, fmt.Sprintf("Compare how different publications covered %s", query))
	}
	if len(years) > 1 {
		out = append(out, fmt.Sprintf("See how coverage of %s evolved over time", query))
	}
	return out
}
