// Package fallback holds the canned example content served when the archive
// is empty or cannot be queried. Every response built from it is flagged as
// fallback by its caller.
package fallback

import (
	"strings"

	"github.com/TobiSchelling/storyatlas/internal/model"
)

// Catalog is a filterable set of example stories, arcs and per-publication
// conversation contexts.
type Catalog struct {
	stories  []model.RankedStory
	arcs     []model.Arc
	contexts map[string]model.DatasetContext
	noData   model.DatasetContext
}

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		stories:  defaultStories,
		arcs:     defaultArcs,
		contexts: defaultContexts,
		noData: model.DatasetContext{
			Count:     0,
			DateRange: "[MOCK DATA] No date range available",
			TopPeople: []string{},
			Themes:    []string{},
		},
	}
}

// Stories returns the example stories relevant to query: those whose title,
// snippet, story type or publication contains it (case-insensitive). When
// nothing matches, or query is empty, the full set is returned.
func (c *Catalog) Stories(query string) []model.RankedStory {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return clone(c.stories)
	}

	var matches []model.RankedStory
	for _, s := range c.stories {
		if containsFold(s.Title, q) || containsFold(s.Snippet, q) ||
			containsFold(s.StoryType, q) || containsFold(s.Publication, q) {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return clone(c.stories)
	}
	return matches
}

// Arcs returns the example arcs relevant to query, matched against title,
// summary, themes and story type, with the same whole-set fallback as Stories.
func (c *Catalog) Arcs(query string) []model.Arc {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return clone(c.arcs)
	}

	var matches []model.Arc
	for _, a := range c.arcs {
		if containsFold(a.Title, q) || containsFold(a.Summary, q) || containsFold(a.StoryType, q) || anyContainsFold(a.Themes, q) {
			matches = append(matches, a)
		}
	}
	if len(matches) == 0 {
		return clone(c.arcs)
	}
	return matches
}

// Context returns the preset conversation context for a publication.
func (c *Catalog) Context(publication string) (model.DatasetContext, bool) {
	ctx, ok := c.contexts[publication]
	return ctx, ok
}

// ContextOrDefault returns the preset context for publication, or the
// "no data" context when there is none.
func (c *Catalog) ContextOrDefault(publication string) model.DatasetContext {
	if ctx, ok := c.Context(publication); ok {
		return ctx
	}
	return c.noData
}

// containsFold reports whether s contains the already lower-cased needle.
func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}

func anyContainsFold(values []string, lowerNeedle string) bool {
	for _, v := range values {
		if containsFold(v, lowerNeedle) {
			return true
		}
	}
	return false
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
