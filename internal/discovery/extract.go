package discovery

import (
	"regexp"
	"sort"
	"strings"

	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/model"
)

// EntityExtractor finds people, places and organizations in a story set.
type EntityExtractor interface {
	Entities(stories []database.Story, n int) model.EntitySummary
}

// KeywordExtractor ranks the most frequent meaningful terms in a story set.
type KeywordExtractor interface {
	Keywords(stories []database.Story, n int) []model.TermCount
}

var (
	personPattern = regexp.MustCompile(`\b(?:Mr\.|Mrs\.|Dr\.|Ms\.|Prof\.) [A-Z][a-z]+(?: [A-Z][a-z]+)?`)
	orgPattern    = regexp.MustCompile(`\b(?:[A-Z][a-z]+ ){1,4}(?:Association|Company|Corporation|Department|Agency|Committee|Council|Board|Commission)`)
	nonWord       = regexp.MustCompile(`\W+`)
	digitsOnly    = regexp.MustCompile(`^\d+$`)
)

// HeuristicEntities extracts entities with title and suffix patterns. Places
// come from the story's location field rather than the text.
type HeuristicEntities struct{}

func (HeuristicEntities) Entities(stories []database.Story, n int) model.EntitySummary {
	people := newCounter()
	places := newCounter()
	orgs := newCounter()

	for _, s := range stories {
		text := s.Text()
		for _, m := range personPattern.FindAllString(text, -1) {
			people.add(m)
		}
		if s.Location != nil && *s.Location != "" {
			places.add(*s.Location)
		}
		for _, m := range orgPattern.FindAllString(text, -1) {
			orgs.add(m)
		}
	}

	return model.EntitySummary{
		People:        namedCounts(people.top(n)),
		Places:        namedCounts(places.top(n)),
		Organizations: namedCounts(orgs.top(n)),
	}
}

var stopwords = map[string]bool{
	"the": true, "and": true, "a": true, "an": true, "in": true, "on": true, "at": true,
	"from": true, "to": true, "of": true, "for": true, "with": true, "by": true, "about": true,
	"as": true, "that": true, "this": true, "was": true, "were": true, "is": true, "are": true,
	"be": true, "been": true, "being": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "but": true, "or": true, "if": true, "then": true, "else": true,
	"when": true, "where": true, "why": true, "how": true, "all": true, "any": true, "both": true,
	"each": true, "few": true, "more": true, "most": true, "some": true, "other": true, "such": true,
	"no": true, "nor": true, "not": true, "only": true, "own": true, "same": true, "so": true,
	"than": true, "too": true, "very": true, "can": true, "will": true, "just": true,
	"should": true, "now": true, "also": true,
}

// FrequencyKeywords counts lower-cased tokens longer than three characters,
// skipping stopwords and numbers.
type FrequencyKeywords struct{}

func (FrequencyKeywords) Keywords(stories []database.Story, n int) []model.TermCount {
	freq := newCounter()
	for _, s := range stories {
		for _, w := range nonWord.Split(strings.ToLower(s.Text()), -1) {
			if len(w) <= 3 || stopwords[w] || digitsOnly.MatchString(w) {
				continue
			}
			freq.add(w)
		}
	}

	out := []model.TermCount{}
	for _, e := range freq.top(n) {
		out = append(out, model.TermCount{Term: e.key, Count: e.count})
	}
	return out
}

// counter tallies keys and remembers first-seen order for tie breaks.
type counter struct {
	index   map[string]int
	entries []entry
}

type entry struct {
	key   string
	count int
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(key string) {
	if i, ok := c.index[key]; ok {
		c.entries[i].count++
		return
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, entry{key: key, count: 1})
}

// top returns the n highest counts, ties in first-seen order.
func (c *counter) top(n int) []entry {
	sorted := make([]entry, len(c.entries))
	copy(sorted, c.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].count > sorted[j].count
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func namedCounts(entries []entry) []model.NamedCount {
	out := make([]model.NamedCount, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.NamedCount{Name: e.key, Count: e.count})
	}
	return out
}
