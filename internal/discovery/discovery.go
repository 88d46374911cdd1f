// Package discovery builds an analytic snapshot of one publication over a
// date window: frequent entities, keywords, themes and the longest stories.
package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/model"
)

const (
	topEntities      = 10
	topKeywords      = 10
	notableCount     = 5
	summaryMaxLen    = 150
	summarySentences = 2
	summaryCutMark   = "..."
)

// Store is the read side of the story store used by the summarizer.
type Store interface {
	FindStories(ctx context.Context, f database.StoryFilter, order database.Order, limit int) ([]database.Story, error)
}

// Summarizer computes discovery summaries.
type Summarizer struct {
	store    Store
	entities EntityExtractor
	keywords KeywordExtractor
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithEntityExtractor replaces the heuristic entity extractor.
func WithEntityExtractor(e EntityExtractor) Option {
	return func(s *Summarizer) { s.entities = e }
}

// WithKeywordExtractor replaces the frequency keyword extractor.
func WithKeywordExtractor(k KeywordExtractor) Option {
	return func(s *Summarizer) { s.keywords = k }
}

// NewSummarizer creates a summarizer backed by store.
func NewSummarizer(store Store, opts ...Option) *Summarizer {
	s := &Summarizer{
		store:    store,
		entities: HeuristicEntities{},
		keywords: FrequencyKeywords{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize analyses stories whose publication is exactly source, between
// from and to inclusive. An empty window yields empty arrays, not an error.
func (s *Summarizer) Summarize(ctx context.Context, source string, from, to time.Time) (*model.DiscoverySummary, error) {
	stories, err := s.store.FindStories(ctx, database.StoryFilter{
		Publication:      source,
		PublicationExact: true,
		From:             &from,
		To:               &to,
	}, database.OldestFirst, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching stories for %q: %w", source, err)
	}

	keywords := s.keywords.Keywords(stories, topKeywords)
	return &model.DiscoverySummary{
		EntitySummary:  s.entities.Entities(stories, topEntities),
		TopKeywords:    keywords,
		TopThemes:      Themes(keywords),
		NotableStories: notableStories(stories),
	}, nil
}

var keywordThemes = map[string]string{
	"police":     "Crime and Public Safety",
	"crime":      "Crime and Public Safety",
	"criminal":   "Crime and Public Safety",
	"fire":       "Emergencies and Disasters",
	"disaster":   "Emergencies and Disasters",
	"election":   "Politics and Elections",
	"vote":       "Politics and Elections",
	"political":  "Politics and Elections",
	"government": "Politics and Elections",
	"school":     "Education",
	"student":    "Education",
	"teacher":    "Education",
	"business":   "Business and Economy",
	"economic":   "Business and Economy",
	"economy":    "Business and Economy",
	"sport":      "Sports and Recreation",
	"team":       "Sports and Recreation",
	"game":       "Sports and Recreation",
	"health":     "Health and Medicine",
	"medical":    "Health and Medicine",
	"hospital":   "Health and Medicine",
}

var defaultThemes = []string{"Local News", "Community Events"}

// Themes maps top keywords onto broad themes, in keyword order.
func Themes(keywords []model.TermCount) []string {
	seen := make(map[string]bool)
	var themes []string
	for _, k := range keywords {
		theme, ok := keywordThemes[k.Term]
		if !ok || seen[theme] {
			continue
		}
		seen[theme] = true
		themes = append(themes, theme)
	}
	if len(themes) == 0 {
		return append([]string(nil), defaultThemes...)
	}
	return themes
}

func notableStories(stories []database.Story) []model.NotableStory {
	sorted := make([]database.Story, len(stories))
	copy(sorted, stories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Text()) > len(sorted[j].Text())
	})
	if len(sorted) > notableCount {
		sorted = sorted[:notableCount]
	}

	out := make([]model.NotableStory, 0, len(sorted))
	for _, st := range sorted {
		out = append(out, model.NotableStory{
			ID:      st.ID,
			Title:   st.Title,
			Summary: Summary(st.Text()),
			Date:    database.FormatDate(st.Timestamp),
		})
	}
	return out
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Summary returns the first two sentences of text, cut to 147 characters
// plus "..." when the result is longer than 150.
func Summary(text string) string {
	var sentences []string
	rest := text
	for len(sentences) < summarySentences {
		loc := sentenceEnd.FindStringIndex(rest)
		if loc == nil {
			break
		}
		// Keep the punctuation, drop the whitespace.
		sentences = append(sentences, rest[:loc[0]+1])
		rest = rest[loc[1]:]
	}
	if len(sentences) < summarySentences && rest != "" {
		sentences = append(sentences, rest)
	}
	summary := strings.Join(sentences, " ")

	r := []rune(summary)
	if len(r) > summaryMaxLen {
		return string(r[:summaryMaxLen-len(summaryCutMark)]) + summaryCutMark
	}
	return summary
}
