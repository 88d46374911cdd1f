// Package search turns a query and filters into ranked story results,
// degrading to the fallback catalog when the archive is empty or unreadable.
package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/fallback"
	"github.com/TobiSchelling/storyatlas/internal/model"
)

const (
	defaultLimit         = 10
	defaultMaxLimit      = 100
	defaultSnippetLength = 200

	// RelevanceScore is assigned to every real result until ranking exists.
	RelevanceScore = 0.9

	ReasonNoStories  = "No stories in database"
	ReasonQueryError = "Database query error"
	queryErrorText   = "Database error - showing fallback results"
)

// Strategy names reported in debug output.
const (
	StrategyDialect  = "dialect"
	StrategyRaw      = "raw"
	StrategyFallback = "fallback"
)

// Store is the read side of the story store used by the engine.
type Store interface {
	CountStories(ctx context.Context) (int, error)
	FindStories(ctx context.Context, f database.StoryFilter, order database.Order, limit int) ([]database.Story, error)
	SearchStoriesRaw(ctx context.Context, text string, f database.StoryFilter, limit int) ([]database.Story, error)
}

// Request is a single search.
type Request struct {
	Query       string
	Publication string
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
	Debug       bool
}

// Result is always one of: real results, an empty real result, or fallback
// content with UsedFallback set.
type Result struct {
	Stories            []model.RankedStory `json:"stories"`
	Arcs               []model.Arc         `json:"arcs"`
	SuggestedFollowups []string            `json:"suggestedFollowups"`
	UsedFallback       bool                `json:"usedFallback"`
	Reason             string              `json:"reason,omitempty"`
	Error              string              `json:"error,omitempty"`
	ErrorDetail        string              `json:"errorDetail,omitempty"`
	Debug              *Debug              `json:"debug,omitempty"`
}

// Debug describes how a result was produced.
type Debug struct {
	TotalStories int         `json:"totalStories"`
	Filter       DebugFilter `json:"filter"`
	Strategy     string      `json:"strategy"`
}

// DebugFilter echoes the effective filter.
type DebugFilter struct {
	Query       string `json:"query,omitempty"`
	Publication string `json:"publication,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Limit       int    `json:"limit"`
}

// Options tunes the engine. Zero values take defaults.
type Options struct {
	DefaultLimit  int
	MaxLimit      int
	SnippetLength int
}

// Engine runs searches against a Store.
type Engine struct {
	store   Store
	catalog *fallback.Catalog
	opts    Options
}

// NewEngine creates an engine. A nil catalog uses the built-in one.
func NewEngine(store Store, catalog *fallback.Catalog, opts Options) *Engine {
	if catalog == nil {
		catalog = fallback.NewCatalog()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = defaultMaxLimit
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = defaultSnippetLength
	}
	return &Engine{store: store, catalog: catalog, opts: opts}
}

// Search runs req. It never returns an error: store failures and panics are
// converted into a fallback result.
func (e *Engine) Search(ctx context.Context, req Request) (res *Result) {
	req.Limit = e.clampLimit(req.Limit)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Search panic for query %q: %v", req.Query, r)
			res = e.errorResult(req, fmt.Errorf("panic: %v", r), 0)
		}
	}()

	total, err := e.store.CountStories(ctx)
	if err != nil {
		log.Printf("Search: counting stories: %v", err)
		return e.errorResult(req, err, 0)
	}
	if total == 0 {
		log.Printf("Search: no stories in database, using fallback data")
		res = e.fallbackResult(req)
		res.Reason = ReasonNoStories
		e.attachDebug(res, req, total, StrategyFallback)
		return res
	}

	stories, strategy, err := e.query(ctx, req)
	if err != nil {
		log.Printf("Search: query %q failed: %v", req.Query, err)
		return e.errorResult(req, err, total)
	}

	ranked := make([]model.RankedStory, 0, len(stories))
	storyType := Classify(req.Query)
	for _, s := range stories {
		ranked = append(ranked, model.RankedStory{
			ID:             s.ID,
			Title:          s.Title,
			Publication:    s.SourceType,
			Date:           database.FormatDate(s.Timestamp),
			Snippet:        Snippet(s.ProcessedText, e.opts.SnippetLength),
			RelevanceScore: RelevanceScore,
			StoryType:      storyType,
		})
	}

	res = &Result{
		Stories:            ranked,
		Arcs:               BuildArcs(ranked, req.Query),
		SuggestedFollowups: Followups(req.Query, ranked),
	}
	e.attachDebug(res, req, total, strategy)
	return res
}

// query tries the dialect-aware filter first and the raw SQL path second.
func (e *Engine) query(ctx context.Context, req Request) ([]database.Story, string, error) {
	f := database.StoryFilter{
		Publication: req.Publication,
		From:        req.StartDate,
		To:          req.EndDate,
		Text:        req.Query,
	}

	stories, err := e.store.FindStories(ctx, f, database.NewestFirst, req.Limit)
	if err == nil {
		return stories, StrategyDialect, nil
	}
	if req.Query == "" {
		return nil, StrategyDialect, err
	}

	log.Printf("Search: dialect query failed, retrying with raw SQL: %v", err)
	f.Text = ""
	stories, rawErr := e.store.SearchStoriesRaw(ctx, req.Query, f, req.Limit)
	if rawErr != nil {
		return nil, StrategyRaw, fmt.Errorf("dialect: %v; raw: %w", err, rawErr)
	}
	return stories, StrategyRaw, nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		limit = e.opts.DefaultLimit
	}
	if limit > e.opts.MaxLimit {
		limit = e.opts.MaxLimit
	}
	return limit
}

func (e *Engine) fallbackResult(req Request) *Result {
	return &Result{
		Stories:            e.catalog.Stories(req.Query),
		Arcs:               e.catalog.Arcs(req.Query),
		SuggestedFollowups: Followups(req.Query, e.catalog.Stories("")),
		UsedFallback:       true,
	}
}

func (e *Engine) errorResult(req Request, err error, total int) *Result {
	res := e.fallbackResult(req)
	res.Reason = ReasonQueryError
	res.Error = queryErrorText
	res.ErrorDetail = err.Error()
	e.attachDebug(res, req, total, StrategyFallback)
	return res
}

func (e *Engine) attachDebug(res *Result, req Request, total int, strategy string) {
	if !req.Debug {
		return
	}
	df := DebugFilter{Query: req.Query, Publication: req.Publication, Limit: req.Limit}
	if req.StartDate != nil {
		df.StartDate = database.FormatDate(*req.StartDate)
	}
	if req.EndDate != nil {
		df.EndDate = database.FormatDate(*req.EndDate)
	}
	res.Debug = &Debug{TotalStories: total, Filter: df, Strategy: strategy}
}
