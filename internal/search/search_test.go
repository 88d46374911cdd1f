package search

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/model"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := database.ParseDate(s)
	require.NoError(t, err)
	return d
}

func addStory(t *testing.T, db *database.DB, title, body, source string, ts time.Time) *database.Story {
	t.Helper()
	s, err := db.CreateStory(context.Background(), database.Story{
		Title:         title,
		RawText:       body,
		ProcessedText: body,
		Timestamp:     ts,
		SourceType:    source,
	})
	require.NoError(t, err)
	return s
}

// failingStore reports a non-empty archive but fails every query.
type failingStore struct {
	total     int
	countErr  error
	dialect   error
	raw       error
	rawCalled bool
	rawResult []database.Story
}

func (f *failingStore) CountStories(context.Context) (int, error) {
	return f.total, f.countErr
}

func (f *failingStore) FindStories(context.Context, database.StoryFilter, database.Order, int) ([]database.Story, error) {
	return nil, f.dialect
}

func (f *failingStore) SearchStoriesRaw(context.Context, string, database.StoryFilter, int) ([]database.Story, error) {
	f.rawCalled = true
	return f.rawResult, f.raw
}

type panickingStore struct{ *failingStore }

func (panickingStore) CountStories(context.Context) (int, error) { panic("boom") }

func TestEmptyStoreAlwaysFallsBack(t *testing.T) {
	e := NewEngine(openTestDB(t), nil, Options{})

	for _, q := range []string{"", "zodiac", "nothing matches this at all"} {
		res := e.Search(context.Background(), Request{Query: q})
		assert.True(t, res.UsedFallback, "query %q", q)
		assert.Equal(t, ReasonNoStories, res.Reason)
		assert.NotEmpty(t, res.Stories)
		assert.NotEmpty(t, res.Arcs)
		assert.Empty(t, res.Error)
	}

	res := e.Search(context.Background(), Request{Query: "zodiac"})
	require.Len(t, res.Stories, 1)
	assert.Equal(t, "fallback2", res.Stories[0].ID)
}

func TestNoMatchReturnsEmptyRealResult(t *testing.T) {
	db := openTestDB(t)
	addStory(t, db, "Harbor opens", "The new harbor opened today.", "Boston Globe", day(t, "1974-01-12"))
	e := NewEngine(db, nil, Options{})

	res := e.Search(context.Background(), Request{Query: "zeppelin"})
	assert.False(t, res.UsedFallback)
	assert.Empty(t, res.Reason)
	assert.NotNil(t, res.Stories)
	assert.Empty(t, res.Stories)
	assert.NotNil(t, res.Arcs)
	assert.Empty(t, res.Arcs)
}

func TestSnippetLength(t *testing.T) {
	db := openTestDB(t)
	long := strings.Repeat("a", 450)
	short := "Short body text."
	addStory(t, db, "Long", long, "Boston Globe", day(t, "1974-01-12"))
	addStory(t, db, "Short", short, "Boston Globe", day(t, "1974-01-11"))
	e := NewEngine(db, nil, Options{})

	res := e.Search(context.Background(), Request{})
	require.Len(t, res.Stories, 2)
	assert.Len(t, res.Stories[0].Snippet, 203)
	assert.True(t, strings.HasSuffix(res.Stories[0].Snippet, "..."))
	assert.Equal(t, short, res.Stories[1].Snippet)
}

func TestSnippetExactlyAtLimit(t *testing.T) {
	text := strings.Repeat("b", 200)
	assert.Equal(t, text, Snippet(text, 200))
	assert.Equal(t, strings.Repeat("b", 200)+"...", Snippet(text+"b", 200))
}

func TestDateFiltersInclusive(t *testing.T) {
	db := openTestDB(t)
	addStory(t, db, "Start", "first day", "Boston Globe", day(t, "1974-01-10"))
	addStory(t, db, "End", "last day", "Boston Globe", day(t, "1974-01-25"))
	addStory(t, db, "Late end", "last day evening", "Boston Globe", day(t, "1974-01-25").Add(20*time.Hour))
	addStory(t, db, "Outside", "after", "Boston Globe", day(t, "1974-01-26"))
	e := NewEngine(db, nil, Options{})

	start, end := day(t, "1974-01-10"), day(t, "1974-01-25")
	res := e.Search(context.Background(), Request{StartDate: &start, EndDate: &end})
	require.Len(t, res.Stories, 3)
	titles := []string{res.Stories[0].Title, res.Stories[1].Title, res.Stories[2].Title}
	assert.ElementsMatch(t, []string{"Start", "End", "Late end"}, titles)
}

func TestCaseInsensitiveQuery(t *testing.T) {
	db := openTestDB(t)
	addStory(t, db, "Opening day", "Baseball returns to Fenway.", "Boston Globe", day(t, "1974-04-05"))
	addStory(t, db, "Weather", "Snow expected.", "Boston Globe", day(t, "1974-04-06"))
	e := NewEngine(db, nil, Options{})

	upper := e.Search(context.Background(), Request{Query: "BASEBALL"})
	lower := e.Search(context.Background(), Request{Query: "baseball"})
	require.Len(t, upper.Stories, 1)
	assert.Equal(t, upper.Stories, lower.Stories)
	assert.False(t, upper.UsedFallback)
}

func TestNonASCIIQuery(t *testing.T) {
	db := openTestDB(t)
	addStory(t, db, "ÉMILE ZOLA DEFENDS DREYFUS", "J'accuse appeared on the front page.", "Le Figaro", day(t, "1898-01-13"))
	addStory(t, db, "Weather", "Rain in Paris.", "Le Figaro", day(t, "1898-01-14"))
	e := NewEngine(db, nil, Options{})

	for _, q := range []string{"ÉMILE", "émile", "Émile"} {
		res := e.Search(context.Background(), Request{Query: q})
		require.Len(t, res.Stories, 1, q)
		assert.Equal(t, "ÉMILE ZOLA DEFENDS DREYFUS", res.Stories[0].Title, q)
		assert.False(t, res.UsedFallback, q)
	}
}

func TestRoundTrip(t *testing.T) {
	db := openTestDB(t)
	addStory(t, db, "X", "Y marks the spot", "Boston Globe", day(t, "1980-06-01"))
	e := NewEngine(db, nil, Options{})

	res := e.Search(context.Background(), Request{Query: "Y marks"})
	require.Len(t, res.Stories, 1)
	assert.Equal(t, "X", res.Stories[0].Title)
	assert.True(t, strings.HasPrefix(res.Stories[0].Snippet, "Y"))
	assert.Equal(t, "1980-06-01", res.Stories[0].Date)
	assert.Equal(t, RelevanceScore, res.Stories[0].RelevanceScore)
}

func TestScandalScenarioUsesDefaultLabel(t *testing.T) {
	db := openTestDB(t)
	addStory(t, db, "City hall", "A scandal rocks city hall.", "Boston Globe", day(t, "2000-01-01"))
	e := NewEngine(db, nil, Options{})

	res := e.Search(context.Background(), Request{Query: "scandal"})
	require.Len(t, res.Stories, 1)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, DefaultStoryType, res.Stories[0].StoryType)
	assert.Equal(t, "Boston Globe", res.Stories[0].Publication)

	require.Len(t, res.Arcs, 1)
	assert.Equal(t, "arc-0", res.Arcs[0].ID)
	assert.Equal(t, "Boston Globe Coverage: scandal", res.Arcs[0].Title)
	assert.Equal(t, "2000-01-01 to 2000-01-01", res.Arcs[0].Timespan)
	assert.Len(t, res.SuggestedFollowups, 3)
}

func TestPublicationSubstringFilter(t *testing.T) {
	db := openTestDB(t)
	addStory(t, db, "A", "alpha", "Boston Globe", day(t, "1974-01-10"))
	addStory(t, db, "B", "beta", "San Antonio Express-News", day(t, "1974-01-11"))
	e := NewEngine(db, nil, Options{})

	res := e.Search(context.Background(), Request{Publication: "Globe"})
	require.Len(t, res.Stories, 1)
	assert.Equal(t, "A", res.Stories[0].Title)

	// Case-sensitive.
	res = e.Search(context.Background(), Request{Publication: "globe"})
	assert.Empty(t, res.Stories)
	assert.False(t, res.UsedFallback)
}

func TestLimitClamp(t *testing.T) {
	db := openTestDB(t)
	base := day(t, "1990-01-01")
	for i := 0; i < 15; i++ {
		addStory(t, db, "Story", "body", "Boston Globe", base.AddDate(0, 0, i))
	}
	e := NewEngine(db, nil, Options{MaxLimit: 12})

	assert.Len(t, e.Search(context.Background(), Request{}).Stories, 10)
	assert.Len(t, e.Search(context.Background(), Request{Limit: 3}).Stories, 3)
	assert.Len(t, e.Search(context.Background(), Request{Limit: 500}).Stories, 12)

	res := e.Search(context.Background(), Request{Limit: 2})
	assert.Equal(t, "1990-01-15", res.Stories[0].Date)
	assert.Equal(t, "1990-01-14", res.Stories[1].Date)
}

func TestQueryErrorFallsBackToRawThenCatalog(t *testing.T) {
	store := &failingStore{
		total:   4,
		dialect: errors.New("like not supported"),
		rawResult: []database.Story{{
			ID: "r1", Title: "Raw hit", ProcessedText: "found by raw sql", SourceType: "Boston Globe",
			Timestamp: time.Date(1977, 8, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	e := NewEngine(store, nil, Options{})

	res := e.Search(context.Background(), Request{Query: "raw", Debug: true})
	assert.True(t, store.rawCalled)
	assert.False(t, res.UsedFallback)
	require.Len(t, res.Stories, 1)
	assert.Equal(t, "r1", res.Stories[0].ID)
	require.NotNil(t, res.Debug)
	assert.Equal(t, StrategyRaw, res.Debug.Strategy)
	assert.Equal(t, 4, res.Debug.TotalStories)

	store.raw = errors.New("disk I/O error")
	res = e.Search(context.Background(), Request{Query: "raw"})
	assert.True(t, res.UsedFallback)
	assert.Equal(t, ReasonQueryError, res.Reason)
	assert.Equal(t, "Database error - showing fallback results", res.Error)
	assert.Contains(t, res.ErrorDetail, "disk I/O error")
	assert.NotEmpty(t, res.Stories)
	assert.Nil(t, res.Debug)
}

func TestCountErrorFallsBack(t *testing.T) {
	e := NewEngine(&failingStore{countErr: errors.New("database is locked")}, nil, Options{})
	res := e.Search(context.Background(), Request{Query: "strike"})
	assert.True(t, res.UsedFallback)
	assert.Equal(t, ReasonQueryError, res.Reason)
	assert.Contains(t, res.ErrorDetail, "database is locked")
}

func TestPanicIsRecovered(t *testing.T) {
	e := NewEngine(panickingStore{&failingStore{}}, nil, Options{})
	var res *Result
	require.NotPanics(t, func() {
		res = e.Search(context.Background(), Request{Query: "anything"})
	})
	assert.True(t, res.UsedFallback)
	assert.Contains(t, res.ErrorDetail, "boom")
}

func TestDebugDialectStrategy(t *testing.T) {
	db := openTestDB(t)
	addStory(t, db, "A", "alpha", "Boston Globe", day(t, "1974-01-10"))
	e := NewEngine(db, nil, Options{})

	from := day(t, "1974-01-01")
	res := e.Search(context.Background(), Request{Query: "alpha", StartDate: &from, Debug: true})
	require.NotNil(t, res.Debug)
	assert.Equal(t, StrategyDialect, res.Debug.Strategy)
	assert.Equal(t, "1974-01-01", res.Debug.Filter.StartDate)
	assert.Equal(t, 10, res.Debug.Filter.Limit)
}

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"Murder on Main St":   "True Crime Potential",
		"GOVERNMENT shutdown": "Political Thriller with Hidden Consequences",
		"the big game":        "Sports Narrative with Unexpected Complexity",
		"border conflict":     "Conflict Chronicle with Human Impact",
		"crime in the war":    "True Crime Potential",
		"harbor construction": DefaultStoryType,
		"":                    DefaultStoryType,
	}
	for q, want := range tests {
		assert.Equal(t, want, Classify(q), "query %q", q)
	}
}

func TestBuildArcsGroupsByPublication(t *testing.T) {
	stories := []model.RankedStory{
		{Publication: "Boston Globe", Date: "1974-01-20"},
		{Publication: "Seattle Times", Date: "1980-05-01"},
		{Publication: "Boston Globe", Date: "1974-01-02"},
	}
	arcs := BuildArcs(stories, "strike")
	require.Len(t, arcs, 2)
	assert.Equal(t, "Boston Globe Coverage: strike", arcs[0].Title)
	assert.Equal(t, 2, arcs[0].StoryCount)
	assert.Equal(t, "1974-01-02 to 1974-01-20", arcs[0].Timespan)
	assert.Equal(t, "arc-1", arcs[1].ID)
	assert.Equal(t, []string{"Historical Events", "Local Impact", "Public Response"}, arcs[1].Themes)

	assert.Empty(t, BuildArcs(nil, "strike"))
}

func TestFollowups(t *testing.T) {
	assert.Len(t, Followups("Serial Killer cases", nil), 5)

	single := []model.RankedStory{{Publication: "Boston Globe", Date: "1974-01-01"}}
	assert.Len(t, Followups("strike", single), 3)

	multi := []model.RankedStory{
		{Publication: "Boston Globe", Date: "1974-01-01"},
		{Publication: "Seattle Times", Date: "1975-01-01"},
	}
	got := Followups("strike", multi)
	require.Len(t, got, 5)
	assert.Equal(t, "Compare how different publications covered strike", got[3])
	assert.Equal(t, "See how coverage of strike evolved over time", got[4])
}
