package discovery

import (
	"context"
	"encoding/json"
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

func addStory(t *testing.T, db *database.DB, source, date, body string, location *string) {
	t.Helper()
	_, err := db.CreateStory(context.Background(), database.Story{
		Title:         "Story " + date,
		RawText:       body,
		ProcessedText: body,
		Timestamp:     day(t, date),
		SourceType:    source,
		Location:      location,
	})
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T) *database.DB {
	db := openTestDB(t)
	addStory(t, db, "Boston Globe", "1974-01-10",
		"Dr. Alan Reed spoke to the School Committee. Police said the school fire was arson. Dr. Alan Reed left early.",
		strPtr("Boston"))
	addStory(t, db, "Boston Globe", "1974-01-12",
		"Mrs. Parker joined the Harbor Development Agency. The police chief praised the school volunteers.",
		strPtr("Cambridge"))
	addStory(t, db, "Boston Globe", "1974-01-15",
		"Mr. Smith addressed the City Council about police overtime.",
		strPtr("Boston"))
	// Outside the window and a different publication.
	addStory(t, db, "Boston Globe", "1974-02-01", "Mr. Late arrived after the window.", nil)
	addStory(t, db, "Boston Globe Sunday", "1974-01-11", "Mr. Sunday edition story.", nil)
	return db
}

func TestSummarizeEntities(t *testing.T) {
	db := seed(t)
	s := NewSummarizer(db)

	sum, err := s.Summarize(context.Background(), "Boston Globe", day(t, "1974-01-10"), day(t, "1974-01-15"))
	require.NoError(t, err)

	people := sum.EntitySummary.People
	require.NotEmpty(t, people)
	assert.Equal(t, model.NamedCount{Name: "Dr. Alan Reed", Count: 2}, people[0])
	assert.Contains(t, people, model.NamedCount{Name: "Mrs. Parker", Count: 1})
	assert.Contains(t, people, model.NamedCount{Name: "Mr. Smith", Count: 1})
	for _, p := range people {
		assert.NotEqual(t, "Mr. Late", p.Name)
		assert.NotEqual(t, "Mr. Sunday", p.Name)
	}

	assert.Equal(t, []model.NamedCount{{Name: "Boston", Count: 2}, {Name: "Cambridge", Count: 1}}, sum.EntitySummary.Places)

	var orgs []string
	for _, o := range sum.EntitySummary.Organizations {
		orgs = append(orgs, o.Name)
	}
	assert.ElementsMatch(t, []string{"School Committee", "Harbor Development Agency", "City Council"}, orgs)
}

func TestSummarizeKeywordsAndThemes(t *testing.T) {
	db := seed(t)
	s := NewSummarizer(db)

	sum, err := s.Summarize(context.Background(), "Boston Globe", day(t, "1974-01-10"), day(t, "1974-01-15"))
	require.NoError(t, err)

	require.NotEmpty(t, sum.TopKeywords)
	// "school" and "police" tie; "school" is seen first.
	require.GreaterOrEqual(t, len(sum.TopKeywords), 2)
	assert.Equal(t, model.TermCount{Term: "school", Count: 3}, sum.TopKeywords[0])
	assert.Equal(t, model.TermCount{Term: "police", Count: 3}, sum.TopKeywords[1])
	for _, k := range sum.TopKeywords {
		assert.Greater(t, len(k.Term), 3)
		assert.False(t, stopwords[k.Term])
	}
	assert.Contains(t, sum.TopThemes, "Crime and Public Safety")
	assert.Contains(t, sum.TopThemes, "Education")
	assert.NotContains(t, sum.TopThemes, "Local News")
}

func TestSummarizeNotableStories(t *testing.T) {
	db := seed(t)
	s := NewSummarizer(db)

	sum, err := s.Summarize(context.Background(), "Boston Globe", day(t, "1974-01-10"), day(t, "1974-01-15"))
	require.NoError(t, err)

	require.Len(t, sum.NotableStories, 3)
	first := sum.NotableStories[0]
	assert.Equal(t, "1974-01-10", first.Date)
	// "Dr." ends a sentence as far as the splitter is concerned.
	assert.Equal(t, "Dr. Alan Reed spoke to the School Committee.", first.Summary)
	assert.Equal(t, "1974-01-15", sum.NotableStories[2].Date)
}

func TestSummarizeEmptyWindow(t *testing.T) {
	db := seed(t)
	s := NewSummarizer(db)

	sum, err := s.Summarize(context.Background(), "Boston Globe", day(t, "1990-01-01"), day(t, "1990-12-31"))
	require.NoError(t, err)

	assert.Empty(t, sum.EntitySummary.People)
	assert.Empty(t, sum.EntitySummary.Places)
	assert.Empty(t, sum.EntitySummary.Organizations)
	assert.Empty(t, sum.TopKeywords)
	assert.Empty(t, sum.NotableStories)
	assert.Equal(t, []string{"Local News", "Community Events"}, sum.TopThemes)

	// Arrays, never null.
	data, err := json.Marshal(sum)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
}

func TestSummarizeIsDeterministic(t *testing.T) {
	db := openTestDB(t)
	// Every name appears once so ordering depends only on tie breaks.
	for i, name := range []string{"Mr. Zed", "Mr. Alpha", "Ms. Mid", "Dr. Bee"} {
		addStory(t, db, "Globe", day(t, "2001-01-01").AddDate(0, 0, i).Format(database.DateLayout), name+" was quoted.", nil)
	}
	s := NewSummarizer(db)

	from, to := day(t, "2001-01-01"), day(t, "2001-01-31")
	a, err := s.Summarize(context.Background(), "Globe", from, to)
	require.NoError(t, err)
	b, err := s.Summarize(context.Background(), "Globe", from, to)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	require.Len(t, a.EntitySummary.People, 4)
	assert.Equal(t, "Mr. Zed", a.EntitySummary.People[0].Name)
	assert.Equal(t, "Dr. Bee", a.EntitySummary.People[3].Name)
}

type brokenStore struct{}

func (brokenStore) FindStories(context.Context, database.StoryFilter, database.Order, int) ([]database.Story, error) {
	return nil, errors.New("no such table: stories")
}

func TestSummarizeStoreError(t *testing.T) {
	s := NewSummarizer(brokenStore{})
	_, err := s.Summarize(context.Background(), "Globe", time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

type fixedKeywords struct{}

func (fixedKeywords) Keywords([]database.Story, int) []model.TermCount {
	return []model.TermCount{{Term: "hospital", Count: 9}}
}

func TestPluggableKeywordExtractor(t *testing.T) {
	db := seed(t)
	s := NewSummarizer(db, WithKeywordExtractor(fixedKeywords{}))

	sum, err := s.Summarize(context.Background(), "Boston Globe", day(t, "1974-01-10"), day(t, "1974-01-15"))
	require.NoError(t, err)
	assert.Equal(t, []model.TermCount{{Term: "hospital", Count: 9}}, sum.TopKeywords)
	assert.Equal(t, []string{"Health and Medicine"}, sum.TopThemes)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "One. Two!", Summary("One. Two! Three?"))
	assert.Equal(t, "Only one", Summary("Only one"))
	assert.Equal(t, "", Summary(""))

	long := strings.Repeat("word ", 40) + "end. Second."
	got := Summary(long)
	assert.Len(t, got, 150)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestThemesDedupes(t *testing.T) {
	got := Themes([]model.TermCount{{Term: "police"}, {Term: "crime"}, {Term: "team"}})
	assert.Equal(t, []string{"Crime and Public Safety", "Sports and Recreation"}, got)
}
