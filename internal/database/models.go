package database

import "time"

// Story is a single archived news item.
type Story struct {
	ID            string
	Title         string
	RawText       string // full text with the provenance block prepended at import
	ProcessedText string // body text only
	Timestamp     time.Time
	SourceType    string // publication name
	Location      *string
	Embedding     []byte // reserved for semantic search; not read by any query path
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Text returns the body used for analysis: processed text, or raw text when
// the processed body is empty.
func (s Story) Text() string {
	if s.ProcessedText != "" {
		return s.ProcessedText
	}
	return s.RawText
}

// Arc is a persisted, curated grouping of stories.
type Arc struct {
	ID         string
	Title      string
	Summary    string
	Timespan   string
	StoryCount int
	Themes     []string
	CreatedAt  time.Time
}

// StoryFilter narrows story queries. Zero values mean "no constraint".
type StoryFilter struct {
	// Publication matches source_type. Substring containment (case-sensitive)
	// unless PublicationExact is set.
	Publication      string
	PublicationExact bool

	// From and To are calendar days; both bounds are inclusive and the time of
	// day is ignored.
	From *time.Time
	To   *time.Time

	// Text is a case-insensitive substring match against title or processed text.
	Text string

	// RawTextContains is a plain substring match against raw text.
	RawTextContains string
}

// Order selects the sort order of story queries.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
	RecentlyIngestedFirst
)

// DateRange is a pair of YYYY-MM-DD dates, nil when unknown.
type DateRange struct {
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// Stats contains aggregate archive statistics.
type Stats struct {
	Stories             int
	Arcs                int
	Sources             int
	TimePeriods         int
	DateRange           DateRange
	LastIngestTimestamp *time.Time
}
