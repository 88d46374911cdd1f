package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const storyColumns = `id, title, raw_text, processed_text, timestamp, source_type, location, embedding, created_at, updated_at`

// CountStories returns the total number of stories in the archive.
func (db *DB) CountStories(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM stories").Scan(&n)
	return n, err
}

// CreateStory inserts a story, assigning its ID and bookkeeping timestamps.
// The returned story carries the assigned values.
func (db *DB) CreateStory(ctx context.Context, s Story) (*Story, error) {
	if s.Timestamp.IsZero() {
		return nil, fmt.Errorf("story %q has no publication timestamp", s.Title)
	}

	now := time.Now().UTC().Truncate(time.Second)
	s.ID = uuid.New().String()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO stories (`+storyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.RawText, s.ProcessedText, formatTimestamp(s.Timestamp),
		s.SourceType, s.Location, s.Embedding, formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting story: %w", err)
	}
	s.Timestamp = s.Timestamp.UTC()
	return &s, nil
}

// FindStories returns stories matching the filter in the given order.
// A limit <= 0 means no limit.
func (db *DB) FindStories(ctx context.Context, f StoryFilter, order Order, limit int) ([]Story, error) {
	where, args := db.buildWhere(f)
	query := "SELECT " + storyColumns + " FROM stories" + where + orderClause(order)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// SearchStoriesRaw runs the text match as hand-written SQL that normalises
// case on both sides with the Unicode lower-case function and instr, bypassing the dialect's LIKE
// clause. The remaining filter fields apply as in FindStories, except that
// f.Text is ignored in favour of text.
func (db *DB) SearchStoriesRaw(ctx context.Context, text string, f StoryFilter, limit int) ([]Story, error) {
	f.Text = ""
	where, args := db.buildWhere(f)

	needle := strings.ToLower(text)
	textClause := "(instr(" + lowerFunc + "(title), ?) > 0 OR instr(" + lowerFunc + "(processed_text), ?) > 0)"
	if where == "" {
		where = " WHERE " + textClause
	} else {
		where += " AND " + textClause
	}
	args = append(args, needle, needle)

	query := "SELECT " + storyColumns + " FROM stories" + where + orderClause(NewestFirst)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// FindFirstStory returns the first story matching the filter in the given
// order, or nil if none match.
func (db *DB) FindFirstStory(ctx context.Context, f StoryFilter, order Order) (*Story, error) {
	stories, err := db.FindStories(ctx, f, order, 1)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, nil
	}
	return &stories[0], nil
}

// DeleteStories removes stories matching the filter and returns how many
// were deleted.
func (db *DB) DeleteStories(ctx context.Context, f StoryFilter) (int64, error) {
	where, args := db.buildWhere(f)
	result, err := db.conn.ExecContext(ctx, "DELETE FROM stories"+where, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// StoryExistsWithRawText reports whether any story's raw text contains s.
// The importer uses it to skip stories whose source URL is already stored.
func (db *DB) StoryExistsWithRawText(ctx context.Context, s string) (bool, error) {
	story, err := db.FindFirstStory(ctx, StoryFilter{RawTextContains: s}, NewestFirst)
	if err != nil {
		return false, err
	}
	return story != nil, nil
}

// Publications returns the distinct non-empty publication names, ascending.
func (db *DB) Publications(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT source_type FROM stories WHERE source_type != '' ORDER BY source_type ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pubs := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}

// PublicationTimerange returns the earliest and latest story dates for a
// publication, matched exactly. Both fields are nil when it has no stories.
func (db *DB) PublicationTimerange(ctx context.Context, source string) (DateRange, error) {
	f := StoryFilter{Publication: source, PublicationExact: true}
	return db.dateRange(ctx, f)
}

func (db *DB) dateRange(ctx context.Context, f StoryFilter) (DateRange, error) {
	var r DateRange
	earliest, err := db.FindFirstStory(ctx, f, OldestFirst)
	if err != nil {
		return r, err
	}
	latest, err := db.FindFirstStory(ctx, f, NewestFirst)
	if err != nil {
		return r, err
	}
	if earliest == nil || latest == nil {
		return r, nil
	}
	start, end := FormatDate(earliest.Timestamp), FormatDate(latest.Timestamp)
	r.StartDate, r.EndDate = &start, &end
	return r, nil
}

// buildWhere translates a filter into a WHERE clause (with leading space) and
// its arguments. An empty filter yields an empty clause.
func (db *DB) buildWhere(f StoryFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Publication != "" {
		if f.PublicationExact {
			conds = append(conds, "source_type = ?")
		} else {
			// instr is case-sensitive, unlike LIKE.
			conds = append(conds, "instr(source_type, ?) > 0")
		}
		args = append(args, f.Publication)
	}
	if f.From != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, formatTimestamp(StartOfDay(*f.From)))
	}
	if f.To != nil {
		conds = append(conds, "timestamp < ?")
		args = append(args, formatTimestamp(StartOfDay(*f.To).AddDate(0, 0, 1)))
	}
	if f.Text != "" {
		titleClause, titleArgs := db.dialect.CaseInsensitiveContains("title", f.Text)
		bodyClause, bodyArgs := db.dialect.CaseInsensitiveContains("processed_text", f.Text)
		conds = append(conds, "("+titleClause+" OR "+bodyClause+")")
		args = append(args, titleArgs...)
		args = append(args, bodyArgs...)
	}
	if f.RawTextContains != "" {
		conds = append(conds, "instr(raw_text, ?) > 0")
		args = append(args, f.RawTextContains)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(order Order) string {
	switch order {
	case OldestFirst:
		return " ORDER BY timestamp ASC, id ASC"
	case RecentlyIngestedFirst:
		return " ORDER BY created_at DESC, id DESC"
	default:
		return " ORDER BY timestamp DESC, id ASC"
	}
}

func scanStories(rows *sql.Rows) ([]Story, error) {
	var stories []Story
	for rows.Next() {
		var s Story
		var ts, created, updated string
		if err := rows.Scan(&s.ID, &s.Title, &s.RawText, &s.ProcessedText, &ts,
			&s.SourceType, &s.Location, &s.Embedding, &created, &updated); err != nil {
			return nil, err
		}
		var err error
		if s.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("story %s: parsing timestamp: %w", s.ID, err)
		}
		if s.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("story %s: parsing created_at: %w", s.ID, err)
		}
		if s.UpdatedAt, err = parseTimestamp(updated); err != nil {
			return nil, fmt.Errorf("story %s: parsing updated_at: %w", s.ID, err)
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}
