package database

import (
	"context"
	"fmt"
)

// GetStats returns aggregate archive statistics for the status dashboard.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	var err error

	if s.Stories, err = db.CountStories(ctx); err != nil {
		return nil, fmt.Errorf("counting stories: %w", err)
	}
	if s.Arcs, err = db.CountArcs(ctx); err != nil {
		return nil, fmt.Errorf("counting arcs: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT source_type) FROM stories",
	).Scan(&s.Sources); err != nil {
		return nil, fmt.Errorf("counting sources: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT substr(timestamp, 1, 4)) FROM stories",
	).Scan(&s.TimePeriods); err != nil {
		return nil, fmt.Errorf("counting time periods: %w", err)
	}
	if s.DateRange, err = db.dateRange(ctx, StoryFilter{}); err != nil {
		return nil, fmt.Errorf("determining date range: %w", err)
	}

	newest, err := db.FindFirstStory(ctx, StoryFilter{}, RecentlyIngestedFirst)
	if err != nil {
		return nil, fmt.Errorf("determining last ingest: %w", err)
	}
	if newest != nil {
		t := newest.CreatedAt
		s.LastIngestTimestamp = &t
	}

	return s, nil
}
