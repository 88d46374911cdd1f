package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertArc stores a curated arc and returns its ID.
func (db *DB) InsertArc(ctx context.Context, a Arc) (string, error) {
	themesJSON, err := json.Marshal(a.Themes)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO arcs (id, title, summary, timespan, story_count, themes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, a.Title, a.Summary, a.Timespan, a.StoryCount, string(themesJSON), formatTimestamp(time.Now()),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetAllArcs returns persisted arcs, newest first.
func (db *DB) GetAllArcs(ctx context.Context) ([]Arc, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, summary, timespan, story_count, themes, created_at
		FROM arcs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var arcs []Arc
	for rows.Next() {
		var a Arc
		var themesJSON *string
		var created string
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary, &a.Timespan, &a.StoryCount, &themesJSON, &created); err != nil {
			return nil, err
		}
		if themesJSON != nil && *themesJSON != "" {
			if err := json.Unmarshal([]byte(*themesJSON), &a.Themes); err != nil {
				return nil, fmt.Errorf("arc %s: decoding themes: %w", a.ID, err)
			}
		}
		var err error
		if a.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("arc %s: parsing created_at: %w", a.ID, err)
		}
		arcs = append(arcs, a)
	}
	return arcs, rows.Err()
}

// CountArcs returns the number of persisted arcs.
func (db *DB) CountArcs(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM arcs").Scan(&n)
	return n, err
}
