package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "stories",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS stories (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    raw_text TEXT NOT NULL DEFAULT '',
    processed_text TEXT NOT NULL DEFAULT '',
    timestamp TEXT NOT NULL,
    source_type TEXT NOT NULL DEFAULT '',
    location TEXT,
    embedding BLOB,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stories_timestamp ON stories(timestamp);
CREATE INDEX IF NOT EXISTS idx_stories_source_type ON stories(source_type);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "curated arcs",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS arcs (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    timespan TEXT NOT NULL DEFAULT '',
    story_count INTEGER DEFAULT 0,
    themes TEXT,
    created_at TEXT NOT NULL
);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "index stories by ingestion time",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_stories_created_at ON stories(created_at)`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
