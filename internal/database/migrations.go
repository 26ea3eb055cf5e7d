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
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS narratives (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL,
    risk_score REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    campaign TEXT,
    dmmi_report TEXT,
    disarm_analysis TEXT,
    trend_data TEXT,
    counter_opportunities TEXT,
    run_id INTEGER,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    narrative_id TEXT REFERENCES narratives(id),
    run_id INTEGER,
    source TEXT NOT NULL,
    author TEXT NOT NULL,
    content TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    link TEXT NOT NULL,
    image_url TEXT,
    video_url TEXT,
    content_fetched INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS search_sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER,
    uri TEXT NOT NULL,
    title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS taskforce_items (
    id TEXT PRIMARY KEY,
    narrative_id TEXT NOT NULL REFERENCES narratives(id),
    narrative_title TEXT NOT NULL,
    assignment_brief TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analysis_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT DEFAULT (datetime('now')),
    country TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    sources TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_narratives_run ON narratives(run_id);
CREATE INDEX IF NOT EXISTS idx_posts_narrative ON posts(narrative_id);
CREATE INDEX IF NOT EXISTS idx_posts_run ON posts(run_id);
CREATE INDEX IF NOT EXISTS idx_sources_run ON search_sources(run_id);
`)
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
