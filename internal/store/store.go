// Package store provides the durable song cache, taste profile and
// recommendation ledger on top of SQLite, plus the in-memory exclusion set
// used while assembling candidate pools.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	song_id     TEXT PRIMARY KEY,
	title       TEXT,
	artist      TEXT,
	album       TEXT,
	lyrics      TEXT,
	mood        TEXT,
	energy      INTEGER,
	themes      TEXT,
	analyzed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS profile (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS recommendations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	song_id        TEXT NOT NULL,
	context        TEXT,
	recommended_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recommendations_at ON recommendations(recommended_at);
`

// Open opens the SQLite database at path (":memory:" for tests) and applies
// the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The pipeline is sequential per request; a single connection keeps
	// SQLite writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}
