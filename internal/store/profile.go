package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ProfileStore persists the user's taste preferences as key/value pairs.
// Last write wins.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (p *ProfileStore) Get(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, value FROM profile`)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	defer rows.Close()

	profile := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profile[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile rows: %w", err)
	}

	return profile, nil
}

func (p *ProfileStore) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO profile (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set profile key %s: %w", key, err)
	}
	return nil
}
