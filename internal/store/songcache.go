package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tunesmith/internal/core"
)

// SongCache persists track analyses keyed by catalog identifier. Put is a
// full overwrite; Get returns (nil, nil) on a miss or when the stored row has
// no analysis yet.
type SongCache struct {
	db *sql.DB
}

func NewSongCache(db *sql.DB) *SongCache {
	return &SongCache{db: db}
}

func (c *SongCache) Get(ctx context.Context, trackID string) (*core.CachedSong, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT song_id, title, artist, album, lyrics, mood, energy, themes, analyzed_at
		 FROM songs WHERE song_id = ?`, trackID)

	var (
		song       core.CachedSong
		album      sql.NullString
		lyrics     sql.NullString
		mood       sql.NullString
		energy     sql.NullInt64
		themes     sql.NullString
		analyzedAt sql.NullTime
	)

	err := row.Scan(&song.ID, &song.Title, &song.Artist, &album, &lyrics,
		&mood, &energy, &themes, &analyzedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read song %s: %w", trackID, err)
	}

	// A row without a mood has never been analyzed and must not count as a
	// cache hit.
	if !mood.Valid || mood.String == "" {
		return nil, nil
	}

	song.Album = album.String
	song.Lyrics = lyrics.String
	song.Mood = mood.String
	song.Energy = int(energy.Int64)
	song.AnalyzedAt = analyzedAt.Time

	if themes.Valid && themes.String != "" {
		if err := json.Unmarshal([]byte(themes.String), &song.Themes); err != nil {
			song.Themes = nil
		}
	}

	return &song, nil
}

func (c *SongCache) Put(ctx context.Context, song *core.CachedSong) error {
	themes, err := json.Marshal(song.Themes)
	if err != nil {
		return fmt.Errorf("failed to encode themes for %s: %w", song.ID, err)
	}

	analyzedAt := song.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO songs
		 (song_id, title, artist, album, lyrics, mood, energy, themes, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.ID, song.Title, song.Artist, song.Album, song.Lyrics,
		song.Mood, song.Energy, string(themes), analyzedAt)
	if err != nil {
		return fmt.Errorf("failed to write song %s: %w", song.ID, err)
	}

	return nil
}
