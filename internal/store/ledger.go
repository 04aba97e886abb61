package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecommendationLedger is the append-only log of recommended tracks. Entries
// are never mutated or deleted; readers only compute a rolling recent window.
type RecommendationLedger struct {
	db *sql.DB
}

func NewRecommendationLedger(db *sql.DB) *RecommendationLedger {
	return &RecommendationLedger{db: db}
}

func (l *RecommendationLedger) Append(ctx context.Context, trackID, requestContext string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO recommendations (song_id, context, recommended_at) VALUES (?, ?, ?)`,
		trackID, requestContext, time.Now())
	if err != nil {
		return fmt.Errorf("failed to append recommendation %s: %w", trackID, err)
	}
	return nil
}

func (l *RecommendationLedger) RecentIDs(ctx context.Context, windowDays int) (map[string]struct{}, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	rows, err := l.db.QueryContext(ctx,
		`SELECT DISTINCT song_id FROM recommendations WHERE recommended_at > ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent recommendations: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendation rows: %w", err)
	}

	return ids, nil
}

func (l *RecommendationLedger) RecentCount(ctx context.Context, windowDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recommendations WHERE recommended_at > ?`, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent recommendations: %w", err)
	}

	return count, nil
}
