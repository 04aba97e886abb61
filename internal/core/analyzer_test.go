package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestScoreCachedFallsBackToNeutral(t *testing.T) {
	llm := &stubLLM{
		scoreFn: func(song CachedSong) (*MatchScore, error) {
			if song.ID == "good" {
				return &MatchScore{Score: 9, Reason: "strong match"}, nil
			}
			return nil, errors.New("timeout")
		},
	}

	a := NewAnalyzer(&stubCatalog{}, llm, &stubCache{}, zap.NewNop())

	songs := []CachedSong{
		{Track: Track{ID: "good"}, Mood: "calm"},
		{Track: Track{ID: "bad"}, Mood: "tense"},
	}

	scored := a.ScoreCached(context.Background(), songs, "request", nil)
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored tracks, got %d", len(scored))
	}
	if scored[0].MatchScore != 9 || scored[0].Reason != "strong match" {
		t.Errorf("scored[0] = %+v", scored[0])
	}
	if scored[1].MatchScore != NeutralScore {
		t.Errorf("failed scoring must degrade to neutral %d, got %d", NeutralScore, scored[1].MatchScore)
	}
	if scored[1].Mood != "tense" {
		t.Errorf("cached mood must survive the fallback, got %q", scored[1].Mood)
	}
}

func TestScoreCachedClampsOutOfRangeScores(t *testing.T) {
	llm := &stubLLM{
		scoreFn: func(CachedSong) (*MatchScore, error) {
			return &MatchScore{Score: 42}, nil
		},
	}

	a := NewAnalyzer(&stubCatalog{}, llm, &stubCache{}, zap.NewNop())

	scored := a.ScoreCached(context.Background(),
		[]CachedSong{{Track: Track{ID: "t"}, Mood: "x"}}, "request", nil)
	if scored[0].MatchScore != MaxScore {
		t.Errorf("score must be clamped to %d, got %d", MaxScore, scored[0].MatchScore)
	}
}

func TestAnalyzeBatchPersistsSuccessfulAnalyses(t *testing.T) {
	catalog := &stubCatalog{
		lyrics: map[string]string{"t-0": "some lyrics here"},
	}
	llm := &stubLLM{
		analyzeFn: func(track Track) (*TrackAnalysis, error) {
			if track.Lyrics == "" {
				t.Errorf("lyrics must be fetched before analysis for %s", track.ID)
			}
			return &TrackAnalysis{Mood: "warm", Energy: 4, MatchScore: 7}, nil
		},
	}
	cache := &stubCache{}

	a := NewAnalyzer(catalog, llm, cache, zap.NewNop())

	scored := a.AnalyzeBatch(context.Background(), makeTracks(1, "t"), "request", nil, nil)
	if len(scored) != 1 {
		t.Fatalf("expected 1 scored track, got %d", len(scored))
	}
	if scored[0].Mood != "warm" || scored[0].MatchScore != 7 {
		t.Errorf("scored[0] = %+v", scored[0])
	}

	if len(cache.puts) != 1 {
		t.Fatalf("successful analysis must be written through, got %d puts", len(cache.puts))
	}
	if cache.puts[0].Mood != "warm" {
		t.Errorf("cached mood = %q", cache.puts[0].Mood)
	}
}

// A failed analysis keeps the track in contention with a placeholder, but
// the placeholder must never reach the cache.
func TestAnalyzeBatchPlaceholderNotPersisted(t *testing.T) {
	cache := &stubCache{}
	a := NewAnalyzer(&stubCatalog{}, &stubLLM{}, cache, zap.NewNop())

	scored := a.AnalyzeBatch(context.Background(), makeTracks(1, "t"), "request", nil, nil)
	if len(scored) != 1 {
		t.Fatalf("expected 1 scored track, got %d", len(scored))
	}
	if scored[0].Mood != "unknown" || scored[0].MatchScore != NeutralScore {
		t.Errorf("placeholder = %+v", scored[0])
	}
	if len(cache.puts) != 0 {
		t.Errorf("placeholder must not be persisted, got %d puts", len(cache.puts))
	}
}

func TestAnalyzeBatchLyricsFailureIsNotFatal(t *testing.T) {
	catalog := &stubCatalog{lyricsErr: errors.New("provider down")}
	llm := &stubLLM{
		analyzeFn: func(Track) (*TrackAnalysis, error) {
			return &TrackAnalysis{Mood: "bright", Energy: 8, MatchScore: 6}, nil
		},
	}

	a := NewAnalyzer(catalog, llm, &stubCache{}, zap.NewNop())

	scored := a.AnalyzeBatch(context.Background(), makeTracks(1, "t"), "request", nil, nil)
	if scored[0].Mood != "bright" {
		t.Errorf("analysis must proceed without lyrics, got %+v", scored[0])
	}
}

func TestAnalyzeBatchProgressCadence(t *testing.T) {
	llm := &stubLLM{
		analyzeFn: func(Track) (*TrackAnalysis, error) {
			return &TrackAnalysis{Mood: "x", Energy: 5, MatchScore: 5}, nil
		},
	}

	a := NewAnalyzer(&stubCatalog{}, llm, &stubCache{}, zap.NewNop())

	var updates []string
	a.AnalyzeBatch(context.Background(), makeTracks(12, "t"), "request", nil, func(msg string) {
		updates = append(updates, msg)
	})

	// Every 5 tracks plus the final one: 5, 10, 12.
	if len(updates) != 3 {
		t.Fatalf("expected 3 progress updates, got %d: %v", len(updates), updates)
	}
	if !strings.Contains(updates[2], "12/12") {
		t.Errorf("final update must report completion, got %q", updates[2])
	}
}
