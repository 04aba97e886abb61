package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// progressInterval controls how often batch analysis reports progress.
const progressInterval = 5

// Analyzer turns candidate tracks into scored tracks. Cached songs take the
// cheap re-scoring path; unknown songs take the expensive path of lyrics
// lookup plus full analysis, written through to the cache on success.
type Analyzer struct {
	catalog CatalogClient
	llm     LLMProvider
	cache   SongCache
	logger  *zap.Logger
}

func NewAnalyzer(catalog CatalogClient, llm LLMProvider, cache SongCache, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		catalog: catalog,
		llm:     llm,
		cache:   cache,
		logger:  logger,
	}
}

// ScoreCached re-scores already analyzed songs against the current request.
// A failed scoring call degrades to the neutral score so the song stays in
// contention.
func (a *Analyzer) ScoreCached(ctx context.Context, songs []CachedSong, request string,
	profile map[string]string) []ScoredTrack {
	scored := make([]ScoredTrack, 0, len(songs))

	for _, song := range songs {
		entry := ScoredTrack{
			Track:  song.Track,
			Mood:   song.Mood,
			Energy: song.Energy,
			Themes: song.Themes,
		}

		match, err := a.llm.ScoreCachedTrack(ctx, song, request, profile)
		if err != nil {
			a.logger.Warn("Cached track scoring failed, using neutral score",
				zap.String("trackID", song.ID), zap.Error(err))
			entry.MatchScore = NeutralScore
		} else {
			entry.MatchScore = clampScore(match.Score)
			entry.Reason = match.Reason
		}

		scored = append(scored, entry)
	}

	return scored
}

// AnalyzeBatch runs full analysis over unknown tracks. Successful analyses
// are persisted to the song cache; failures produce an in-memory placeholder
// that is deliberately never persisted, so the track gets a real analysis on
// a future request.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, tracks []Track, request string,
	profile map[string]string, progress ProgressFunc) []ScoredTrack {
	scored := make([]ScoredTrack, 0, len(tracks))

	for i, track := range tracks {
		scored = append(scored, a.analyzeOne(ctx, track, request, profile))

		done := i + 1
		if progress != nil && (done%progressInterval == 0 || done == len(tracks)) {
			progress(fmt.Sprintf("🎵 Analyzed %d/%d songs...", done, len(tracks)))
		}
	}

	return scored
}

func (a *Analyzer) analyzeOne(ctx context.Context, track Track, request string,
	profile map[string]string) ScoredTrack {
	if track.Lyrics == "" {
		lyrics, err := a.catalog.Lyrics(ctx, track)
		if err != nil {
			a.logger.Debug("Lyrics lookup failed",
				zap.String("title", track.Title),
				zap.String("artist", track.Artist),
				zap.Error(err))
		}
		track.Lyrics = lyrics
	}

	analysis, err := a.llm.AnalyzeTrack(ctx, track, request, profile)
	if err != nil {
		a.logger.Warn("Track analysis failed, using placeholder",
			zap.String("trackID", track.ID), zap.Error(err))
		return placeholderTrack(track)
	}

	if err := a.cache.Put(ctx, &CachedSong{
		Track:      track,
		Mood:       analysis.Mood,
		Energy:     analysis.Energy,
		Themes:     analysis.Themes,
		AnalyzedAt: time.Now(),
	}); err != nil {
		a.logger.Error("Failed to cache analysis",
			zap.String("trackID", track.ID), zap.Error(err))
	}

	return ScoredTrack{
		Track:      track,
		Mood:       analysis.Mood,
		Energy:     analysis.Energy,
		Themes:     analysis.Themes,
		MatchScore: analysis.MatchScore,
		Reason:     analysis.Reason,
	}
}

// placeholderTrack keeps an unanalyzable track in contention at neutral
// strength without poisoning the cache.
func placeholderTrack(track Track) ScoredTrack {
	return ScoredTrack{
		Track:      track,
		Mood:       "unknown",
		Energy:     NeutralScore,
		MatchScore: NeutralScore,
	}
}

func clampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
