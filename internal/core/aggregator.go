package core

import (
	"context"

	"go.uber.org/zap"
)

// Default limits for tool calls that arrive without one.
const (
	defaultToolLimit = 20
	maxToolLimit     = 50
)

// SearchAggregator runs the bounded tool loop: the reasoning service picks
// catalog tools round by round until it returns no actions or the round cap
// is hit. Individual tool failures are skipped, never fatal.
type SearchAggregator struct {
	catalog   CatalogClient
	llm       LLMProvider
	maxRounds int
	logger    *zap.Logger
}

func NewSearchAggregator(catalog CatalogClient, llm LLMProvider, maxRounds int, logger *zap.Logger) *SearchAggregator {
	if maxRounds <= 0 {
		maxRounds = 10
	}
	return &SearchAggregator{
		catalog:   catalog,
		llm:       llm,
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// Run collects candidate tracks across rounds, deduplicated by identifier
// with first-seen order preserved. A failed planning call ends the loop;
// whatever was gathered so far is returned.
func (a *SearchAggregator) Run(ctx context.Context, request string, profile map[string]string) []Track {
	seen := make(map[string]struct{})
	var collected []Track

	for round := 1; round <= a.maxRounds; round++ {
		actions, err := a.llm.PlanSearchActions(ctx, request, profile, len(collected), round)
		if err != nil {
			a.logger.Warn("Search planning failed, ending tool loop",
				zap.Int("round", round), zap.Error(err))
			break
		}

		if len(actions) == 0 {
			a.logger.Debug("Search agent done", zap.Int("round", round))
			break
		}

		for _, action := range actions {
			results, err := a.execute(ctx, action)
			if err != nil {
				a.logger.Warn("Tool call failed",
					zap.String("tool", string(action.Tool)),
					zap.Error(err))
				continue
			}

			for _, track := range results {
				if track.ID == "" {
					continue
				}
				if _, dup := seen[track.ID]; dup {
					continue
				}
				seen[track.ID] = struct{}{}
				collected = append(collected, track)
			}
		}

		a.logger.Debug("Tool loop round complete",
			zap.Int("round", round),
			zap.Int("actions", len(actions)),
			zap.Int("collected", len(collected)))
	}

	return collected
}

func (a *SearchAggregator) execute(ctx context.Context, action SearchAction) ([]Track, error) {
	limit := action.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}
	if limit > maxToolLimit {
		limit = maxToolLimit
	}

	switch action.Tool {
	case ToolSearchSongs:
		return a.catalog.Search(ctx, action.Query, limit)
	case ToolArtistTracks:
		return a.catalog.ArtistTracks(ctx, action.Artist, limit)
	case ToolRelatedTracks:
		return a.catalog.RelatedTracks(ctx, action.TrackID, limit)
	case ToolLikedTracks:
		return a.catalog.LikedTracks(ctx, limit)
	default:
		a.logger.Warn("Unknown tool requested", zap.String("tool", string(action.Tool)))
		return nil, nil
	}
}
