package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tunesmith/pkg/fuzzy"
)

// Limits applied while assembling the candidate pool.
const (
	// searchQueryLimit is the per-query result limit for plan searches.
	searchQueryLimit = 30
	// artistTracksLimit is the per-artist result limit for plan lookups.
	artistTracksLimit = 20
	// analyzeMultiplier bounds the candidate pool at N x target_songs before
	// the expensive analysis stage.
	analyzeMultiplier = 3
)

const settingsHelp = "Use /taste to set preferences.\nExample: /taste favorite_artists Sid Sriram, DSP"

const defaultChatReply = "Hey! Ask me for a playlist anytime."

// Metrics records pipeline observations. Implemented by the HTTP server; a
// nil-safe no-op is used in tests.
type Metrics interface {
	RecordRequest(resultType string)
	RecordCacheLookup(hit bool)
	RecordLLMFallback(stage string)
	ObservePipelineDuration(d time.Duration)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordRequest(string)                 {}
func (NopMetrics) RecordCacheLookup(bool)               {}
func (NopMetrics) RecordLLMFallback(string)             {}
func (NopMetrics) ObservePipelineDuration(time.Duration) {}

// Orchestrator drives one request through the full pipeline: intent, plan,
// aggregation, cache split, analysis, sequencing and ledger logging. All
// collaborators are injected; external failures degrade to deterministic
// fallbacks at each step.
type Orchestrator struct {
	config     *Config
	catalog    CatalogClient
	llm        LLMProvider
	cache      SongCache
	profile    ProfileStore
	ledger     RecommendationLedger
	exclusions func() ExclusionSet
	metrics    Metrics
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger

	aggregator *SearchAggregator
	analyzer   *Analyzer
	sequencer  *Sequencer
}

func NewOrchestrator(
	config *Config,
	catalog CatalogClient,
	llm LLMProvider,
	cache SongCache,
	profile ProfileStore,
	ledger RecommendationLedger,
	exclusions func() ExclusionSet,
	metrics Metrics,
	logger *zap.Logger,
) *Orchestrator {
	if metrics == nil {
		metrics = NopMetrics{}
	}

	return &Orchestrator{
		config:     config,
		catalog:    catalog,
		llm:        llm,
		cache:      cache,
		profile:    profile,
		ledger:     ledger,
		exclusions: exclusions,
		metrics:    metrics,
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
		aggregator: NewSearchAggregator(catalog, llm, config.LLM.SearchRounds, logger.Named("aggregator")),
		analyzer:   NewAnalyzer(catalog, llm, cache, logger.Named("analyzer")),
		sequencer:  NewSequencer(catalog, llm, logger.Named("sequencer")),
	}
}

// Run processes one free-text request and always produces a terminal Result
// unless storage itself is unreachable. Progress notifications are
// fire-and-forget.
func (o *Orchestrator) Run(ctx context.Context, request string, progress ProgressFunc) (*Result, error) {
	start := time.Now()
	defer func() {
		o.metrics.ObservePipelineDuration(time.Since(start))
	}()

	update := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	intent := o.classifyIntent(ctx, request)

	switch intent.Intent {
	case IntentChat:
		reply := intent.Response
		if reply == "" {
			reply = defaultChatReply
		}
		o.metrics.RecordRequest(string(ResultChat))
		return &Result{Type: ResultChat, Message: reply}, nil

	case IntentSettings:
		o.metrics.RecordRequest(string(ResultSettings))
		return &Result{Type: ResultSettings, Message: settingsHelp}, nil
	}

	update("🧠 Understanding your request...")

	profile, err := o.profile.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	recentIDs, err := o.ledger.RecentIDs(ctx, o.config.Store.RecentDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent recommendations: %w", err)
	}

	// The plan prompt wants the volume of recent recommendations, which is
	// the raw entry count, not the distinct-track set used for exclusion.
	recentCount, err := o.ledger.RecentCount(ctx, o.config.Store.RecentDays)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent recommendations: %w", err)
	}

	plan := o.createPlan(ctx, request, profile, recentCount)

	update("🔍 Searching for songs...")

	candidates := o.aggregate(ctx, request, profile, plan, recentIDs)

	update(fmt.Sprintf("📋 Found %d songs", len(candidates)))

	cached, uncached := o.splitByCache(ctx, candidates)

	update(fmt.Sprintf("💾 Cached: %d | New: %d", len(cached), len(uncached)))

	var scored []ScoredTrack
	if len(cached) > 0 {
		update("⚖️ Scoring songs against your request...")
		scored = o.analyzer.ScoreCached(ctx, cached, request, profile)
	}

	analyzedNew := o.analyzer.AnalyzeBatch(ctx, uncached, request, profile, update)
	scored = append(scored, analyzedNew...)

	update("🎼 Creating playlist...")

	playlist := o.sequencer.Create(ctx, scored, request, profile, plan.TargetSongs)

	for _, entry := range playlist.Entries {
		if err := o.ledger.Append(ctx, entry.TrackID, request); err != nil {
			o.logger.Error("Failed to log recommendation",
				zap.String("trackID", entry.TrackID),
				zap.Error(err))
		}
	}

	o.metrics.RecordRequest(string(ResultPlaylist))

	return &Result{
		Type:     ResultPlaylist,
		Playlist: playlist,
		Plan:     plan,
	}, nil
}

// classifyIntent asks the reasoning service for the request's intent.
// Any failure or malformed response falls back to playlist.
func (o *Orchestrator) classifyIntent(ctx context.Context, request string) *IntentResult {
	intent, err := o.llm.ClassifyIntent(ctx, request)
	if err != nil {
		o.logger.Warn("Intent classification failed, assuming playlist", zap.Error(err))
		o.metrics.RecordLLMFallback("intent")
		return &IntentResult{Intent: IntentPlaylist}
	}
	return intent
}

// createPlan asks the reasoning service for a per-request strategy. Any
// failure falls back to a deterministic default plan.
func (o *Orchestrator) createPlan(ctx context.Context, request string,
	profile map[string]string, recentCount int) *Plan {
	plan, err := o.llm.GeneratePlan(ctx, request, profile, recentCount, time.Now())
	if err != nil {
		o.logger.Warn("Plan generation failed, using default plan", zap.Error(err))
		o.metrics.RecordLLMFallback("plan")
		return o.defaultPlan(request)
	}
	return plan
}

func (o *Orchestrator) defaultPlan(request string) *Plan {
	return &Plan{
		UnderstoodRequest: request,
		InferredMood:      "neutral",
		Strategy:          "match mood",
		SearchQueries:     []string{request},
		SearchArtists:     nil,
		TargetSongs:       o.config.App.DefaultTargetSongs,
		PlaylistMood:      request,
		PlaylistFlow:      "balanced",
	}
}

// aggregate merges the tool-loop results with one search per plan query and
// one artist lookup per plan artist, deduplicates by identifier and by
// normalized title/artist key (first seen wins), drops recently recommended
// tracks and caps the pool at analyzeMultiplier x target_songs.
func (o *Orchestrator) aggregate(ctx context.Context, request string,
	profile map[string]string, plan *Plan, recentIDs map[string]struct{}) []Track {
	var all []Track

	all = append(all, o.aggregator.Run(ctx, request, profile)...)

	for _, query := range plan.SearchQueries {
		results, err := o.catalog.Search(ctx, query, searchQueryLimit)
		if err != nil {
			o.logger.Warn("Plan search failed", zap.String("query", query), zap.Error(err))
			continue
		}
		all = append(all, results...)
	}

	for _, artist := range plan.SearchArtists {
		results, err := o.catalog.ArtistTracks(ctx, artist, artistTracksLimit)
		if err != nil {
			o.logger.Warn("Plan artist lookup failed", zap.String("artist", artist), zap.Error(err))
			continue
		}
		all = append(all, results...)
	}

	excluded := o.exclusions()
	ids := make([]string, 0, len(recentIDs))
	for id := range recentIDs {
		ids = append(ids, id)
	}
	excluded.Load(ids)

	seenKeys := make(map[string]struct{})

	var unique []Track
	for _, track := range all {
		if track.ID == "" || excluded.Has(track.ID) {
			continue
		}
		// Different sources can return the same recording under different
		// identifiers (original vs remaster, feat. credit variants).
		if track.Title != "" || track.Artist != "" {
			key := o.normalizer.TrackKey(track.Title, track.Artist)
			if _, dup := seenKeys[key]; dup {
				continue
			}
			seenKeys[key] = struct{}{}
		}
		excluded.Add(track.ID)
		unique = append(unique, track)
	}

	maxToAnalyze := plan.TargetSongs * analyzeMultiplier
	if len(unique) > maxToAnalyze {
		unique = unique[:maxToAnalyze]
	}

	o.logger.Debug("Candidate pool assembled",
		zap.Int("raw", len(all)),
		zap.Int("unique", len(unique)),
		zap.Int("excludedRecent", len(recentIDs)))

	return unique
}

// splitByCache partitions candidates into cached (analysis present) and
// uncached. Cache read errors count as misses.
func (o *Orchestrator) splitByCache(ctx context.Context, candidates []Track) ([]CachedSong, []Track) {
	var cached []CachedSong
	var uncached []Track

	for _, track := range candidates {
		song, err := o.cache.Get(ctx, track.ID)
		if err != nil {
			o.logger.Warn("Song cache read failed", zap.String("trackID", track.ID), zap.Error(err))
		}

		if song != nil && song.Mood != "" {
			o.metrics.RecordCacheLookup(true)
			cached = append(cached, *song)
		} else {
			o.metrics.RecordCacheLookup(false)
			uncached = append(uncached, track)
		}
	}

	return cached, uncached
}
