// Package llm implements the reasoning-service capability surface over
// OpenAI, Anthropic or a local Ollama instance. Each pipeline call site has a
// fixed JSON contract; responses that fail to parse or validate surface as
// errors so call sites can apply their deterministic fallbacks.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"tunesmith/internal/core"
)

// completionClient is the one primitive every backend must provide: a
// system-prompted completion returning raw text.
type completionClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Provider implements core.LLMProvider on top of a completionClient.
type Provider struct {
	config *core.LLMConfig
	logger *zap.Logger
	client completionClient
}

func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client completionClient
	var err error

	switch config.Provider {
	case "openai":
		client, err = NewOpenAIClient(config, logger)
	case "anthropic":
		client, err = NewAnthropicClient(config, logger)
	case "ollama":
		client, err = NewOllamaClient(config, logger)
	case "none", "":
		client = &NoOpClient{}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config: config,
		logger: logger,
		client: client,
	}, nil
}

type intentResponse struct {
	Intent   string `json:"intent"`
	Response string `json:"response"`
}

func (p *Provider) ClassifyIntent(ctx context.Context, request string) (*core.IntentResult, error) {
	content, err := p.client.Complete(ctx, intentPrompt, request, maxTokensIntent)
	if err != nil {
		return nil, err
	}

	var resp intentResponse
	if err := decodeJSON(content, &resp); err != nil {
		p.logger.Warn("Failed to parse intent response", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	switch core.Intent(resp.Intent) {
	case core.IntentChat, core.IntentPlaylist, core.IntentSettings:
	default:
		return nil, fmt.Errorf("unknown intent label: %q", resp.Intent)
	}

	return &core.IntentResult{
		Intent:   core.Intent(resp.Intent),
		Response: resp.Response,
	}, nil
}

type planResponse struct {
	UnderstoodRequest   string   `json:"understood_request"`
	InferredMood        string   `json:"inferred_mood"`
	Strategy            string   `json:"strategy"`
	SearchQueries       []string `json:"search_queries"`
	SearchArtists       []string `json:"search_artists"`
	TargetSongs         int      `json:"target_songs"`
	PlaylistMood        string   `json:"playlist_mood"`
	PlaylistFlow        string   `json:"playlist_flow"`
	SpecialInstructions string   `json:"special_instructions"`
}

func (p *Provider) GeneratePlan(ctx context.Context, request string, profile map[string]string,
	recentCount int, now time.Time) (*core.Plan, error) {
	system := fmt.Sprintf(planPrompt,
		formatProfile(profile),
		fmt.Sprintf("%d songs recommended in the recent window", recentCount),
		now.Format("3:04 PM"),
		now.Format("Monday"))

	content, err := p.client.Complete(ctx, system, request, maxTokensPlan)
	if err != nil {
		return nil, err
	}

	var resp planResponse
	if err := decodeJSON(content, &resp); err != nil {
		p.logger.Warn("Failed to parse plan response", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	if resp.TargetSongs <= 0 {
		return nil, fmt.Errorf("plan has non-positive target_songs: %d", resp.TargetSongs)
	}
	if len(resp.SearchQueries) == 0 {
		return nil, fmt.Errorf("plan has no search queries")
	}

	return &core.Plan{
		UnderstoodRequest:   resp.UnderstoodRequest,
		InferredMood:        resp.InferredMood,
		Strategy:            resp.Strategy,
		SearchQueries:       resp.SearchQueries,
		SearchArtists:       resp.SearchArtists,
		TargetSongs:         resp.TargetSongs,
		PlaylistMood:        resp.PlaylistMood,
		PlaylistFlow:        resp.PlaylistFlow,
		SpecialInstructions: resp.SpecialInstructions,
	}, nil
}

type searchActionsResponse struct {
	Actions []struct {
		Tool    string `json:"tool"`
		Query   string `json:"query,omitempty"`
		Artist  string `json:"artist,omitempty"`
		TrackID string `json:"track_id,omitempty"`
		Limit   int    `json:"limit,omitempty"`
	} `json:"actions"`
}

func (p *Provider) PlanSearchActions(ctx context.Context, request string, profile map[string]string,
	resultCount, round int) ([]core.SearchAction, error) {
	system := fmt.Sprintf(searchAgentPrompt, formatProfile(profile))
	user := fmt.Sprintf("Find songs for: %s\n\nRound %d. Found %d songs so far. "+
		"Need more variety? Request more tool calls, or return an empty actions list if done.",
		request, round, resultCount)

	content, err := p.client.Complete(ctx, system, user, maxTokensSearch)
	if err != nil {
		return nil, err
	}

	var resp searchActionsResponse
	if err := decodeJSON(content, &resp); err != nil {
		p.logger.Warn("Failed to parse search actions", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	var actions []core.SearchAction
	for _, a := range resp.Actions {
		tool := core.SearchTool(a.Tool)
		switch tool {
		case core.ToolSearchSongs, core.ToolArtistTracks, core.ToolRelatedTracks, core.ToolLikedTracks:
		default:
			p.logger.Debug("Skipping unknown search tool", zap.String("tool", a.Tool))
			continue
		}

		actions = append(actions, core.SearchAction{
			Tool:    tool,
			Query:   a.Query,
			Artist:  a.Artist,
			TrackID: a.TrackID,
			Limit:   a.Limit,
		})
	}

	return actions, nil
}

type analysisResponse struct {
	Mood       string   `json:"mood"`
	Energy     int      `json:"energy"`
	Themes     []string `json:"themes"`
	MatchScore int      `json:"match_score"`
	Reason     string   `json:"reason"`
}

func (p *Provider) AnalyzeTrack(ctx context.Context, track core.Track, request string,
	profile map[string]string) (*core.TrackAnalysis, error) {
	system := fmt.Sprintf(analysisPrompt, formatProfile(profile), request)

	lyrics := track.Lyrics
	if lyrics == "" {
		lyrics = "Not available"
	} else if len(lyrics) > lyricsExcerptChars {
		lyrics = lyrics[:lyricsExcerptChars] + "..."
	}

	user := fmt.Sprintf("Song: %s\nArtist: %s\nLyrics: %s", track.Title, track.Artist, lyrics)

	content, err := p.client.Complete(ctx, system, user, maxTokensAnalysis)
	if err != nil {
		return nil, err
	}

	var resp analysisResponse
	if err := decodeJSON(content, &resp); err != nil {
		p.logger.Warn("Failed to parse analysis response",
			zap.Error(err), zap.String("track", track.Title), zap.String("content", content))
		return nil, err
	}

	if resp.Mood == "" {
		return nil, fmt.Errorf("analysis has empty mood for track %s", track.ID)
	}

	return &core.TrackAnalysis{
		Mood:       resp.Mood,
		Energy:     clampScore(resp.Energy),
		Themes:     resp.Themes,
		MatchScore: clampScore(resp.MatchScore),
		Reason:     resp.Reason,
	}, nil
}

type scoreResponse struct {
	MatchScore int    `json:"match_score"`
	Reason     string `json:"reason"`
}

func (p *Provider) ScoreCachedTrack(ctx context.Context, song core.CachedSong, request string,
	profile map[string]string) (*core.MatchScore, error) {
	user := fmt.Sprintf(scoreCachedPrompt,
		formatProfile(profile), request,
		song.Title, song.Artist, song.Mood, song.Energy, strings.Join(song.Themes, ", "))

	content, err := p.client.Complete(ctx, scoreCachedSystem, user, maxTokensScore)
	if err != nil {
		return nil, err
	}

	var resp scoreResponse
	if err := decodeJSON(content, &resp); err != nil {
		p.logger.Warn("Failed to parse score response",
			zap.Error(err), zap.String("track", song.Title), zap.String("content", content))
		return nil, err
	}

	return &core.MatchScore{
		Score:  clampScore(resp.MatchScore),
		Reason: resp.Reason,
	}, nil
}

type sequenceResponse struct {
	PlaylistName      string `json:"playlist_name"`
	Description       string `json:"description"`
	TotalSongs        int    `json:"total_songs"`
	EstimatedDuration string `json:"estimated_duration"`
	Songs             []struct {
		Position int    `json:"position"`
		SongID   string `json:"song_id"`
		Title    string `json:"title"`
		Artist   string `json:"artist"`
		Reason   string `json:"reason"`
	} `json:"songs"`
	FlowDescription string `json:"flow_description"`
}

func (p *Provider) SequencePlaylist(ctx context.Context, candidates []core.ScoredTrack, request string,
	profile map[string]string, targetLength int) (*core.Playlist, error) {
	system := fmt.Sprintf(sequencePrompt, formatProfile(profile))

	catalog := make([]map[string]any, 0, len(candidates))
	for _, s := range candidates {
		catalog = append(catalog, map[string]any{
			"song_id":     s.ID,
			"title":       s.Title,
			"artist":      s.Artist,
			"mood":        s.Mood,
			"energy":      s.Energy,
			"themes":      s.Themes,
			"match_score": s.MatchScore,
		})
	}

	encoded, err := json.Marshal(catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to encode candidates: %w", err)
	}

	user := fmt.Sprintf("Request: %s\nTarget length: %d songs\n\n"+
		"Available songs (pick and sequence the best ones):\n%s\n\nCreate the playlist.",
		request, targetLength, string(encoded))

	content, err := p.client.Complete(ctx, system, user, maxTokensSequence)
	if err != nil {
		return nil, err
	}

	var resp sequenceResponse
	if err := decodeJSON(content, &resp); err != nil {
		p.logger.Warn("Failed to parse sequence response", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	if len(resp.Songs) == 0 {
		return nil, fmt.Errorf("sequencing returned no songs")
	}

	playlist := &core.Playlist{
		Name:              resp.PlaylistName,
		Description:       resp.Description,
		TotalSongs:        len(resp.Songs),
		EstimatedDuration: resp.EstimatedDuration,
		FlowDescription:   resp.FlowDescription,
	}

	known := make(map[string]core.ScoredTrack, len(candidates))
	for _, s := range candidates {
		known[s.ID] = s
	}

	for _, s := range resp.Songs {
		track, ok := known[s.SongID]
		if !ok {
			// The reasoning service may only sequence tracks it was given.
			p.logger.Debug("Dropping hallucinated track from sequence", zap.String("song_id", s.SongID))
			continue
		}

		playlist.Entries = append(playlist.Entries, core.PlaylistEntry{
			Position: s.Position,
			TrackID:  track.ID,
			Title:    track.Title,
			Artist:   track.Artist,
			Reason:   s.Reason,
		})
	}

	if len(playlist.Entries) == 0 {
		return nil, fmt.Errorf("sequencing returned no usable songs")
	}

	sort.SliceStable(playlist.Entries, func(i, j int) bool {
		return playlist.Entries[i].Position < playlist.Entries[j].Position
	})
	for i := range playlist.Entries {
		playlist.Entries[i].Position = i + 1
	}
	playlist.TotalSongs = len(playlist.Entries)

	return playlist, nil
}

// NoOpClient is used when no reasoning provider is configured. Every call
// fails, which drives each call site into its deterministic fallback.
type NoOpClient struct{}

func (n *NoOpClient) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	return "", fmt.Errorf("LLM provider not configured")
}

func clampScore(v int) int {
	if v < core.MinScore {
		return core.MinScore
	}
	if v > core.MaxScore {
		return core.MaxScore
	}
	return v
}

func formatProfile(profile map[string]string) string {
	if len(profile) == 0 {
		return "Not set yet"
	}

	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, profile[k])
	}
	return b.String()
}

// decodeJSON parses a completion into dst, tolerating markdown code fences
// around the JSON object.
func decodeJSON(content string, dst any) error {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), dst); err != nil {
		return fmt.Errorf("failed to parse LLM response: %w", err)
	}
	return nil
}
