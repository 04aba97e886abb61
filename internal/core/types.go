package core

import (
	"context"
	"time"
)

// Intent is the classified purpose of an incoming request.
type Intent string

const (
	// IntentChat means the user is just chatting or greeting.
	IntentChat Intent = "chat"
	// IntentPlaylist means the user wants a playlist built.
	IntentPlaylist Intent = "playlist"
	// IntentSettings means the user is asking about preferences/settings.
	IntentSettings Intent = "settings"
)

// Score bounds for energy and match scores.
const (
	MinScore = 1
	MaxScore = 10
	// NeutralScore is used when the reasoning service cannot produce a score.
	NeutralScore = 5
)

type Track struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Lyrics string
}

// TrackAnalysis is the reasoning service's read of a single track.
// Energy and MatchScore are clamped to [MinScore, MaxScore] at the parse
// boundary. An analysis without a mood is treated as absent.
type TrackAnalysis struct {
	Mood       string
	Energy     int
	Themes     []string
	MatchScore int
	Reason     string
}

// Analyzed reports whether this analysis can satisfy a cache hit.
func (a *TrackAnalysis) Analyzed() bool {
	return a != nil && a.Mood != ""
}

// CachedSong is a track together with its persisted analysis.
type CachedSong struct {
	Track
	Mood       string
	Energy     int
	Themes     []string
	AnalyzedAt time.Time
}

// ScoredTrack is a track annotated with a request-specific match score.
type ScoredTrack struct {
	Track
	Mood       string
	Energy     int
	Themes     []string
	MatchScore int
	Reason     string
}

// IntentResult is the outcome of intent classification.
type IntentResult struct {
	Intent   Intent
	Response string
}

// Plan is the per-request strategy produced at the start of the pipeline.
// It is never persisted.
type Plan struct {
	UnderstoodRequest   string
	InferredMood        string
	Strategy            string
	SearchQueries       []string
	SearchArtists       []string
	TargetSongs         int
	PlaylistMood        string
	PlaylistFlow        string
	SpecialInstructions string
}

type PlaylistEntry struct {
	Position int
	TrackID  string
	Title    string
	Artist   string
	Reason   string
}

// Playlist is the sequenced output of one successful request. ExternalID and
// URL are set only when materialization on the catalog succeeded;
// MaterializeError records a non-fatal materialization failure.
type Playlist struct {
	Name              string
	Description       string
	TotalSongs        int
	EstimatedDuration string
	Entries           []PlaylistEntry
	FlowDescription   string
	ExternalID        string
	URL               string
	MaterializeError  string
}

// ResultType discriminates the terminal response of a request.
type ResultType string

const (
	ResultChat     ResultType = "chat"
	ResultSettings ResultType = "settings"
	ResultPlaylist ResultType = "playlist"
)

// Result is what the orchestrator hands back to the frontend.
type Result struct {
	Type     ResultType
	Message  string
	Playlist *Playlist
	Plan     *Plan
}

// SearchTool identifies one catalog capability the reasoning service may
// invoke during the aggregation loop.
type SearchTool string

const (
	ToolSearchSongs   SearchTool = "search_songs"
	ToolArtistTracks  SearchTool = "artist_tracks"
	ToolRelatedTracks SearchTool = "related_tracks"
	ToolLikedTracks   SearchTool = "liked_tracks"
)

// SearchAction is one structured tool invocation requested by the reasoning
// service.
type SearchAction struct {
	Tool    SearchTool
	Query   string
	Artist  string
	TrackID string
	Limit   int
}

// MatchScore is the cheap re-score result for a cached song.
type MatchScore struct {
	Score  int
	Reason string
}

// ProgressFunc receives human-readable pipeline progress. Delivery is
// fire-and-forget: implementations must not block or fail the pipeline.
type ProgressFunc func(text string)

// CatalogClient is the capability surface over the external music catalog.
type CatalogClient interface {
	Search(ctx context.Context, query string, limit int) ([]Track, error)
	ArtistTracks(ctx context.Context, artist string, limit int) ([]Track, error)
	RelatedTracks(ctx context.Context, trackID string, limit int) ([]Track, error)
	LikedTracks(ctx context.Context, limit int) ([]Track, error)
	// Lyrics returns the lyrics text for a track, or "" when unavailable.
	// A missing-lyrics result is not an error.
	Lyrics(ctx context.Context, track Track) (string, error)
	CreatePlaylist(ctx context.Context, title, description string) (string, error)
	AppendTracks(ctx context.Context, playlistID string, trackIDs []string) error
	PlaylistURL(playlistID string) string
}

// LLMProvider is the capability surface over the external reasoning service.
// Every method requires a response parseable as a fixed JSON schema; parse or
// schema violations surface as errors which call sites convert to their
// documented fallbacks.
type LLMProvider interface {
	ClassifyIntent(ctx context.Context, request string) (*IntentResult, error)
	GeneratePlan(ctx context.Context, request string, profile map[string]string, recentCount int, now time.Time) (*Plan, error)
	PlanSearchActions(ctx context.Context, request string, profile map[string]string, resultCount, round int) ([]SearchAction, error)
	AnalyzeTrack(ctx context.Context, track Track, request string, profile map[string]string) (*TrackAnalysis, error)
	ScoreCachedTrack(ctx context.Context, song CachedSong, request string, profile map[string]string) (*MatchScore, error)
	SequencePlaylist(ctx context.Context, candidates []ScoredTrack, request string, profile map[string]string, targetLength int) (*Playlist, error)
}

// SongCache is the durable track-analysis cache. Get returns (nil, nil) on a
// miss; Put overwrites the full record.
type SongCache interface {
	Get(ctx context.Context, trackID string) (*CachedSong, error)
	Put(ctx context.Context, song *CachedSong) error
}

// ProfileStore holds the user's taste preferences. Last write wins.
type ProfileStore interface {
	Get(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// RecommendationLedger is the append-only recommendation history.
type RecommendationLedger interface {
	Append(ctx context.Context, trackID, requestContext string) error
	RecentIDs(ctx context.Context, windowDays int) (map[string]struct{}, error)
	RecentCount(ctx context.Context, windowDays int) (int, error)
}

// ExclusionSet tracks identifiers already seen or recently recommended while
// a candidate set is being assembled.
type ExclusionSet interface {
	Has(trackID string) bool
	Add(trackID string)
	Load(trackIDs []string)
	Size() int
	Clear()
}
