// Package catalog provides the music-catalog capability surface backed by
// the Spotify Web API, plus an HTTP lyrics lookup.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"tunesmith/internal/core"
	"tunesmith/pkg/fuzzy"
)

const (
	// tokenFilePermission is the permission for the persisted OAuth token.
	tokenFilePermission = 0600
	// maxTracksPerAppend is the Spotify API limit for one add-tracks call.
	maxTracksPerAppend = 100
	// topTracksCountry scopes artist top-track lookups.
	topTracksCountry = "US"
	// artistSearchLimit is how many artist search results are considered
	// when resolving a name to an artist ID.
	artistSearchLimit = 5
)

type Client struct {
	config     *core.CatalogConfig
	logger     *zap.Logger
	client     *spotify.Client
	auth       *spotifyauth.Authenticator
	normalizer *fuzzy.Normalizer
	limiter    *rate.Limiter
	lyrics     *LyricsClient
	userID     string
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.CatalogConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopeUserLibraryRead,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	rps := config.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		config:     config,
		logger:     logger,
		auth:       auth,
		normalizer: fuzzy.NewNormalizer(),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		lyrics:     NewLyricsClient(config.LyricsBaseURL, logger),
	}
}

func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.loadToken()
	if err != nil {
		c.logger.Info("No saved token found, starting OAuth flow")
		return c.startOAuthFlow(ctx)
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("Saved token invalid, starting OAuth flow", zap.Error(err))
		return c.startOAuthFlow(ctx)
	}

	c.userID = user.ID
	c.logger.Info("Authenticated successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]core.Track, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	normalizedQuery := c.normalizer.NormalizeTitle(query)

	results, err := c.client.Search(ctx, normalizedQuery, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if results.Tracks == nil {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		if len(tracks) >= limit {
			break
		}
		tracks = append(tracks, convertTrack(&results.Tracks.Tracks[i]))
	}

	return tracks, nil
}

func (c *Client) ArtistTracks(ctx context.Context, artist string, limit int) ([]core.Track, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	results, err := c.client.Search(ctx, artist, spotify.SearchTypeArtist, spotify.Limit(artistSearchLimit))
	if err != nil {
		return nil, fmt.Errorf("artist search failed: %w", err)
	}

	if results.Artists == nil || len(results.Artists.Artists) == 0 {
		return nil, nil
	}

	idx := bestArtistMatch(c.normalizer, artist, results.Artists.Artists)
	if idx < 0 {
		c.logger.Debug("No artist result resembles the requested name",
			zap.String("artist", artist))
		return nil, nil
	}

	artistID := results.Artists.Artists[idx].ID

	top, err := c.client.GetArtistsTopTracks(ctx, artistID, topTracksCountry)
	if err != nil {
		return nil, fmt.Errorf("failed to get artist top tracks: %w", err)
	}

	tracks := make([]core.Track, 0, len(top))
	for i := range top {
		if len(tracks) >= limit {
			break
		}
		tracks = append(tracks, convertTrack(&top[i]))
	}

	return tracks, nil
}

func (c *Client) RelatedTracks(ctx context.Context, trackID string, limit int) ([]core.Track, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	seeds := spotify.Seeds{Tracks: []spotify.ID{spotify.ID(trackID)}}

	recs, err := c.client.GetRecommendations(ctx, seeds, nil, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get related tracks: %w", err)
	}

	tracks := make([]core.Track, 0, len(recs.Tracks))
	for i := range recs.Tracks {
		tracks = append(tracks, convertSimpleTrack(&recs.Tracks[i]))
	}

	return tracks, nil
}

func (c *Client) LikedTracks(ctx context.Context, limit int) ([]core.Track, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	saved, err := c.client.CurrentUsersTracks(ctx, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get liked tracks: %w", err)
	}

	tracks := make([]core.Track, 0, len(saved.Tracks))
	for i := range saved.Tracks {
		tracks = append(tracks, convertTrack(&saved.Tracks[i].FullTrack))
	}

	return tracks, nil
}

// Lyrics returns lyrics text for a track, or "" when none are available.
func (c *Client) Lyrics(ctx context.Context, track core.Track) (string, error) {
	return c.lyrics.Fetch(ctx, track.Artist, track.Title)
}

func (c *Client) CreatePlaylist(ctx context.Context, title, description string) (string, error) {
	if err := c.ready(ctx); err != nil {
		return "", err
	}

	playlist, err := c.client.CreatePlaylistForUser(ctx, c.userID, title, description, false, false)
	if err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", err)
	}

	c.logger.Info("Playlist created",
		zap.String("playlistID", string(playlist.ID)),
		zap.String("title", title))

	return string(playlist.ID), nil
}

func (c *Client) AppendTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if err := c.ready(ctx); err != nil {
		return err
	}

	for start := 0; start < len(trackIDs); start += maxTracksPerAppend {
		end := min(start+maxTracksPerAppend, len(trackIDs))

		batch := make([]spotify.ID, 0, end-start)
		for _, id := range trackIDs[start:end] {
			batch = append(batch, spotify.ID(id))
		}

		if _, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...); err != nil {
			return fmt.Errorf("failed to add tracks to playlist: %w", err)
		}
	}

	c.logger.Info("Tracks appended to playlist",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(trackIDs)))

	return nil
}

func (c *Client) PlaylistURL(playlistID string) string {
	return "https://open.spotify.com/playlist/" + playlistID
}

// ready waits for the rate limiter and verifies authentication.
func (c *Client) ready(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("catalog client not authenticated")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

func (c *Client) startOAuthFlow(ctx context.Context) error {
	state := "tunesmith-auth-state"
	authURL := c.auth.AuthURL(state)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if saveErr := c.saveToken(token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.userID = user.ID
	c.logger.Info("OAuth flow completed successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	file, err := os.Open(c.config.TokenPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}

	return tokenData.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.config.TokenPath, data, tokenFilePermission)
}

// bestArtistMatch picks the search result whose name is closest to the
// requested artist. The catalog ranks by popularity, so the first result is
// not always the artist that was asked for.
func bestArtistMatch(n *fuzzy.Normalizer, query string, artists []spotify.FullArtist) int {
	normQuery := n.NormalizeArtist(query)

	best := -1
	bestScore := 0.0
	for i := range artists {
		score := n.CalculateSimilarity(normQuery, n.NormalizeArtist(artists[i].Name))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func convertTrack(t *spotify.FullTrack) core.Track {
	track := core.Track{
		ID:    string(t.ID),
		Title: t.Name,
		Album: t.Album.Name,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	return track
}

func convertSimpleTrack(t *spotify.SimpleTrack) core.Track {
	track := core.Track{
		ID:    string(t.ID),
		Title: t.Name,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	return track
}
