package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// LyricsClient fetches lyrics from a lyrics.ovh-compatible REST endpoint
// (GET {base}/{artist}/{title} -> {"lyrics": "..."}). Missing lyrics are a
// valid empty result, never an error.
type LyricsClient struct {
	baseURL    string
	logger     *zap.Logger
	httpClient *http.Client
}

type lyricsResponse struct {
	Lyrics string `json:"lyrics"`
}

func NewLyricsClient(baseURL string, logger *zap.Logger) *LyricsClient {
	return &LyricsClient{
		baseURL: baseURL,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch returns lyrics text for a song, or "" when the provider has none.
func (l *LyricsClient) Fetch(ctx context.Context, artist, title string) (string, error) {
	if l.baseURL == "" || artist == "" || title == "" {
		return "", nil
	}

	endpoint := fmt.Sprintf("%s/%s/%s",
		l.baseURL, url.PathEscape(artist), url.PathEscape(title))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build lyrics request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lyrics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		l.logger.Debug("No lyrics found",
			zap.String("artist", artist),
			zap.String("title", title))
		return "", nil
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lyrics provider returned status %d", resp.StatusCode)
	}

	var parsed lyricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode lyrics response: %w", err)
	}

	return parsed.Lyrics, nil
}
