package core

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"tunesmith/pkg/fuzzy"
)

// sequencePoolMultiplier bounds how many candidates are offered to the
// sequencing call relative to the target length.
const sequencePoolMultiplier = 2

// Sequencer orders scored candidates into a final playlist and materializes
// it in the catalog. Sequencing failures degrade to a deterministic
// score-sorted order; materialization failures are recorded on the playlist
// and never abort the pipeline.
type Sequencer struct {
	catalog    CatalogClient
	llm        LLMProvider
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

func NewSequencer(catalog CatalogClient, llm LLMProvider, logger *zap.Logger) *Sequencer {
	return &Sequencer{
		catalog:    catalog,
		llm:        llm,
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}
}

// Create builds the playlist for one request. An empty candidate pool yields
// an empty playlist rather than an error.
func (s *Sequencer) Create(ctx context.Context, scored []ScoredTrack, request string,
	profile map[string]string, targetLength int) *Playlist {
	if targetLength <= 0 {
		targetLength = len(scored)
	}

	if len(scored) == 0 {
		return &Playlist{Name: request, TotalSongs: 0}
	}

	pool := s.candidatePool(scored, targetLength)

	playlist, err := s.llm.SequencePlaylist(ctx, pool, request, profile, targetLength)
	if err != nil {
		s.logger.Warn("Sequencing failed, using score order", zap.Error(err))
		playlist = s.fallbackPlaylist(pool, request, targetLength)
	}

	s.spreadArtists(playlist)

	if len(playlist.Entries) > targetLength {
		playlist.Entries = playlist.Entries[:targetLength]
	}
	renumber(playlist.Entries)
	playlist.TotalSongs = len(playlist.Entries)

	s.materialize(ctx, playlist)

	return playlist
}

// candidatePool sorts by match score, best first, and caps the pool at
// sequencePoolMultiplier x target. The sort is stable so equal scores keep
// their discovery order.
func (s *Sequencer) candidatePool(scored []ScoredTrack, targetLength int) []ScoredTrack {
	pool := make([]ScoredTrack, len(scored))
	copy(pool, scored)

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].MatchScore > pool[j].MatchScore
	})

	maxPool := targetLength * sequencePoolMultiplier
	if len(pool) > maxPool {
		pool = pool[:maxPool]
	}

	return pool
}

// fallbackPlaylist takes the top candidates in score order with no
// per-track reasoning.
func (s *Sequencer) fallbackPlaylist(pool []ScoredTrack, request string, targetLength int) *Playlist {
	count := min(targetLength, len(pool))

	entries := make([]PlaylistEntry, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, PlaylistEntry{
			Position: i + 1,
			TrackID:  pool[i].Track.ID,
			Title:    pool[i].Track.Title,
			Artist:   pool[i].Track.Artist,
		})
	}

	return &Playlist{
		Name:       request,
		TotalSongs: len(entries),
		Entries:    entries,
	}
}

// spreadArtists breaks up adjacent entries by the same artist when the pool
// allows, swapping in the nearest entry with a different artist.
func (s *Sequencer) spreadArtists(playlist *Playlist) {
	entries := playlist.Entries

	for i := 1; i < len(entries); i++ {
		if !s.sameArtist(entries[i-1].Artist, entries[i].Artist) {
			continue
		}
		for j := i + 1; j < len(entries); j++ {
			if s.sameArtist(entries[i-1].Artist, entries[j].Artist) {
				continue
			}
			if i+1 < len(entries) && i+1 != j && s.sameArtist(entries[j].Artist, entries[i+1].Artist) {
				continue
			}
			entries[i], entries[j] = entries[j], entries[i]
			break
		}
	}
}

func (s *Sequencer) sameArtist(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return s.normalizer.NormalizeArtist(a) == s.normalizer.NormalizeArtist(b)
}

func renumber(entries []PlaylistEntry) {
	for i := range entries {
		entries[i].Position = i + 1
	}
}

// materialize creates the playlist in the catalog and appends its tracks.
// Failures leave the in-memory playlist intact with the error noted.
func (s *Sequencer) materialize(ctx context.Context, playlist *Playlist) {
	if len(playlist.Entries) == 0 {
		return
	}

	name := playlist.Name
	if name == "" {
		name = "Tunesmith Mix"
	}

	playlistID, err := s.catalog.CreatePlaylist(ctx, name, playlist.Description)
	if err != nil {
		s.logger.Error("Failed to create catalog playlist", zap.Error(err))
		playlist.MaterializeError = err.Error()
		return
	}

	trackIDs := make([]string, 0, len(playlist.Entries))
	for _, entry := range playlist.Entries {
		trackIDs = append(trackIDs, entry.TrackID)
	}

	if err := s.catalog.AppendTracks(ctx, playlistID, trackIDs); err != nil {
		s.logger.Error("Failed to append tracks to catalog playlist", zap.Error(err))
		playlist.MaterializeError = err.Error()
		return
	}

	playlist.ExternalID = playlistID
	playlist.URL = s.catalog.PlaylistURL(playlistID)
}
