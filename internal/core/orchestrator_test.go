package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubCatalog is a hand-rolled CatalogClient for pipeline tests.
type stubCatalog struct {
	searchResults  map[string][]Track
	searchErr      error
	artistResults  map[string][]Track
	relatedResults map[string][]Track
	likedResults   []Track
	lyrics         map[string]string
	lyricsErr      error

	createErr   error
	appendErr   error
	createdName string
	appended    []string
}

func (s *stubCatalog) Search(_ context.Context, query string, _ int) ([]Track, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResults[query], nil
}

func (s *stubCatalog) ArtistTracks(_ context.Context, artist string, _ int) ([]Track, error) {
	return s.artistResults[artist], nil
}

func (s *stubCatalog) RelatedTracks(_ context.Context, trackID string, _ int) ([]Track, error) {
	return s.relatedResults[trackID], nil
}

func (s *stubCatalog) LikedTracks(_ context.Context, _ int) ([]Track, error) {
	return s.likedResults, nil
}

func (s *stubCatalog) Lyrics(_ context.Context, track Track) (string, error) {
	if s.lyricsErr != nil {
		return "", s.lyricsErr
	}
	return s.lyrics[track.ID], nil
}

func (s *stubCatalog) CreatePlaylist(_ context.Context, title, _ string) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.createdName = title
	return "playlist-1", nil
}

func (s *stubCatalog) AppendTracks(_ context.Context, _ string, trackIDs []string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, trackIDs...)
	return nil
}

func (s *stubCatalog) PlaylistURL(playlistID string) string {
	return "https://example.com/playlist/" + playlistID
}

// stubLLM is a hand-rolled LLMProvider. Nil function fields fail, driving
// call sites into their fallbacks.
type stubLLM struct {
	classifyFn func(request string) (*IntentResult, error)
	planFn     func(request string) (*Plan, error)
	actionsFn  func(round int) ([]SearchAction, error)
	analyzeFn  func(track Track) (*TrackAnalysis, error)
	scoreFn    func(song CachedSong) (*MatchScore, error)
	sequenceFn func(candidates []ScoredTrack, target int) (*Playlist, error)

	analyzeCalls    int
	scoreCalls      int
	planRecentCount int
}

var errStubDown = errors.New("reasoning service unavailable")

func (s *stubLLM) ClassifyIntent(_ context.Context, request string) (*IntentResult, error) {
	if s.classifyFn == nil {
		return nil, errStubDown
	}
	return s.classifyFn(request)
}

func (s *stubLLM) GeneratePlan(_ context.Context, request string, _ map[string]string, recentCount int, _ time.Time) (*Plan, error) {
	s.planRecentCount = recentCount
	if s.planFn == nil {
		return nil, errStubDown
	}
	return s.planFn(request)
}

func (s *stubLLM) PlanSearchActions(_ context.Context, _ string, _ map[string]string, _, round int) ([]SearchAction, error) {
	if s.actionsFn == nil {
		return nil, errStubDown
	}
	return s.actionsFn(round)
}

func (s *stubLLM) AnalyzeTrack(_ context.Context, track Track, _ string, _ map[string]string) (*TrackAnalysis, error) {
	s.analyzeCalls++
	if s.analyzeFn == nil {
		return nil, errStubDown
	}
	return s.analyzeFn(track)
}

func (s *stubLLM) ScoreCachedTrack(_ context.Context, song CachedSong, _ string, _ map[string]string) (*MatchScore, error) {
	s.scoreCalls++
	if s.scoreFn == nil {
		return nil, errStubDown
	}
	return s.scoreFn(song)
}

func (s *stubLLM) SequencePlaylist(_ context.Context, candidates []ScoredTrack, _ string, _ map[string]string, target int) (*Playlist, error) {
	if s.sequenceFn == nil {
		return nil, errStubDown
	}
	return s.sequenceFn(candidates, target)
}

type stubCache struct {
	songs  map[string]*CachedSong
	getErr error
	puts   []*CachedSong
}

func (s *stubCache) Get(_ context.Context, trackID string) (*CachedSong, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.songs[trackID], nil
}

func (s *stubCache) Put(_ context.Context, song *CachedSong) error {
	if s.songs == nil {
		s.songs = make(map[string]*CachedSong)
	}
	s.songs[song.ID] = song
	s.puts = append(s.puts, song)
	return nil
}

type stubProfile struct {
	values map[string]string
	getErr error
}

func (s *stubProfile) Get(_ context.Context) (map[string]string, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.values, nil
}

func (s *stubProfile) Set(_ context.Context, key, value string) error {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}

type stubLedger struct {
	recent     map[string]struct{}
	entryCount int
	appended   []string
}

func (s *stubLedger) Append(_ context.Context, trackID, _ string) error {
	s.appended = append(s.appended, trackID)
	return nil
}

func (s *stubLedger) RecentIDs(_ context.Context, _ int) (map[string]struct{}, error) {
	if s.recent == nil {
		return map[string]struct{}{}, nil
	}
	return s.recent, nil
}

func (s *stubLedger) RecentCount(_ context.Context, _ int) (int, error) {
	return s.entryCount, nil
}

// memExclusion is a plain map-backed ExclusionSet for tests.
type memExclusion struct {
	ids map[string]struct{}
}

func newMemExclusion() *memExclusion {
	return &memExclusion{ids: make(map[string]struct{})}
}

func (m *memExclusion) Has(trackID string) bool {
	_, ok := m.ids[trackID]
	return ok
}

func (m *memExclusion) Add(trackID string) {
	m.ids[trackID] = struct{}{}
}

func (m *memExclusion) Load(trackIDs []string) {
	for _, id := range trackIDs {
		m.ids[id] = struct{}{}
	}
}

func (m *memExclusion) Size() int { return len(m.ids) }

func (m *memExclusion) Clear() { m.ids = make(map[string]struct{}) }

func makeTracks(n int, prefix string) []Track {
	tracks := make([]Track, 0, n)
	for i := 0; i < n; i++ {
		tracks = append(tracks, Track{
			ID:     fmt.Sprintf("%s-%d", prefix, i),
			Title:  fmt.Sprintf("Song %d", i),
			Artist: fmt.Sprintf("Artist %d", i),
		})
	}
	return tracks
}

type testDeps struct {
	catalog *stubCatalog
	llm     *stubLLM
	cache   *stubCache
	profile *stubProfile
	ledger  *stubLedger
}

func newTestOrchestrator(deps *testDeps, target int) *Orchestrator {
	cfg := DefaultConfig()
	cfg.App.DefaultTargetSongs = target

	return NewOrchestrator(
		cfg,
		deps.catalog,
		deps.llm,
		deps.cache,
		deps.profile,
		deps.ledger,
		func() ExclusionSet { return newMemExclusion() },
		nil,
		zap.NewNop(),
	)
}

func TestRunChatIntent(t *testing.T) {
	deps := &testDeps{
		catalog: &stubCatalog{},
		llm: &stubLLM{
			classifyFn: func(string) (*IntentResult, error) {
				return &IntentResult{Intent: IntentChat, Response: "Hello there!"}, nil
			},
		},
		cache:   &stubCache{},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	o := newTestOrchestrator(deps, 5)

	result, err := o.Run(context.Background(), "hey!", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Type != ResultChat {
		t.Errorf("expected chat result, got %s", result.Type)
	}
	if result.Message != "Hello there!" {
		t.Errorf("unexpected chat message: %q", result.Message)
	}
	if len(deps.ledger.appended) != 0 {
		t.Errorf("chat must not touch the recommendation ledger")
	}
}

func TestRunSettingsIntent(t *testing.T) {
	deps := &testDeps{
		catalog: &stubCatalog{},
		llm: &stubLLM{
			classifyFn: func(string) (*IntentResult, error) {
				return &IntentResult{Intent: IntentSettings}, nil
			},
		},
		cache:   &stubCache{},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	result, err := newTestOrchestrator(deps, 5).Run(context.Background(), "how do I set preferences", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Type != ResultSettings {
		t.Errorf("expected settings result, got %s", result.Type)
	}
	if result.Message == "" {
		t.Error("settings result must carry guidance text")
	}
}

// With the reasoning service completely down the pipeline must still deliver
// a playlist: default plan, placeholder analyses, score-ordered sequence.
func TestRunFullFallbackPath(t *testing.T) {
	request := "something calm for the evening"

	deps := &testDeps{
		catalog: &stubCatalog{
			searchResults: map[string][]Track{
				request: makeTracks(4, "t"),
			},
		},
		llm:     &stubLLM{},
		cache:   &stubCache{},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	o := newTestOrchestrator(deps, 3)

	result, err := o.Run(context.Background(), request, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Type != ResultPlaylist {
		t.Fatalf("expected playlist result, got %s", result.Type)
	}

	playlist := result.Playlist
	if len(playlist.Entries) != 3 {
		t.Fatalf("expected 3 entries (target), got %d", len(playlist.Entries))
	}
	for i, entry := range playlist.Entries {
		if entry.Position != i+1 {
			t.Errorf("entry %d has position %d", i, entry.Position)
		}
		if entry.Reason != "" {
			t.Errorf("fallback entries must have no reasoning, got %q", entry.Reason)
		}
	}

	if playlist.URL == "" {
		t.Error("materialized playlist must carry a URL")
	}
	if len(deps.ledger.appended) != 3 {
		t.Errorf("expected 3 ledger entries, got %d", len(deps.ledger.appended))
	}
	if result.Plan.TargetSongs != 3 {
		t.Errorf("default plan target = %d, want 3", result.Plan.TargetSongs)
	}
}

func TestRunExcludesRecentRecommendations(t *testing.T) {
	request := "upbeat morning songs"
	tracks := makeTracks(4, "t")

	deps := &testDeps{
		catalog: &stubCatalog{
			searchResults: map[string][]Track{request: tracks},
		},
		llm:     &stubLLM{},
		cache:   &stubCache{},
		profile: &stubProfile{},
		ledger: &stubLedger{
			recent: map[string]struct{}{"t-0": {}, "t-2": {}},
		},
	}

	result, err := newTestOrchestrator(deps, 10).Run(context.Background(), request, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, entry := range result.Playlist.Entries {
		if entry.TrackID == "t-0" || entry.TrackID == "t-2" {
			t.Errorf("recently recommended track %s must be excluded", entry.TrackID)
		}
	}
	if len(result.Playlist.Entries) != 2 {
		t.Errorf("expected 2 entries after exclusion, got %d", len(result.Playlist.Entries))
	}
}

// The plan prompt reports how many recommendations were made in the recent
// window; that is the raw entry count, not the distinct-track set used for
// exclusion.
func TestRunPlanReceivesLedgerEntryCount(t *testing.T) {
	deps := &testDeps{
		catalog: &stubCatalog{},
		llm: &stubLLM{
			classifyFn: func(string) (*IntentResult, error) {
				return &IntentResult{Intent: IntentPlaylist}, nil
			},
			planFn: func(request string) (*Plan, error) {
				return &Plan{TargetSongs: 3, SearchQueries: []string{request}}, nil
			},
		},
		cache:   &stubCache{},
		profile: &stubProfile{},
		ledger: &stubLedger{
			recent:     map[string]struct{}{"t-0": {}, "t-1": {}},
			entryCount: 7,
		},
	}

	_, err := newTestOrchestrator(deps, 5).Run(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if deps.llm.planRecentCount != 7 {
		t.Errorf("plan saw recent count %d, want ledger entry count 7", deps.llm.planRecentCount)
	}
}

// Different sources can return the same recording under different catalog
// identifiers; the candidate pool keeps only the first-seen entry.
func TestAggregateCollapsesAlternateCatalogEntries(t *testing.T) {
	deps := &testDeps{
		catalog: &stubCatalog{
			searchResults: map[string][]Track{
				"q1": {{ID: "a1", Title: "My Song", Artist: "The Band"}},
				"q2": {{ID: "a2", Title: "My Song (feat. Guest)", Artist: "the band"}},
			},
		},
		llm:     &stubLLM{},
		cache:   &stubCache{},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	o := newTestOrchestrator(deps, 5)
	plan := &Plan{SearchQueries: []string{"q1", "q2"}, TargetSongs: 5}

	got := o.aggregate(context.Background(), "anything", nil, plan, map[string]struct{}{})
	if len(got) != 1 {
		t.Fatalf("expected alternate releases to collapse to one candidate, got %d", len(got))
	}
	if got[0].ID != "a1" {
		t.Errorf("first-seen entry must win, got %s", got[0].ID)
	}
}

func TestRunCachedTracksSkipFullAnalysis(t *testing.T) {
	request := "nostalgic road trip"
	tracks := makeTracks(2, "t")

	deps := &testDeps{
		catalog: &stubCatalog{
			searchResults: map[string][]Track{request: tracks},
		},
		llm: &stubLLM{
			scoreFn: func(CachedSong) (*MatchScore, error) {
				return &MatchScore{Score: 8, Reason: "fits"}, nil
			},
		},
		cache: &stubCache{
			songs: map[string]*CachedSong{
				"t-0": {
					Track:      tracks[0],
					Mood:       "nostalgic",
					Energy:     6,
					AnalyzedAt: time.Now(),
				},
			},
		},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	_, err := newTestOrchestrator(deps, 5).Run(context.Background(), request, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if deps.llm.scoreCalls != 1 {
		t.Errorf("expected 1 cheap re-score call, got %d", deps.llm.scoreCalls)
	}
	if deps.llm.analyzeCalls != 1 {
		t.Errorf("expected 1 full analysis call (uncached track only), got %d", deps.llm.analyzeCalls)
	}
}

func TestRunCapsCandidatePool(t *testing.T) {
	request := "gym session"

	deps := &testDeps{
		catalog: &stubCatalog{
			searchResults: map[string][]Track{request: makeTracks(20, "t")},
		},
		llm:     &stubLLM{},
		cache:   &stubCache{},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	_, err := newTestOrchestrator(deps, 2).Run(context.Background(), request, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if deps.llm.analyzeCalls > 2*analyzeMultiplier {
		t.Errorf("analysis calls = %d, want at most %d", deps.llm.analyzeCalls, 2*analyzeMultiplier)
	}
}

func TestRunProfileErrorIsFatal(t *testing.T) {
	deps := &testDeps{
		catalog: &stubCatalog{},
		llm: &stubLLM{
			classifyFn: func(string) (*IntentResult, error) {
				return &IntentResult{Intent: IntentPlaylist}, nil
			},
		},
		cache:   &stubCache{},
		profile: &stubProfile{getErr: errors.New("disk gone")},
		ledger:  &stubLedger{},
	}

	_, err := newTestOrchestrator(deps, 5).Run(context.Background(), "anything", nil)
	if err == nil {
		t.Fatal("expected error when profile store is unreachable")
	}
}

func TestRunReportsProgress(t *testing.T) {
	request := "focus music"

	deps := &testDeps{
		catalog: &stubCatalog{
			searchResults: map[string][]Track{request: makeTracks(2, "t")},
		},
		llm:     &stubLLM{},
		cache:   &stubCache{},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	var updates []string
	_, err := newTestOrchestrator(deps, 5).Run(context.Background(), request, func(msg string) {
		updates = append(updates, msg)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(updates) == 0 {
		t.Fatal("expected progress updates during a playlist build")
	}
}

func TestSplitByCacheTreatsErrorsAsMiss(t *testing.T) {
	deps := &testDeps{
		catalog: &stubCatalog{},
		llm:     &stubLLM{},
		cache:   &stubCache{getErr: errors.New("corrupt row")},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	o := newTestOrchestrator(deps, 5)

	cached, uncached := o.splitByCache(context.Background(), makeTracks(3, "t"))
	if len(cached) != 0 {
		t.Errorf("cache errors must not produce hits, got %d", len(cached))
	}
	if len(uncached) != 3 {
		t.Errorf("expected all 3 tracks uncached, got %d", len(uncached))
	}
}

// A cache row without a mood means the song was stored but never analyzed;
// it must not count as a hit.
func TestSplitByCacheIgnoresUnanalyzedRows(t *testing.T) {
	tracks := makeTracks(1, "t")

	deps := &testDeps{
		catalog: &stubCatalog{},
		llm:     &stubLLM{},
		cache: &stubCache{
			songs: map[string]*CachedSong{
				"t-0": {Track: tracks[0]},
			},
		},
		profile: &stubProfile{},
		ledger:  &stubLedger{},
	}

	o := newTestOrchestrator(deps, 5)

	cached, uncached := o.splitByCache(context.Background(), tracks)
	if len(cached) != 0 || len(uncached) != 1 {
		t.Errorf("unanalyzed row counted as hit: cached=%d uncached=%d", len(cached), len(uncached))
	}
}
