package catalog

import (
	"testing"

	"github.com/zmb3/spotify/v2"

	"tunesmith/pkg/fuzzy"
)

func artistResults(names ...string) []spotify.FullArtist {
	out := make([]spotify.FullArtist, 0, len(names))
	for _, name := range names {
		out = append(out, spotify.FullArtist{
			SimpleArtist: spotify.SimpleArtist{Name: name},
		})
	}
	return out
}

func TestBestArtistMatchPrefersClosestName(t *testing.T) {
	n := fuzzy.NewNormalizer()

	// A more popular act with a similar name ranks first in the search
	// response; the exact name must still win.
	results := artistResults("Phoenix Down", "Phoenix", "Fever Phoenix")

	if got := bestArtistMatch(n, "Phoenix", results); got != 1 {
		t.Errorf("bestArtistMatch = %d, want 1", got)
	}
}

func TestBestArtistMatchIgnoresDiacritics(t *testing.T) {
	n := fuzzy.NewNormalizer()

	results := artistResults("Some Other Band", "Beyoncé")

	if got := bestArtistMatch(n, "beyonce", results); got != 1 {
		t.Errorf("bestArtistMatch = %d, want 1", got)
	}
}

func TestBestArtistMatchRejectsUnrelatedResults(t *testing.T) {
	n := fuzzy.NewNormalizer()

	results := artistResults("xqzw")

	if got := bestArtistMatch(n, "Evening Rain Orchestra", results); got >= 0 {
		t.Errorf("bestArtistMatch = %d, want no match", got)
	}
}
