package fuzzy

import (
	"testing"
)

func TestNormalizeTitleStripsFeaturing(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		in   string
		want string
	}{
		{"Song Title (feat. Someone)", "song title"},
		{"Song Title ft. Someone", "song title"},
		{"Song Title featuring Someone Else", "song title"},
		{"Plain Title", "plain title"},
	}

	for _, tc := range cases {
		if got := n.NormalizeTitle(tc.in); got != tc.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeTitleStripsVersionSuffixes(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		in   string
		want string
	}{
		{"Classic Song (Remastered)", "classic song"},
		{"Classic Song [Deluxe Edition]", "classic song"},
		{"Classic Song - Radio Edit", "classic song"},
	}

	for _, tc := range cases {
		if got := n.NormalizeTitle(tc.in); got != tc.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeArtistStripsDiacritics(t *testing.T) {
	n := NewNormalizer()

	if got := n.NormalizeArtist("Beyoncé"); got != "beyonce" {
		t.Errorf("NormalizeArtist(Beyoncé) = %q", got)
	}
	if got := n.NormalizeArtist("AC/DC"); got != "ac dc" {
		t.Errorf("NormalizeArtist(AC/DC) = %q", got)
	}
}

func TestTrackKeyIgnoresPackaging(t *testing.T) {
	n := NewNormalizer()

	a := n.TrackKey("My Song (feat. Guest)", "The Band")
	b := n.TrackKey("My Song", "the band")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestCalculateSimilarity(t *testing.T) {
	n := NewNormalizer()

	if got := n.CalculateSimilarity("same", "same"); got != 1.0 {
		t.Errorf("identical strings = %v", got)
	}
	if got := n.CalculateSimilarity("", "something"); got != 0.0 {
		t.Errorf("empty string = %v", got)
	}

	similar := n.CalculateSimilarity("evening rain", "evening rains")
	different := n.CalculateSimilarity("evening rain", "xqzw")
	if similar <= different {
		t.Errorf("similar=%v must beat different=%v", similar, different)
	}
}
