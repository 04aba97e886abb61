// Package fuzzy provides text normalization and similarity scoring for
// track titles and artist names.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(remaster|remastered|deluxe|extended|radio edit|clean|explicit).*[\)\]]?\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeArtist canonicalizes an artist name for comparison. Two adjacent
// playlist positions share an artist when their normalized forms are equal.
func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.ReplaceAll(artist, " feat ", " feat. ")
	artist = strings.ReplaceAll(artist, " ft ", " ft. ")

	return artist
}

// NormalizeTitle strips featuring credits and release-variant suffixes so
// that search queries and identity keys ignore packaging differences.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = n.basicNormalize(title)

	title = featRegex.ReplaceAllString(title, "")
	title = versionRegex.ReplaceAllString(title, "")

	return strings.TrimSpace(title)
}

// TrackKey builds a stable identity string from title and artist, used when
// two catalog entries carry different identifiers for the same recording.
func (n *Normalizer) TrackKey(title, artist string) string {
	return n.NormalizeTitle(title) + "|" + n.NormalizeArtist(artist)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	return strings.TrimSpace(text)
}

// CalculateSimilarity returns a [0,1] similarity between two normalized
// strings based on their longest common subsequence.
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	return float64(n.longestCommonSubsequence(s1, s2)) / float64(max(len(s1), len(s2)))
}

func (n *Normalizer) longestCommonSubsequence(s1, s2 string) int {
	m, ln := len(s1), len(s2)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, ln+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= ln; j++ {
			if s1[i-1] == s2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][ln]
}
