package i18n

import (
	"strings"
	"testing"
)

func TestLocalizerTranslatesKnownKey(t *testing.T) {
	l := NewLocalizer("en")

	if got := l.T("error.generic"); got != "Something went wrong. Please try again." {
		t.Errorf("T(error.generic) = %q", got)
	}
}

func TestLocalizerFormatsArguments(t *testing.T) {
	l := NewLocalizer("en")

	got := l.T("profile.saved", "favorite_artists", "Some Band")
	if !strings.Contains(got, "favorite_artists") || !strings.Contains(got, "Some Band") {
		t.Errorf("T(profile.saved) = %q", got)
	}
}

func TestLocalizerFallsBackToKey(t *testing.T) {
	l := NewLocalizer("en")

	if got := l.T("no.such.key"); got != "no.such.key" {
		t.Errorf("unknown key = %q", got)
	}
}

func TestLocalizerUnknownLanguageUsesEnglish(t *testing.T) {
	l := NewLocalizer("xx")

	if got := l.T("error.generic"); got != "Something went wrong. Please try again." {
		t.Errorf("unknown language must fall back to English, got %q", got)
	}
}
