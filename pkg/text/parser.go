// Package text provides normalization and command parsing for incoming chat
// messages.
package text

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// ErrNoValue is returned when a taste command has a key but no value.
var ErrNoValue = errors.New("taste command requires a key and a value")

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// NormalizeRequest collapses an incoming free-text request into a single
// trimmed line. Telegram clients send multi-line and unicode-variant text;
// the pipeline wants one canonical string.
func (p *Parser) NormalizeRequest(text string) string {
	text = strings.TrimSpace(text)
	text = norm.NFKC.String(text)

	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	text = strings.Join(kept, " ")

	return whitespaceRegex.ReplaceAllString(text, " ")
}

// ParseTasteArgs splits "/taste key value..." arguments into a preference key
// and its free-text value. The first token is the key, the rest is the value.
func (p *Parser) ParseTasteArgs(args string) (key, value string, err error) {
	args = p.NormalizeRequest(args)

	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", ErrNoValue
	}

	key = strings.ToLower(fields[0])
	value = strings.Join(fields[1:], " ")
	return key, value, nil
}

// IsCommand reports whether a message is a bot command rather than a request.
func (p *Parser) IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}
