package text

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// stray matches control characters other than newline and tab, and the
// byte order mark.
func stray(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	return r == '\uFEFF' || unicode.Is(unicode.Cc, r)
}

// Normalize turns raw input into the text an utterance is built from.
// Line endings become \n, stray control characters are dropped, the text is
// composed to NFC so visually identical words compare equal, and the
// result is trimmed. Blank input yields ErrEmptyText.
func Normalize(s string) (string, error) {
	s = lineEndings.Replace(s)

	t := transform.Chain(runes.Remove(runes.Predicate(stray)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return "", fmt.Errorf("normalize text: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyText
	}
	return out, nil
}
