package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PrepareText tidies one sentence before it is stored on an utterance:
//  1. Normalize newlines → spaces, collapse repeated spaces.
//  2. Capitalize the first letter.
//  3. Add a trailing period if the last character is alphanumeric.
func PrepareText(input string) string {
	s := strings.Join(strings.Fields(input), " ")

	if s != "" {
		r, size := utf8.DecodeRuneInString(s)
		if r != utf8.RuneError {
			s = string(unicode.ToUpper(r)) + s[size:]
		}
	}

	if s != "" {
		last, _ := utf8.DecodeLastRuneInString(s)
		if unicode.IsLetter(last) || unicode.IsDigit(last) {
			s += "."
		}
	}

	return s
}

// Words splits a sentence into word tokens. Leading and trailing
// punctuation is stripped from each token; apostrophes and hyphens inside a
// word are kept. Tokens made only of punctuation are dropped.
func Words(s string) []string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
