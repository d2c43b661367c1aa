// Package testutil provides shared fixtures and assertions for tests.
//
// Fixture helpers write into tb.TempDir so every test gets its own files and
// nothing needs cleaning up.
//
// Typical usage:
//
//	func TestPhonemise(t *testing.T) {
//	    path := testutil.WriteLexicon(t, map[string]string{"hello": "h @ - 'l oU"})
//	    lex, err := lexicon.Load(path)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
)

// WriteFile writes content to name inside a fresh temp dir and returns the
// full path.
func WriteFile(tb testing.TB, name, content string) string {
	tb.Helper()

	p := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		tb.Fatalf("write fixture %q: %v", p, err)
	}
	return p
}

// WriteLexicon writes a YAML lexicon holding entries (word → transcription)
// and returns its path. Entries are written in sorted order.
func WriteLexicon(tb testing.TB, entries map[string]string) string {
	tb.Helper()

	words := make([]string, 0, len(entries))
	for w := range entries {
		words = append(words, w)
	}
	slices.Sort(words)

	var b strings.Builder
	b.WriteString("entries:\n")
	for _, w := range words {
		b.WriteString("  " + strconv.Quote(w) + ": " + strconv.Quote(entries[w]) + "\n")
	}
	return WriteFile(tb, "lexicon.yaml", b.String())
}
