package testutil

import (
	"slices"
	"testing"

	"github.com/example/go-utterance/internal/utterance"
)

// AssertRelated checks that rel aligns source index from with exactly the
// target indexes in want.
func AssertRelated(tb testing.TB, rel *utterance.Relation, from int, want []int) {
	tb.Helper()

	if rel == nil {
		tb.Fatalf("relation is nil")
	}
	got := rel.RelatedIndexes(from)
	if !slices.Equal(got, want) {
		tb.Errorf("RelatedIndexes(%d) = %v, want %v", from, got, want)
	}
}

// AssertInBounds checks that every pair of rel is a valid index pair for
// the current sizes of its sequences.
func AssertInBounds(tb testing.TB, rel *utterance.Relation) {
	tb.Helper()

	ns, nt := rel.Source().Size(), rel.Target().Size()
	for _, p := range rel.Pairs() {
		if p.A < 0 || p.A >= ns || p.B < 0 || p.B >= nt {
			tb.Errorf("pair %v out of bounds for sizes %d/%d", p, ns, nt)
		}
	}
}
