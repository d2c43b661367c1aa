package utterance

import (
	"cmp"
	"fmt"
	"slices"
)

// Pair is one alignment pair: index A in the source sequence corresponds to
// index B in the target sequence.
type Pair struct {
	A, B int
}

type indexSet map[int]struct{}

// alignment is the pair storage shared by a relation and its reversed view.
// Pairs are indexed from both sides.
type alignment struct {
	src, dst Seq
	fwd      map[int]indexSet
	bwd      map[int]indexSet
	n        int
	version  uint64
}

func newAlignment(src, dst Seq) *alignment {
	return &alignment{
		src: src,
		dst: dst,
		fwd: make(map[int]indexSet),
		bwd: make(map[int]indexSet),
	}
}

func (a *alignment) put(ia, ib int) {
	if _, ok := a.fwd[ia][ib]; ok {
		return
	}
	if a.fwd[ia] == nil {
		a.fwd[ia] = make(indexSet)
	}
	if a.bwd[ib] == nil {
		a.bwd[ib] = make(indexSet)
	}
	a.fwd[ia][ib] = struct{}{}
	a.bwd[ib][ia] = struct{}{}
	a.n++
	a.version++
}

func (a *alignment) pairs() []Pair {
	out := make([]Pair, 0, a.n)
	for ia, set := range a.fwd {
		for ib := range set {
			out = append(out, Pair{A: ia, B: ib})
		}
	}
	slices.SortFunc(out, func(x, y Pair) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return out
}

// other returns the endpoint opposite to id.
func (a *alignment) other(id SeqID) Seq {
	if a.src.ID() == id {
		return a.dst
	}
	return a.src
}

func (a *alignment) attach() {
	a.src.attach(a)
	a.dst.attach(a)
}

// indexMap maps an old index to a new one; false drops the pair.
type indexMap func(int) (int, bool)

func insertShift(at int) indexMap {
	return func(i int) (int, bool) {
		if i >= at {
			return i + 1, true
		}
		return i, true
	}
}

func removeShift(at int) indexMap {
	return func(i int) (int, bool) {
		switch {
		case i == at:
			return 0, false
		case i > at:
			return i - 1, true
		default:
			return i, true
		}
	}
}

// shift rewrites the side(s) of the alignment that belong to sequence id.
func (a *alignment) shift(id SeqID, m indexMap) {
	var keep indexMap = func(i int) (int, bool) { return i, true }
	ma, mb := keep, keep
	if a.src.ID() == id {
		ma = m
	}
	if a.dst.ID() == id {
		mb = m
	}

	old := a.pairs()
	a.fwd = make(map[int]indexSet, len(a.fwd))
	a.bwd = make(map[int]indexSet, len(a.bwd))
	a.n = 0
	for _, p := range old {
		ia, ok := ma(p.A)
		if !ok {
			continue
		}
		ib, ok := mb(p.B)
		if !ok {
			continue
		}
		a.put(ia, ib)
	}
	a.version++
}

func sortedKeys(set indexSet) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Relation is a many-to-many index alignment between a source and a target
// sequence. Reverse returns a view with the two sides exchanged that shares
// the same pairs.
type Relation struct {
	a        *alignment
	reversed bool
}

// NewRelation returns an empty relation from src to dst. The relation is
// attached to both sequences, which then report IsRelatedWith each other and
// keep its pairs in step with their own inserts and removals.
func NewRelation(src, dst Seq) *Relation {
	a := newAlignment(src, dst)
	a.attach()
	return &Relation{a: a}
}

// NewRelationWithPairs returns a relation pre-populated with pairs. It fails
// with ErrRange, and attaches nothing, if any pair is out of bounds.
func NewRelationWithPairs(src, dst Seq, pairs []Pair) (*Relation, error) {
	a := newAlignment(src, dst)
	r := &Relation{a: a}
	for _, p := range pairs {
		if err := r.AddRelation(p.A, p.B); err != nil {
			return nil, err
		}
	}
	a.attach()
	return r, nil
}

// Source returns the sequence whose indexes are the A side of each pair.
func (r *Relation) Source() Seq {
	if r.reversed {
		return r.a.dst
	}
	return r.a.src
}

// Target returns the sequence whose indexes are the B side of each pair.
func (r *Relation) Target() Seq {
	if r.reversed {
		return r.a.src
	}
	return r.a.dst
}

// Reverse returns the view of r from target to source.
func (r *Relation) Reverse() *Relation {
	return &Relation{a: r.a, reversed: !r.reversed}
}

// Connects reports whether r aligns x and y, in either direction.
func (r *Relation) Connects(x, y Seq) bool {
	if x == nil || y == nil {
		return false
	}
	s, t := r.a.src.ID(), r.a.dst.ID()
	return (s == x.ID() && t == y.ID()) || (s == y.ID() && t == x.ID())
}

// AddRelation records that indexA in the source aligns with indexB in the
// target. Both indexes must be valid for the sequences' current sizes.
// Adding an existing pair is a no-op.
func (r *Relation) AddRelation(indexA, indexB int) error {
	if n := r.Source().Size(); indexA < 0 || indexA >= n {
		return fmt.Errorf("source index %d not in [0,%d): %w", indexA, n, ErrRange)
	}
	if n := r.Target().Size(); indexB < 0 || indexB >= n {
		return fmt.Errorf("target index %d not in [0,%d): %w", indexB, n, ErrRange)
	}
	if r.reversed {
		r.a.put(indexB, indexA)
	} else {
		r.a.put(indexA, indexB)
	}
	return nil
}

// RelatedIndexes returns the target indexes aligned with indexA, ascending.
// The result is empty when indexA has no pairs.
func (r *Relation) RelatedIndexes(indexA int) []int {
	if r.reversed {
		return sortedKeys(r.a.bwd[indexA])
	}
	return sortedKeys(r.a.fwd[indexA])
}

// SourceRelatedIndexes returns the source indexes aligned with indexB,
// ascending.
func (r *Relation) SourceRelatedIndexes(indexB int) []int {
	if r.reversed {
		return sortedKeys(r.a.fwd[indexB])
	}
	return sortedKeys(r.a.bwd[indexB])
}

// RelatedItems returns the target items aligned with position indexA of the
// source.
func (r *Relation) RelatedItems(indexA int) ([]Item, error) {
	if n := r.Source().Size(); indexA < 0 || indexA >= n {
		return nil, fmt.Errorf("source index %d not in [0,%d): %w", indexA, n, ErrIndex)
	}
	idx := r.RelatedIndexes(indexA)
	items := make([]Item, 0, len(idx))
	for _, i := range idx {
		it, err := r.Target().ItemAt(i)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// Pairs returns every pair in this view's orientation, sorted by A then B.
func (r *Relation) Pairs() []Pair {
	pairs := r.a.pairs()
	if !r.reversed {
		return pairs
	}
	for i, p := range pairs {
		pairs[i] = Pair{A: p.B, B: p.A}
	}
	slices.SortFunc(pairs, func(x, y Pair) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return pairs
}

// Len returns the number of pairs.
func (r *Relation) Len() int { return r.a.n }

// Compose joins r1 (S0→S1) with r2 (S1→S2) on their shared sequence: the
// result from S0 to S2 holds (a,c) iff some b has (a,b) in r1 and (b,c) in
// r2. The result is a snapshot; it is not attached to S0 or S2.
func Compose(r1, r2 *Relation) (*Relation, error) {
	if r1.Target().ID() != r2.Source().ID() {
		return nil, fmt.Errorf("compose %d→%d with %d→%d: %w",
			r1.Source().ID(), r1.Target().ID(), r2.Source().ID(), r2.Target().ID(), ErrMismatch)
	}
	out := &Relation{a: newAlignment(r1.Source(), r2.Target())}
	for _, p := range r1.Pairs() {
		for _, c := range r2.RelatedIndexes(p.B) {
			out.a.put(p.A, c)
		}
	}
	return out, nil
}

// identity relates every index of seq to itself.
func identity(seq Seq) *Relation {
	r := &Relation{a: newAlignment(seq, seq)}
	for i := 0; i < seq.Size(); i++ {
		r.a.put(i, i)
	}
	return r
}
