// Package utterance holds the data backbone shared by every stage of the
// synthesis pipeline: named sequences of items, index alignments between
// them, and a graph that answers alignment queries between any two
// sequences.
//
// Nothing in this package is safe for concurrent use. Process one
// utterance per goroutine.
package utterance

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Utterance maps names to sequences and owns the relation graph that links
// them. Every sequence that appears in a registered relation is also
// reachable by name.
type Utterance struct {
	id      uuid.UUID
	byName  map[string]Seq
	members map[SeqID]int // names per sequence instance
	graph   *RelationGraph
}

// New returns an empty utterance. Options configure its relation graph.
func New(opts ...Option) *Utterance {
	return &Utterance{
		id:      uuid.New(),
		byName:  make(map[string]Seq),
		members: make(map[SeqID]int),
		graph:   NewRelationGraph(opts...),
	}
}

// NewWithSequence returns an utterance holding seq under name.
func NewWithSequence(name string, seq Seq, opts ...Option) (*Utterance, error) {
	u := New(opts...)
	if err := u.AddSequence(name, seq); err != nil {
		return nil, err
	}
	return u, nil
}

// ID identifies the utterance in logs.
func (u *Utterance) ID() uuid.UUID { return u.id }

// Graph returns a read-only view of the utterance's relation graph.
// Relations are added through AddRelation and SetRelation, which keep every
// graph node reachable by name.
func (u *Utterance) Graph() GraphView { return GraphView{g: u.graph} }

// GraphView answers queries against a relation graph without exposing its
// mutators.
type GraphView struct {
	g *RelationGraph
}

func (v GraphView) Contains(seq Seq) bool { return v.g.Contains(seq) }

func (v GraphView) Relations() []*Relation { return v.g.Relations() }

func (v GraphView) Sequences() []Seq { return v.g.Sequences() }

func (v GraphView) Path(x, y Seq) ([]Seq, error) { return v.g.Path(x, y) }

func (v GraphView) HasRelation(x, y Seq) bool { return v.g.HasRelation(x, y) }

func (v GraphView) GetRelation(x, y Seq) (*Relation, error) { return v.g.GetRelation(x, y) }

// AddSequence registers seq under name.
func (u *Utterance) AddSequence(name string, seq Seq) error {
	if seq == nil {
		return fmt.Errorf("add sequence %q: nil sequence", name)
	}
	if _, ok := u.byName[name]; ok {
		return fmt.Errorf("add sequence %q: %w", name, ErrDuplicateName)
	}
	u.byName[name] = seq
	u.members[seq.ID()]++
	return nil
}

// Sequence returns the sequence registered under name.
func (u *Utterance) Sequence(name string) (Seq, error) {
	seq, ok := u.byName[name]
	if !ok {
		return nil, fmt.Errorf("sequence %q: %w", name, ErrNotFound)
	}
	return seq, nil
}

// SequenceOf returns the sequence registered under name with its item type.
func SequenceOf[T Item](u *Utterance, name string) (*Sequence[T], error) {
	seq, err := u.Sequence(name)
	if err != nil {
		return nil, err
	}
	typed, ok := seq.(*Sequence[T])
	if !ok {
		var zero T
		return nil, fmt.Errorf("sequence %q is not a sequence of %T: %w", name, zero, ErrKind)
	}
	return typed, nil
}

// HasSequence reports whether name is registered.
func (u *Utterance) HasSequence(name string) bool {
	_, ok := u.byName[name]
	return ok
}

// Names returns the registered sequence names, sorted.
func (u *Utterance) Names() []string {
	names := make([]string, 0, len(u.byName))
	for n := range u.byName {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// NameOf returns a name under which seq is registered. When the sequence
// has several names the lexically smallest is returned.
func (u *Utterance) NameOf(seq Seq) (string, bool) {
	if seq == nil || u.members[seq.ID()] == 0 {
		return "", false
	}
	for _, n := range u.Names() {
		if u.byName[n].ID() == seq.ID() {
			return n, true
		}
	}
	return "", false
}

func (u *Utterance) owns(seq Seq) bool {
	return seq != nil && u.members[seq.ID()] > 0
}

// AddRelation registers rel. Both of its sequences must already be
// registered under some name.
func (u *Utterance) AddRelation(rel *Relation) error {
	if rel == nil {
		return fmt.Errorf("add relation: nil relation")
	}
	if !u.owns(rel.Source()) {
		return fmt.Errorf("relation source %d: %w", rel.Source().ID(), ErrNotFound)
	}
	if !u.owns(rel.Target()) {
		return fmt.Errorf("relation target %d: %w", rel.Target().ID(), ErrNotFound)
	}
	u.graph.AddRelation(rel)
	return nil
}

// SetRelation registers rel as the alignment between the sequences named
// nameA and nameB. The relation must connect exactly those sequences.
func (u *Utterance) SetRelation(nameA, nameB string, rel *Relation) error {
	if rel == nil {
		return fmt.Errorf("set relation %s/%s: nil relation", nameA, nameB)
	}
	a, err := u.Sequence(nameA)
	if err != nil {
		return err
	}
	b, err := u.Sequence(nameB)
	if err != nil {
		return err
	}
	if !rel.Connects(a, b) {
		return fmt.Errorf("set relation %s/%s: %w", nameA, nameB, ErrMismatch)
	}
	u.graph.AddRelation(rel)
	return nil
}

// GetRelation returns the alignment from the sequence named nameA to the
// one named nameB, derived through intermediate sequences when necessary.
func (u *Utterance) GetRelation(nameA, nameB string) (*Relation, error) {
	a, err := u.Sequence(nameA)
	if err != nil {
		return nil, err
	}
	b, err := u.Sequence(nameB)
	if err != nil {
		return nil, err
	}
	rel, err := u.graph.GetRelation(a, b)
	if err != nil {
		return nil, fmt.Errorf("relation %s→%s: %w", nameA, nameB, err)
	}
	return rel, nil
}

// Relations returns the relations registered in the utterance's graph.
func (u *Utterance) Relations() []*Relation { return u.graph.Relations() }

// MergeInto absorbs other into u. Every named sequence and every relation of
// other is copied over and link, which must join one sequence of u to one
// sequence of other, is registered. Nothing is modified when the merge
// fails. other must not be used afterwards.
func (u *Utterance) MergeInto(other *Utterance, link *Relation) error {
	if other == nil || other == u {
		return fmt.Errorf("merge: %w", ErrInvalidLink)
	}
	if link == nil {
		return fmt.Errorf("merge: nil linking relation: %w", ErrInvalidLink)
	}

	for _, name := range other.Names() {
		if _, ok := u.byName[name]; ok {
			return fmt.Errorf("merge sequence %q: %w", name, ErrDuplicateName)
		}
	}
	for id := range other.members {
		if u.members[id] > 0 {
			return fmt.Errorf("merge: sequence %d belongs to both utterances: %w", id, ErrDuplicateName)
		}
	}

	src, dst := link.Source(), link.Target()
	if !(u.owns(src) && other.owns(dst)) && !(u.owns(dst) && other.owns(src)) {
		return fmt.Errorf("merge: link %d→%d does not join the utterances: %w", src.ID(), dst.ID(), ErrInvalidLink)
	}

	for _, name := range other.Names() {
		seq := other.byName[name]
		u.byName[name] = seq
		u.members[seq.ID()]++
	}
	for _, rel := range other.graph.Relations() {
		u.graph.AddRelation(rel)
	}
	u.graph.AddRelation(link)
	return nil
}
