package utterance

import (
	"fmt"
	"sync/atomic"
)

// SeqID identifies a sequence instance. Ids are unique within the process.
type SeqID uint64

var lastSeqID atomic.Uint64

// Seq is the item-kind independent view of a Sequence. Relations and
// relation graphs connect Seq values, so sequences holding different item
// kinds can be aligned with each other.
type Seq interface {
	ID() SeqID
	Size() int
	ItemAt(index int) (Item, error)
	IsRelatedWith(other Seq) bool

	alignments() []*alignment
	attach(a *alignment)
}

// Sequence is an ordered, index-addressed collection of items of one kind.
// It shares its items with any other sequence that holds them; only the
// ordering belongs to the sequence.
//
// A Sequence is not safe for concurrent use.
type Sequence[T Item] struct {
	id    SeqID
	items []T
	links []*alignment
}

// NewSequence returns an empty sequence with a fresh id.
func NewSequence[T Item]() *Sequence[T] {
	return &Sequence[T]{id: SeqID(lastSeqID.Add(1))}
}

// NewSequenceOf returns a sequence holding items in order. Nil items are
// skipped.
func NewSequenceOf[T Item](items ...T) *Sequence[T] {
	s := NewSequence[T]()
	for _, it := range items {
		_ = s.Add(it)
	}
	return s
}

func (s *Sequence[T]) ID() SeqID { return s.id }

func (s *Sequence[T]) Size() int { return len(s.items) }

// Get returns the item at index.
func (s *Sequence[T]) Get(index int) (T, error) {
	if index < 0 || index >= len(s.items) {
		var zero T
		return zero, fmt.Errorf("get %d from sequence %d of size %d: %w", index, s.id, len(s.items), ErrIndex)
	}
	return s.items[index], nil
}

// ItemAt is Get without the static item type.
func (s *Sequence[T]) ItemAt(index int) (Item, error) {
	it, err := s.Get(index)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Items returns a copy of the items in order.
func (s *Sequence[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Add appends item. A nil item is rejected with ErrNilItem.
func (s *Sequence[T]) Add(item T) error {
	if isNil(item) {
		return fmt.Errorf("add to sequence %d: %w", s.id, ErrNilItem)
	}
	s.items = append(s.items, item)
	item.base().join(s.id)
	return nil
}

// Insert places item at index, shifting later items up by one. Index may
// equal Size, which appends. Alignment pairs of attached relations that
// point at or past index are shifted with their items.
func (s *Sequence[T]) Insert(index int, item T) error {
	if index < 0 || index > len(s.items) {
		return fmt.Errorf("insert at %d into sequence %d of size %d: %w", index, s.id, len(s.items), ErrIndex)
	}
	if isNil(item) {
		return fmt.Errorf("insert at %d into sequence %d: %w", index, s.id, ErrNilItem)
	}
	var zero T
	s.items = append(s.items, zero)
	copy(s.items[index+1:], s.items[index:])
	s.items[index] = item
	item.base().join(s.id)

	if index < len(s.items)-1 {
		for _, a := range s.links {
			a.shift(s.id, insertShift(index))
		}
	}
	return nil
}

// Remove deletes and returns the item at index. Later items move down by
// one. Attached relations drop every pair that references index and shift
// the pairs above it, so they stay aligned with the same items.
func (s *Sequence[T]) Remove(index int) (T, error) {
	if index < 0 || index >= len(s.items) {
		var zero T
		return zero, fmt.Errorf("remove %d from sequence %d of size %d: %w", index, s.id, len(s.items), ErrIndex)
	}
	item := s.items[index]
	copy(s.items[index:], s.items[index+1:])
	var zero T
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
	item.base().leave(s.id)

	for _, a := range s.links {
		a.shift(s.id, removeShift(index))
	}
	return item, nil
}

// IndexOf returns the first index holding item, compared by identity, or -1.
func (s *Sequence[T]) IndexOf(item T) int {
	if isNil(item) {
		return -1
	}
	target := item.base()
	for i, it := range s.items {
		if it.base() == target {
			return i
		}
	}
	return -1
}

// Contains reports whether item is in the sequence.
func (s *Sequence[T]) Contains(item T) bool { return s.IndexOf(item) >= 0 }

// IsRelatedWith reports whether some relation, direct or reachable through
// intermediate sequences, connects s and other. Every relation built over
// s counts, registered with an utterance or not; use
// Utterance.GetRelation to ask about registered relations only. A sequence
// is related with itself only through a relation from s to s.
func (s *Sequence[T]) IsRelatedWith(other Seq) bool {
	if other == nil {
		return false
	}
	return connected(s, other)
}

func (s *Sequence[T]) alignments() []*alignment { return s.links }

func (s *Sequence[T]) attach(a *alignment) {
	for _, l := range s.links {
		if l == a {
			return
		}
	}
	s.links = append(s.links, a)
}

// connected walks the relations attached to sequences breadth-first.
func connected(from, to Seq) bool {
	if from.ID() == to.ID() {
		for _, a := range from.alignments() {
			if a.src.ID() == a.dst.ID() {
				return true
			}
		}
		return false
	}
	visited := map[SeqID]bool{from.ID(): true}
	queue := []Seq{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, a := range cur.alignments() {
			next := a.other(cur.ID())
			if next.ID() == to.ID() {
				return true
			}
			if !visited[next.ID()] {
				visited[next.ID()] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
