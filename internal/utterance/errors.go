package utterance

import "errors"

var (
	// ErrIndex is returned when a sequence index is outside its valid range.
	ErrIndex = errors.New("index out of range")
	// ErrRange is returned when an alignment pair references an index
	// outside the current bounds of its sequence.
	ErrRange = errors.New("alignment index out of range")
	// ErrNilItem is returned when a nil item is added to a sequence.
	ErrNilItem = errors.New("nil item")
	// ErrNotFound is returned for an unregistered sequence name.
	ErrNotFound = errors.New("sequence not found")
	// ErrDuplicateName is returned when a sequence name is already in use.
	ErrDuplicateName = errors.New("duplicate sequence name")
	// ErrNoRelation signals that no relation connects two sequences.
	// Callers probing for an optional alignment should treat it as "absent".
	ErrNoRelation = errors.New("no relation available")
	// ErrKind is returned when a named sequence holds a different item type
	// than the one requested.
	ErrKind = errors.New("sequence item kind mismatch")
	// ErrMismatch is returned when a relation does not connect the
	// sequences it is registered for.
	ErrMismatch = errors.New("relation endpoints mismatch")
	// ErrInvalidLink is returned by MergeInto when the linking relation does
	// not connect the two utterances.
	ErrInvalidLink = errors.New("invalid linking relation")
)
