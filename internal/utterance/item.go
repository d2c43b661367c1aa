package utterance

import (
	"reflect"
	"slices"
	"strings"
	"time"
)

// Item is one addressable unit of linguistic or acoustic content.
//
// Concrete kinds embed ItemBase by value and are used through pointers, so
// two items are the same item exactly when they are the same instance.
// Packages outside this one can define new kinds the same way.
type Item interface {
	Label() string
	base() *ItemBase
}

// ItemBase records which sequences currently contain an item. It stores
// sequence ids rather than sequence pointers and is maintained by Sequence
// only.
type ItemBase struct {
	seqs map[SeqID]int // occurrences per sequence
}

func (b *ItemBase) base() *ItemBase { return b }

// isNil reports whether it is nil or a typed nil pointer.
func isNil(it Item) bool {
	if it == nil {
		return true
	}
	v := reflect.ValueOf(it)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// IsInSequence reports whether seq currently contains the item.
func (b *ItemBase) IsInSequence(seq Seq) bool {
	if seq == nil {
		return false
	}
	return b.seqs[seq.ID()] > 0
}

// Sequences returns the ids of every sequence containing the item, ascending.
func (b *ItemBase) Sequences() []SeqID {
	ids := make([]SeqID, 0, len(b.seqs))
	for id := range b.seqs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (b *ItemBase) join(id SeqID) {
	if b.seqs == nil {
		b.seqs = make(map[SeqID]int)
	}
	b.seqs[id]++
}

func (b *ItemBase) leave(id SeqID) {
	if b.seqs[id] <= 1 {
		delete(b.seqs, id)
		return
	}
	b.seqs[id]--
}

// Paragraph is a block of text separated from its neighbours by blank lines.
type Paragraph struct {
	ItemBase
	Text string
}

func NewParagraph(text string) *Paragraph { return &Paragraph{Text: text} }

func (p *Paragraph) Label() string { return p.Text }

// Sentence is one sentence of a paragraph.
type Sentence struct {
	ItemBase
	Text string
}

func NewSentence(text string) *Sentence { return &Sentence{Text: text} }

func (s *Sentence) Label() string { return s.Text }

// Phrase is a prosodic phrase. Boundary names the break that closes it
// (for example "L-L%").
type Phrase struct {
	ItemBase
	Boundary string
}

func NewPhrase(boundary string) *Phrase { return &Phrase{Boundary: boundary} }

func (p *Phrase) Label() string { return p.Boundary }

// Word is an orthographic token.
type Word struct {
	ItemBase
	Text string
	POS  string
}

func NewWord(text string) *Word { return &Word{Text: text} }

func (w *Word) Label() string { return w.Text }

// Syllable groups the phonemes around one vowel nucleus. Stress is 0 for
// unstressed, 1 for primary and 2 for secondary stress.
type Syllable struct {
	ItemBase
	Text   string
	Stress int
	Accent string
}

func NewSyllable(text string, stress int) *Syllable {
	return &Syllable{Text: text, Stress: stress}
}

func (s *Syllable) Label() string { return s.Text }

// Phoneme is one phone symbol.
type Phoneme struct {
	ItemBase
	Symbol string
}

func NewPhoneme(symbol string) *Phoneme { return &Phoneme{Symbol: symbol} }

func (p *Phoneme) Label() string { return p.Symbol }

// Segment is a stretch of the acoustic signal.
type Segment struct {
	ItemBase
	Phone    string
	Start    time.Duration
	Duration time.Duration
}

func NewSegment(phone string, start, dur time.Duration) *Segment {
	return &Segment{Phone: phone, Start: start, Duration: dur}
}

func (s *Segment) Label() string { return s.Phone }

// End returns Start+Duration.
func (s *Segment) End() time.Duration { return s.Start + s.Duration }

// FeatureVector holds named feature values for one target unit.
type FeatureVector struct {
	ItemBase
	names  []string
	values map[string]string
}

func NewFeatureVector() *FeatureVector {
	return &FeatureVector{values: make(map[string]string)}
}

// Set assigns a feature value. Names keep their first insertion order.
func (f *FeatureVector) Set(name, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

// Get returns the value of a feature and whether it is set.
func (f *FeatureVector) Get(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Names returns the feature names in insertion order.
func (f *FeatureVector) Names() []string { return slices.Clone(f.names) }

// Label renders the vector as name=value pairs.
func (f *FeatureVector) Label() string {
	parts := make([]string, 0, len(f.names))
	for _, n := range f.names {
		parts = append(parts, n+"="+f.values[n])
	}
	return strings.Join(parts, " ")
}
