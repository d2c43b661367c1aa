package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/example/go-utterance/internal/utterance"
)

const (
	defaultConsonantDuration = 60 * time.Millisecond
	defaultVowelDuration     = 110 * time.Millisecond
)

// Durations lays PHONES out on a time axis as SEGMENTS, one segment per
// phone. Stressed vowels are lengthened by half.
type Durations struct {
	Consonant time.Duration
	Vowel     time.Duration
}

func (Durations) Name() string { return "durations" }

func (s Durations) Process(_ context.Context, u *utterance.Utterance) error {
	cons, vowel := s.Consonant, s.Vowel
	if cons <= 0 {
		cons = defaultConsonantDuration
	}
	if vowel <= 0 {
		vowel = defaultVowelDuration
	}

	phones, err := utterance.SequenceOf[*utterance.Phoneme](u, Phones)
	if err != nil {
		return err
	}
	// Stress lives on syllables; PHONES→SYLLABLES is the reversed view of
	// the relation the phonemiser registered.
	phoneSyl, err := u.GetRelation(Phones, Syllables)
	if err != nil {
		return err
	}

	segments := utterance.NewSequence[*utterance.Segment]()
	pairs := make([]utterance.Pair, 0, phones.Size())
	var at time.Duration
	for i, ph := range phones.Items() {
		d := cons
		if isVowel(ph.Symbol) {
			d = vowel
			if stressed(phoneSyl, i) {
				d += vowel / 2
			}
		}
		if err := segments.Add(utterance.NewSegment(ph.Symbol, at, d)); err != nil {
			return err
		}
		pairs = append(pairs, utterance.Pair{A: i, B: i})
		at += d
	}

	if err := u.AddSequence(Segments, segments); err != nil {
		return err
	}
	return link(u, Phones, Segments, phones, segments, pairs)
}

func stressed(phoneSyl *utterance.Relation, phone int) bool {
	for _, si := range phoneSyl.RelatedIndexes(phone) {
		it, err := phoneSyl.Target().ItemAt(si)
		if err != nil {
			continue
		}
		if syl, ok := it.(*utterance.Syllable); ok && syl.Stress == 1 {
			return true
		}
	}
	return false
}

// isVowel recognizes vowel symbols of common ASCII phone sets.
func isVowel(symbol string) bool {
	if symbol == "" {
		return false
	}
	return strings.ContainsRune("aeiouyAEIOUVQ@{3", rune(symbol[0]))
}
