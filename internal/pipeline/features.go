package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/example/go-utterance/internal/utterance"
)

// Feature names written by FeatureStage.
const (
	FeatPhone       = "phone"
	FeatPrevPhone   = "prev_phone"
	FeatNextPhone   = "next_phone"
	FeatWord        = "word"
	FeatPosInWord   = "pos_in_word"
	FeatWordPhones  = "word_phones"
	FeatSylStress   = "syl_stress"
	FeatSegDuration = "seg_duration_ms"
)

const edge = "#"

// FeatureStage computes one FeatureVector per phone from the surrounding
// levels and registers them as FEATURES, aligned one-to-one with PHONES.
// Word context is read through the PHONES→WORDS relation, which the graph
// derives through SYLLABLES.
type FeatureStage struct{}

func (FeatureStage) Name() string { return "features" }

func (FeatureStage) Process(ctx context.Context, u *utterance.Utterance) error {
	phones, err := utterance.SequenceOf[*utterance.Phoneme](u, Phones)
	if err != nil {
		return err
	}
	words, err := utterance.SequenceOf[*utterance.Word](u, Words)
	if err != nil {
		return err
	}
	syllables, err := utterance.SequenceOf[*utterance.Syllable](u, Syllables)
	if err != nil {
		return err
	}
	phoneWord, err := u.GetRelation(Phones, Words)
	if err != nil {
		return err
	}
	wordPhone, err := u.GetRelation(Words, Phones)
	if err != nil {
		return err
	}
	phoneSyl, err := u.GetRelation(Phones, Syllables)
	if err != nil {
		return err
	}
	// Segments are optional; without them no duration feature is written.
	var phoneSeg *utterance.Relation
	if u.HasSequence(Segments) {
		if phoneSeg, err = u.GetRelation(Phones, Segments); err != nil {
			return err
		}
	}

	items := phones.Items()
	feats := utterance.NewSequence[*utterance.FeatureVector]()
	pairs := make([]utterance.Pair, 0, len(items))

	for i, ph := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		fv := utterance.NewFeatureVector()
		fv.Set(FeatPhone, ph.Symbol)
		fv.Set(FeatPrevPhone, symbolAt(items, i-1))
		fv.Set(FeatNextPhone, symbolAt(items, i+1))

		word, pos, n := edge, 0, 0
		if wi := phoneWord.RelatedIndexes(i); len(wi) > 0 {
			w, err := words.Get(wi[0])
			if err != nil {
				return err
			}
			word = w.Text
			siblings := wordPhone.RelatedIndexes(wi[0])
			n = len(siblings)
			for k, idx := range siblings {
				if idx == i {
					pos = k + 1
				}
			}
		}
		fv.Set(FeatWord, word)
		fv.Set(FeatPosInWord, strconv.Itoa(pos))
		fv.Set(FeatWordPhones, strconv.Itoa(n))

		stress := "0"
		if si := phoneSyl.RelatedIndexes(i); len(si) > 0 {
			syl, err := syllables.Get(si[0])
			if err != nil {
				return err
			}
			stress = strconv.Itoa(syl.Stress)
		}
		fv.Set(FeatSylStress, stress)

		if phoneSeg != nil {
			if d, ok := segmentDuration(phoneSeg, i); ok {
				fv.Set(FeatSegDuration, strconv.FormatInt(d.Milliseconds(), 10))
			}
		}

		if err := feats.Add(fv); err != nil {
			return err
		}
		pairs = append(pairs, utterance.Pair{A: i, B: i})
	}

	if err := u.AddSequence(Features, feats); err != nil {
		return err
	}
	return link(u, Phones, Features, phones, feats, pairs)
}

func segmentDuration(phoneSeg *utterance.Relation, phone int) (time.Duration, bool) {
	items, err := phoneSeg.RelatedItems(phone)
	if err != nil {
		return 0, false
	}
	var total time.Duration
	for _, it := range items {
		if seg, ok := it.(*utterance.Segment); ok {
			total += seg.Duration
		}
	}
	return total, len(items) > 0
}

func symbolAt(items []*utterance.Phoneme, i int) string {
	if i < 0 || i >= len(items) {
		return edge
	}
	return items[i].Symbol
}
