package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/example/go-utterance/internal/lexicon"
	"github.com/example/go-utterance/internal/utterance"
)

// Phonemiser produces the pronunciation of a word.
// It is satisfied by *lexicon.Lexicon.
type Phonemiser interface {
	Pronounce(word string) (lexicon.Pronunciation, error)
}

// Phonemise builds SYLLABLES and PHONES from WORDS. Words without a
// pronunciation are logged and stay aligned to no syllable.
type Phonemise struct {
	Phonemiser Phonemiser
	Logger     *slog.Logger
}

func (Phonemise) Name() string { return "phonemise" }

func (s Phonemise) Process(ctx context.Context, u *utterance.Utterance) error {
	if s.Phonemiser == nil {
		return errors.New("phonemise: no phonemiser configured")
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	words, err := utterance.SequenceOf[*utterance.Word](u, Words)
	if err != nil {
		return err
	}

	syllables := utterance.NewSequence[*utterance.Syllable]()
	phones := utterance.NewSequence[*utterance.Phoneme]()
	var wordSyl, sylPhone []utterance.Pair

	for wi, w := range words.Items() {
		if err := ctx.Err(); err != nil {
			return err
		}

		pron, err := s.Phonemiser.Pronounce(w.Text)
		if errors.Is(err, lexicon.ErrNoPronunciation) {
			log.Warn("word has no pronunciation",
				slog.String("utterance", u.ID().String()),
				slog.String("word", w.Text),
			)
			continue
		}
		if err != nil {
			return err
		}

		for _, syl := range pron.Syllables {
			if err := syllables.Add(utterance.NewSyllable(strings.Join(syl.Phones, ""), syl.Stress)); err != nil {
				return err
			}
			si := syllables.Size() - 1
			wordSyl = append(wordSyl, utterance.Pair{A: wi, B: si})

			for _, ph := range syl.Phones {
				if err := phones.Add(utterance.NewPhoneme(ph)); err != nil {
					return err
				}
				sylPhone = append(sylPhone, utterance.Pair{A: si, B: phones.Size() - 1})
			}
		}
	}

	if err := u.AddSequence(Syllables, syllables); err != nil {
		return err
	}
	if err := u.AddSequence(Phones, phones); err != nil {
		return err
	}
	if err := link(u, Words, Syllables, words, syllables, wordSyl); err != nil {
		return err
	}
	return link(u, Syllables, Phones, syllables, phones, sylPhone)
}
