package pipeline

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/example/go-utterance/internal/text"
	"github.com/example/go-utterance/internal/utterance"
)

// Tokenize splits PARAGRAPHS into SENTENCES, PHRASES and WORDS and links
// each level to the one above it. SENTENCES↔WORDS is left to derivation
// through PHRASES.
type Tokenize struct{}

func (Tokenize) Name() string { return "tokenize" }

func (Tokenize) Process(_ context.Context, u *utterance.Utterance) error {
	paragraphs, err := utterance.SequenceOf[*utterance.Paragraph](u, Paragraphs)
	if err != nil {
		return err
	}

	sentences := utterance.NewSequence[*utterance.Sentence]()
	phrases := utterance.NewSequence[*utterance.Phrase]()
	words := utterance.NewSequence[*utterance.Word]()

	var paraSent, sentPhrase, phraseWord []utterance.Pair
	for pi, para := range paragraphs.Items() {
		for _, raw := range text.SplitSentences(para.Text) {
			prepared := text.PrepareText(raw)
			if err := sentences.Add(utterance.NewSentence(prepared)); err != nil {
				return err
			}
			si := sentences.Size() - 1
			paraSent = append(paraSent, utterance.Pair{A: pi, B: si})

			for _, ph := range text.SplitPhrases(prepared) {
				tokens := text.Words(ph)
				if len(tokens) == 0 {
					continue
				}
				if err := phrases.Add(utterance.NewPhrase(boundaryOf(ph))); err != nil {
					return err
				}
				phi := phrases.Size() - 1
				sentPhrase = append(sentPhrase, utterance.Pair{A: si, B: phi})

				for _, tok := range tokens {
					if err := words.Add(utterance.NewWord(tok)); err != nil {
						return err
					}
					phraseWord = append(phraseWord, utterance.Pair{A: phi, B: words.Size() - 1})
				}
			}
		}
	}

	if err := u.AddSequence(Sentences, sentences); err != nil {
		return err
	}
	if err := u.AddSequence(Phrases, phrases); err != nil {
		return err
	}
	if err := u.AddSequence(Words, words); err != nil {
		return err
	}
	if err := link(u, Paragraphs, Sentences, paragraphs, sentences, paraSent); err != nil {
		return err
	}
	if err := link(u, Sentences, Phrases, sentences, phrases, sentPhrase); err != nil {
		return err
	}
	return link(u, Phrases, Words, phrases, words, phraseWord)
}

// boundaryOf returns the closing punctuation of a phrase, or "" if it has
// none.
func boundaryOf(phrase string) string {
	r, _ := utf8.DecodeLastRuneInString(phrase)
	if unicode.IsPunct(r) {
		return string(r)
	}
	return ""
}

func link(u *utterance.Utterance, nameA, nameB string, a, b utterance.Seq, pairs []utterance.Pair) error {
	rel, err := utterance.NewRelationWithPairs(a, b, pairs)
	if err != nil {
		return err
	}
	return u.SetRelation(nameA, nameB, rel)
}
