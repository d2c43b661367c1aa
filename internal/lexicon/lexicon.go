// Package lexicon maps words to pronunciations. Entries come from a YAML
// file; words that are not listed fall back to simple letter-to-sound rules.
package lexicon

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoPronunciation is returned for words the lexicon and the
	// letter-to-sound rules cannot pronounce, such as digits.
	ErrNoPronunciation = errors.New("no pronunciation")
	// ErrBadTranscription is returned for malformed transcriptions.
	ErrBadTranscription = errors.New("malformed transcription")
)

// Syllable is the phones of one syllable and its stress: 0 unstressed,
// 1 primary, 2 secondary.
type Syllable struct {
	Phones []string
	Stress int
}

// Pronunciation is a syllabified phone string.
type Pronunciation struct {
	Syllables []Syllable
}

// Phones returns every phone in order.
func (p Pronunciation) Phones() []string {
	var out []string
	for _, s := range p.Syllables {
		out = append(out, s.Phones...)
	}
	return out
}

// String renders the pronunciation in transcription form.
func (p Pronunciation) String() string {
	parts := make([]string, 0, len(p.Syllables))
	for _, s := range p.Syllables {
		phones := slices.Clone(s.Phones)
		switch s.Stress {
		case 1:
			phones[0] = "'" + phones[0]
		case 2:
			phones[0] = "," + phones[0]
		}
		parts = append(parts, strings.Join(phones, " "))
	}
	return strings.Join(parts, " - ")
}

type lexiconFile struct {
	Entries map[string]string `yaml:"entries"`
}

// Lexicon is a word → pronunciation table. It is read-only after loading
// and safe for concurrent lookups.
type Lexicon struct {
	path    string
	entries map[string]Pronunciation
}

// New returns an empty lexicon; every word goes through letter-to-sound.
func New() *Lexicon {
	return &Lexicon{entries: make(map[string]Pronunciation)}
}

// Load reads a YAML lexicon of the form
//
//	entries:
//	  hello: "h @ - 'l oU"
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return nil, errors.New("lexicon path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}

	lex, err := Parse(data)
	if err != nil {
		return nil, err
	}
	lex.path = path
	return lex, nil
}

// Parse decodes YAML lexicon data.
func Parse(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}

	lex := New()
	for word, tr := range f.Entries {
		if err := lex.Add(word, tr); err != nil {
			return nil, err
		}
	}
	return lex, nil
}

// Add parses transcription and stores it for word. Words are matched
// case-insensitively.
func (l *Lexicon) Add(word, transcription string) error {
	key := strings.ToLower(strings.TrimSpace(word))
	if key == "" {
		return errors.New("lexicon contains empty word")
	}
	if _, exists := l.entries[key]; exists {
		return fmt.Errorf("duplicate lexicon entry %q", key)
	}
	p, err := ParseTranscription(transcription)
	if err != nil {
		return fmt.Errorf("entry %q: %w", key, err)
	}
	l.entries[key] = p
	return nil
}

// Path returns the file the lexicon was loaded from, if any.
func (l *Lexicon) Path() string { return l.path }

// Len returns the number of entries.
func (l *Lexicon) Len() int { return len(l.entries) }

// Lookup returns the listed pronunciation of word.
func (l *Lexicon) Lookup(word string) (Pronunciation, bool) {
	p, ok := l.entries[strings.ToLower(word)]
	return p, ok
}

// Pronounce returns the listed pronunciation of word or, failing that, one
// produced by letter-to-sound rules.
func (l *Lexicon) Pronounce(word string) (Pronunciation, error) {
	if p, ok := l.Lookup(word); ok {
		return p, nil
	}
	return LetterToSound(word)
}

// ParseTranscription parses phones separated by spaces. "-" or "." starts a
// new syllable; a leading ' or , on a phone marks its syllable with primary
// or secondary stress.
func ParseTranscription(s string) (Pronunciation, error) {
	var p Pronunciation
	cur := Syllable{}

	for _, tok := range strings.Fields(s) {
		if tok == "-" || tok == "." {
			if len(cur.Phones) == 0 {
				return Pronunciation{}, fmt.Errorf("empty syllable in %q: %w", s, ErrBadTranscription)
			}
			p.Syllables = append(p.Syllables, cur)
			cur = Syllable{}
			continue
		}
		switch tok[0] {
		case '\'':
			cur.Stress = 1
			tok = tok[1:]
		case ',':
			cur.Stress = 2
			tok = tok[1:]
		}
		if tok == "" {
			return Pronunciation{}, fmt.Errorf("stress mark without phone in %q: %w", s, ErrBadTranscription)
		}
		cur.Phones = append(cur.Phones, tok)
	}

	if len(cur.Phones) == 0 {
		return Pronunciation{}, fmt.Errorf("empty syllable in %q: %w", s, ErrBadTranscription)
	}
	p.Syllables = append(p.Syllables, cur)
	return p, nil
}

var digraphs = map[string]string{
	"ch": "tS",
	"ck": "k",
	"ng": "N",
	"ph": "f",
	"sh": "S",
	"th": "T",
	"wh": "w",
	"ee": "i:",
	"oo": "u:",
	"ou": "aU",
}

var vowels = map[string]bool{
	"a": true, "e": true, "i": true, "o": true, "u": true, "y": true,
	"i:": true, "u:": true, "aU": true,
}

// IsVowel reports whether phone is a syllable nucleus in the letter-to-sound
// phone set.
func IsVowel(phone string) bool { return vowels[phone] }

// LetterToSound spells word with one phone per letter or known digraph and
// syllabifies it at vowel nuclei, giving a single consonant before a vowel
// to the following syllable. The first syllable takes primary stress.
func LetterToSound(word string) (Pronunciation, error) {
	var letters []rune
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return Pronunciation{}, fmt.Errorf("word %q: %w", word, ErrNoPronunciation)
	}

	var phones []string
	for i := 0; i < len(letters); i++ {
		if i+1 < len(letters) {
			if ph, ok := digraphs[string(letters[i:i+2])]; ok {
				phones = append(phones, ph)
				i++
				continue
			}
		}
		phones = append(phones, string(letters[i]))
	}

	return syllabify(phones), nil
}

func syllabify(phones []string) Pronunciation {
	var nuclei []int
	prevVowel := false
	for i, ph := range phones {
		v := IsVowel(ph)
		if v && !prevVowel {
			nuclei = append(nuclei, i)
		}
		prevVowel = v
	}
	if len(nuclei) <= 1 {
		return Pronunciation{Syllables: []Syllable{{Phones: phones, Stress: 1}}}
	}

	var p Pronunciation
	start := 0
	for _, n := range nuclei[1:] {
		// The consonant right before a nucleus opens its syllable.
		boundary := n - 1
		p.Syllables = append(p.Syllables, Syllable{Phones: phones[start:boundary]})
		start = boundary
	}
	p.Syllables = append(p.Syllables, Syllable{Phones: phones[start:]})
	p.Syllables[0].Stress = 1
	return p
}
