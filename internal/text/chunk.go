package text

import (
	"strings"
	"unicode"
)

// ChunkBySentence splits text into chunks at sentence boundaries (., !, ?),
// grouping consecutive sentences together while staying within maxChars per chunk.
// If maxChars is 0, no splitting is performed.
// Sentences that individually exceed maxChars are kept intact as a single chunk.
// Paragraph breaks inside a chunk are kept as a blank line.
func ChunkBySentence(text string, maxChars int) []string {
	if maxChars <= 0 {
		return []string{text}
	}

	var paragraphs [][]string
	total := 0
	for _, p := range SplitParagraphs(text) {
		sentences := SplitSentences(p)
		if len(sentences) == 0 {
			continue
		}
		paragraphs = append(paragraphs, sentences)
		total += len(sentences)
	}
	if total <= 1 {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, sentences := range paragraphs {
		for i, s := range sentences {
			if current.Len() == 0 {
				current.WriteString(s)
				continue
			}
			sep := " "
			if i == 0 {
				sep = "\n\n"
			}
			// Would appending this sentence exceed the limit?
			if current.Len()+len(sep)+len(s) > maxChars {
				chunks = append(chunks, current.String())
				current.Reset()
				current.WriteString(s)
			} else {
				current.WriteString(sep)
				current.WriteString(s)
			}
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func isTerminator(r rune) bool { return r == '.' || r == '!' || r == '?' }

// SplitSentences splits text on sentence-ending punctuation (., !, ?),
// keeping the terminator attached to its sentence. A run of terminators
// such as "?!" or "..." ends one sentence, and a terminator only ends a
// sentence when whitespace or the end of text follows it, so "3.5" stays
// whole. Empty segments are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i
		for end+1 < len(runes) && isTerminator(runes[end+1]) {
			end++
		}
		if end+1 < len(runes) && !unicode.IsSpace(runes[end+1]) {
			i = end
			continue
		}
		if s := strings.TrimSpace(string(runes[start : end+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = end + 1
		i = end
	}

	// Trailing text after the last terminator (if any).
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

// SplitParagraphs splits text at blank lines. Lines within a paragraph are
// joined with single spaces.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	var lines []string

	flush := func() {
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, " "))
			lines = lines[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return paragraphs
}

// SplitPhrases splits a sentence after commas, semicolons and colons that
// are followed by whitespace, keeping the punctuation on the phrase it
// closes.
func SplitPhrases(sentence string) []string {
	var phrases []string
	runes := []rune(sentence)
	start := 0

	for i, r := range runes {
		if r != ',' && r != ';' && r != ':' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			phrases = append(phrases, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			phrases = append(phrases, s)
		}
	}

	return phrases
}
