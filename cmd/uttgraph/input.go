package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/example/go-utterance/internal/config"
	"github.com/example/go-utterance/internal/lexicon"
	"github.com/example/go-utterance/internal/pipeline"
	textpkg "github.com/example/go-utterance/internal/text"
)

// readInputText returns text if it is set, else the contents of file if it
// is set, else stdin.
func readInputText(text, file string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	var (
		b   []byte
		err error
	)
	if file != "" {
		b, err = os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
	} else {
		b, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
	}

	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either provide --text, --file or pipe text on stdin")
	}
	return input, nil
}

// splitInput cuts input into the texts that become separate utterances.
func splitInput(input string, maxChunkChars int) []string {
	chunks := textpkg.ChunkBySentence(input, maxChunkChars)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func loadLexicon(path string) (*lexicon.Lexicon, error) {
	if path == "" {
		return lexicon.New(), nil
	}
	lex, err := lexicon.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("lexicon loaded", slog.String("path", path), slog.Int("entries", lex.Len()))
	return lex, nil
}

func newPipeline(cfg config.Config, extra ...pipeline.Option) (*pipeline.Pipeline, error) {
	lex, err := loadLexicon(cfg.Pipeline.LexiconPath)
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{
		pipeline.WithLogger(slog.Default()),
		pipeline.WithDerivedCache(cfg.Pipeline.CacheDerived),
	}
	return pipeline.Default(lex, append(opts, extra...)...), nil
}
