package main

import (
	"errors"
	"fmt"

	"github.com/example/go-utterance/internal/lexicon"
	"github.com/spf13/cobra"
)

func newLexiconCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon WORD...",
		Short: "Print the pronunciation of words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			lex, err := loadLexicon(cfg.Pipeline.LexiconPath)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, word := range args {
				source := "lexicon"
				pron, ok := lex.Lookup(word)
				var err error
				if !ok {
					source = "rules"
					pron, err = lexicon.LetterToSound(word)
				}

				switch {
				case errors.Is(err, lexicon.ErrNoPronunciation):
					_, err = fmt.Fprintf(w, "%s\t-\tnone\n", word)
				case err != nil:
					return err
				default:
					_, err = fmt.Fprintf(w, "%s\t%s\t%s\n", word, pron, source)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	return cmd
}
