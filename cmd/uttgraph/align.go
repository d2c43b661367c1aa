package main

import (
	"fmt"
	"strings"

	"github.com/example/go-utterance/internal/pipeline"
	"github.com/spf13/cobra"
)

func newAlignCmd() *cobra.Command {
	var text string
	var file string
	var from string
	var to string

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Print the alignment between two levels of an utterance",
		Long: "Builds one utterance from the input and prints, for every item of --from,\n" +
			"the items of --to it is aligned with. Levels without a registered relation\n" +
			"are aligned through the shortest chain of relations between them.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			input, err := readInputText(text, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg)
			if err != nil {
				return err
			}

			u, err := p.Build(cmd.Context(), input)
			if err != nil {
				return err
			}
			rows, err := pipeline.Align(u, from, to)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, row := range rows {
				if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", row.Index, row.Label, strings.Join(row.Labels, " ")); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to build (if empty, read --file or stdin)")
	cmd.Flags().StringVar(&file, "file", "", "Read text from this file")
	cmd.Flags().StringVar(&from, "from", "WORDS", "Source level")
	cmd.Flags().StringVar(&to, "to", "PHONES", "Target level")

	return cmd
}
