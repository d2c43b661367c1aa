package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/go-utterance/internal/pipeline"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var text string
	var file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build utterances from text and print the size of every level",
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

			texts := splitInput(input, cfg.Pipeline.MaxChunkChars)
			start := time.Now()
			utts, err := p.Batch(cmd.Context(), texts, cfg.Pipeline.Workers)
			if err != nil {
				return err
			}
			slog.Info("build finished",
				slog.Int("utterances", len(utts)),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)

			summaries := make([]pipeline.Summary, len(utts))
			for i, u := range utts {
				summaries[i] = pipeline.Summarize(u)
				summaries[i].Text = texts[i]
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			return writeSummaries(cmd.OutOrStdout(), summaries)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to build (if empty, read --file or stdin)")
	cmd.Flags().StringVar(&file, "file", "", "Read text from this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print summaries as JSON")

	return cmd
}

func writeSummaries(w io.Writer, summaries []pipeline.Summary) error {
	for i, s := range summaries {
		if _, err := fmt.Fprintf(w, "utterance %d/%d %s (%d relations)\n", i+1, len(summaries), s.ID, s.Relations); err != nil {
			return err
		}
		for _, l := range s.Levels {
			if _, err := fmt.Fprintf(w, "  %-10s %d\n", l.Name, l.Size); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
