package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/go-utterance/internal/config"
	"github.com/example/go-utterance/internal/doctor"
	"github.com/example/go-utterance/internal/lexicon"
	"github.com/example/go-utterance/internal/pipeline"
	"github.com/example/go-utterance/internal/utterance"
	"github.com/spf13/cobra"
)

// smokeText exercises every level, including a phrase break and a
// paragraph break.
const smokeText = "Hello, world.\n\nThis is a test."

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run lexicon, configuration and pipeline checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			result := doctor.Run(doctorConfig(cmd.Context(), cfg), w)

			if result.Failed() {
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(w, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

func doctorConfig(ctx context.Context, cfg config.Config) doctor.Config {
	var smoke *utterance.Utterance

	return doctor.Config{
		LexiconPath: cfg.Pipeline.LexiconPath,
		LoadLexicon: func(path string) (int, error) {
			lex, err := lexicon.Load(path)
			if err != nil {
				return 0, err
			}
			return lex.Len(), nil
		},
		Workers: cfg.Pipeline.Workers,
		SmokeBuild: func() (string, error) {
			p, err := newPipeline(cfg)
			if err != nil {
				return "", err
			}
			u, err := p.Build(ctx, smokeText)
			if err != nil {
				return "", err
			}
			smoke = u
			return fmt.Sprintf("%d levels, %d relations", len(u.Names()), len(u.Relations())), nil
		},
		SmokeAlign: func() error {
			if smoke == nil {
				return errors.New("no smoke utterance to align")
			}
			// PARAGRAPHS→PHONES crosses every registered relation above PHONES.
			rel, err := smoke.GetRelation(pipeline.Paragraphs, pipeline.Phones)
			if err != nil {
				return err
			}
			if len(rel.RelatedIndexes(1)) == 0 {
				return errors.New("second paragraph aligned to no phones")
			}
			return nil
		},
	}
}
