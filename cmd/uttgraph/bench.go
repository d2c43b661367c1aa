package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/go-utterance/internal/bench"
	"github.com/example/go-utterance/internal/pipeline"
	"github.com/example/go-utterance/internal/utterance"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		text         string
		runs         int
		format       string
		rtfThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark utterance build latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("--text is required for bench")
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			timer := bench.NewStageTimer()
			p, err := newPipeline(cfg, pipeline.WithStageHook(timer.Observe))
			if err != nil {
				return err
			}

			results, err := runBench(cmd.Context(), p, timer, text, runs)
			if err != nil {
				return err
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			switch format {
			case "json":
				err = bench.FormatJSON(results, stats, cmd.OutOrStdout())
			default:
				err = bench.FormatTable(results, stats, cmd.OutOrStdout())
			}
			if err != nil {
				return err
			}

			return bench.CheckRTFThreshold(bench.MeanRTF(results), rtfThreshold)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to build for each run (required)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of build runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&rtfThreshold, "rtf-threshold", 0, "Exit non-zero if mean RTF exceeds this value (0 = disabled)")

	return cmd
}

func runBench(ctx context.Context, p *pipeline.Pipeline, timer *bench.StageTimer, text string, runs int) ([]bench.RunResult, error) {
	results := make([]bench.RunResult, 0, runs)

	for i := 0; i < runs; i++ {
		start := time.Now()
		u, err := p.Build(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		dur := time.Since(start)

		speech := speechDuration(u)
		results = append(results, bench.RunResult{
			Index:          i,
			Cold:           i == 0,
			Duration:       dur,
			SpeechDuration: speech,
			Items:          countItems(u),
			RTF:            bench.CalcRTF(dur, speech),
			Stages:         timer.Take(),
		})
	}

	return results, nil
}

// speechDuration is the end time of the last segment, or 0 without
// segments.
func speechDuration(u *utterance.Utterance) time.Duration {
	segs, err := utterance.SequenceOf[*utterance.Segment](u, pipeline.Segments)
	if err != nil || segs.Size() == 0 {
		return 0
	}
	last, err := segs.Get(segs.Size() - 1)
	if err != nil {
		return 0
	}
	return last.End()
}

func countItems(u *utterance.Utterance) int {
	n := 0
	for _, name := range u.Names() {
		if seq, err := u.Sequence(name); err == nil {
			n += seq.Size()
		}
	}
	return n
}
