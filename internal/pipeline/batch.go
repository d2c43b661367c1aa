package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/example/go-utterance/internal/utterance"
)

// Default returns the full pipeline: tokenize, phonemise with ph, durations
// and features.
func Default(ph Phonemiser, optFns ...Option) *Pipeline {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	stages := []Stage{
		Tokenize{},
		Phonemise{Phonemiser: ph, Logger: opts.logger},
		Durations{},
		FeatureStage{},
	}
	return New(stages, optFns...)
}

// Batch builds one utterance per text with at most workers builds running
// at once. Each utterance is confined to the goroutine that builds it.
// Results keep the order of texts; a text that failed leaves a nil entry
// and its error, tagged with the text index, is joined into the returned
// error.
func (p *Pipeline) Batch(ctx context.Context, texts []string, workers int) ([]*utterance.Utterance, error) {
	if workers < 1 {
		workers = 1
	}

	out := make([]*utterance.Utterance, len(texts))
	errs := make([]error, len(texts))
	sem := make(chan struct{}, workers) // semaphore for worker pool

	var wg sync.WaitGroup
	for i, t := range texts {
		// Acquire a worker slot; honour context cancellation while waiting.
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = fmt.Errorf("text %d: %w", i, ctx.Err())
			continue
		}

		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()
			defer func() { <-sem }()

			u, err := p.Build(ctx, t)
			if err != nil {
				errs[i] = fmt.Errorf("text %d: %w", i, err)
				return
			}
			out[i] = u
		}(i, t)
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		p.opts.logger.Warn("batch finished with errors",
			slog.Int("texts", len(texts)),
			slog.String("error", err.Error()),
		)
	}
	return out, err
}
