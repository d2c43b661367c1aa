// Package pipeline populates utterances. A Pipeline turns raw text into an
// utterance and runs a fixed list of stages over it; each stage reads the
// sequences earlier stages registered and adds its own, linked by
// relations.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/go-utterance/internal/text"
	"github.com/example/go-utterance/internal/utterance"
)

// Sequence names registered by the built-in stages.
const (
	Paragraphs = "PARAGRAPHS"
	Sentences  = "SENTENCES"
	Phrases    = "PHRASES"
	Words      = "WORDS"
	Syllables  = "SYLLABLES"
	Phones     = "PHONES"
	Segments   = "SEGMENTS"
	Features   = "FEATURES"
)

// Levels lists the sequence names of a fully built utterance, from the
// coarsest level to the finest.
func Levels() []string {
	return []string{Paragraphs, Sentences, Phrases, Words, Syllables, Phones, Segments, Features}
}

// Stage is one processing step over an utterance.
type Stage interface {
	Name() string
	Process(ctx context.Context, u *utterance.Utterance) error
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	logger       *slog.Logger
	cacheDerived bool
	stageHook    func(stage string, d time.Duration)
}

func defaultOptions() options {
	return options{
		logger:       slog.Default(),
		cacheDerived: true,
	}
}

// Option configures a Pipeline.
type Option func(*options)

// WithLogger sets the slog.Logger used for stage logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDerivedCache controls memoization of derived relations on the
// utterances the pipeline builds.
func WithDerivedCache(enabled bool) Option {
	return func(o *options) { o.cacheDerived = enabled }
}

// WithStageHook registers fn to be called after every successful stage with
// the time the stage took. fn may be called from several goroutines when the
// pipeline is used by Batch.
func WithStageHook(fn func(stage string, d time.Duration)) Option {
	return func(o *options) { o.stageHook = fn }
}

// Pipeline runs stages in order over one utterance at a time.
type Pipeline struct {
	stages []Stage
	opts   options
}

// New returns a pipeline running stages in the given order.
func New(stages []Stage, optFns ...Option) *Pipeline {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{stages: stages, opts: opts}
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Build normalizes raw, registers its paragraphs as the PARAGRAPHS sequence
// of a new utterance and runs every stage over it.
func (p *Pipeline) Build(ctx context.Context, raw string) (*utterance.Utterance, error) {
	normalized, err := text.Normalize(raw)
	if err != nil {
		return nil, err
	}

	u := utterance.New(utterance.WithDerivedCache(p.opts.cacheDerived))
	paragraphs := utterance.NewSequence[*utterance.Paragraph]()
	for _, para := range text.SplitParagraphs(normalized) {
		if err := paragraphs.Add(utterance.NewParagraph(para)); err != nil {
			return nil, err
		}
	}
	if err := u.AddSequence(Paragraphs, paragraphs); err != nil {
		return nil, err
	}

	if err := p.Run(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Run applies every stage to u. It stops at the first failing stage or when
// ctx is done.
func (p *Pipeline) Run(ctx context.Context, u *utterance.Utterance) error {
	log := p.opts.logger.With(slog.String("utterance", u.ID().String()))

	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := s.Process(ctx, u)
		elapsed := time.Since(start)
		durationMS := elapsed.Milliseconds()
		if err != nil {
			log.Error("stage failed",
				slog.String("stage", s.Name()),
				slog.Int64("duration_ms", durationMS),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
		log.Debug("stage completed",
			slog.String("stage", s.Name()),
			slog.Int64("duration_ms", durationMS),
		)
		if p.opts.stageHook != nil {
			p.opts.stageHook(s.Name(), elapsed)
		}
	}
	return nil
}
