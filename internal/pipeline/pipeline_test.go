package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/example/go-utterance/internal/lexicon"
	"github.com/example/go-utterance/internal/pipeline"
	"github.com/example/go-utterance/internal/testutil"
	"github.com/example/go-utterance/internal/text"
	"github.com/example/go-utterance/internal/utterance"
)

// capturingHandler captures all slog records during a test.
type capturingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (c *capturingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
	return nil
}
func (c *capturingHandler) WithAttrs(_ []slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(_ string) slog.Handler      { return c }

func (c *capturingHandler) messages(level slog.Level) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, r := range c.records {
		if r.Level == level {
			out = append(out, r.Message)
		}
	}
	return out
}

func testLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()

	path := testutil.WriteLexicon(t, map[string]string{
		"hello": "h @ - 'l oU",
		"world": "'w 3: l d",
	})
	lex, err := lexicon.Load(path)
	if err != nil {
		t.Fatalf("load lexicon: %v", err)
	}
	return lex
}

func labelsOf(t *testing.T, u *utterance.Utterance, name string) []string {
	t.Helper()

	seq, err := u.Sequence(name)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, 0, seq.Size())
	for i := 0; i < seq.Size(); i++ {
		it, err := seq.ItemAt(i)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, it.Label())
	}
	return out
}

func TestBuild_TokenizesAllLevels(t *testing.T) {
	p := pipeline.Default(testLexicon(t), pipeline.WithLogger(slog.New(&capturingHandler{})))

	u, err := p.Build(context.Background(), "Hello, world. how are you?\n\nBye")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := u.Names(); len(got) != len(pipeline.Levels()) {
		t.Errorf("Names() = %v, want all of %v", got, pipeline.Levels())
	}

	tests := []struct {
		level string
		want  []string
	}{
		{pipeline.Paragraphs, []string{"Hello, world. how are you?", "Bye"}},
		{pipeline.Sentences, []string{"Hello, world.", "How are you?", "Bye."}},
		{pipeline.Phrases, []string{",", ".", "?", "."}},
		{pipeline.Words, []string{"Hello", "world", "How", "are", "you", "Bye"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := labelsOf(t, u, tt.level); !slices.Equal(got, tt.want) {
				t.Errorf("%s = %q, want %q", tt.level, got, tt.want)
			}
		})
	}

	// SENTENCES↔WORDS is never registered; it is derived through PHRASES.
	sentWords, err := u.GetRelation(pipeline.Sentences, pipeline.Words)
	if err != nil {
		t.Fatalf("derive SENTENCES→WORDS: %v", err)
	}
	testutil.AssertRelated(t, sentWords, 0, []int{0, 1})
	testutil.AssertRelated(t, sentWords, 1, []int{2, 3, 4})
	testutil.AssertRelated(t, sentWords, 2, []int{5})

	paraWords, err := u.GetRelation(pipeline.Paragraphs, pipeline.Words)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertRelated(t, paraWords, 1, []int{5})

	for _, rel := range u.Relations() {
		testutil.AssertInBounds(t, rel)
	}
}

func TestBuild_PhonesDurationsAndFeatures(t *testing.T) {
	p := pipeline.Default(testLexicon(t))

	u, err := p.Build(context.Background(), "Hello, world.")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantPhones := []string{"h", "@", "l", "oU", "w", "3:", "l", "d"}
	if got := labelsOf(t, u, pipeline.Phones); !slices.Equal(got, wantPhones) {
		t.Fatalf("PHONES = %q, want %q", got, wantPhones)
	}
	if got := labelsOf(t, u, pipeline.Syllables); !slices.Equal(got, []string{"h@", "loU", "w3:ld"}) {
		t.Errorf("SYLLABLES = %q", got)
	}

	wordPhones, err := u.GetRelation(pipeline.Words, pipeline.Phones)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertRelated(t, wordPhones, 0, []int{0, 1, 2, 3})
	testutil.AssertRelated(t, wordPhones, 1, []int{4, 5, 6, 7})

	segs, err := utterance.SequenceOf[*utterance.Segment](u, pipeline.Segments)
	if err != nil {
		t.Fatal(err)
	}
	wantDur := []time.Duration{60, 110, 60, 165, 60, 165, 60, 60}
	var at time.Duration
	for i, seg := range segs.Items() {
		if seg.Duration != wantDur[i]*time.Millisecond {
			t.Errorf("segment %d (%s) duration = %v, want %dms", i, seg.Phone, seg.Duration, wantDur[i])
		}
		if seg.Start != at {
			t.Errorf("segment %d start = %v, want %v", i, seg.Start, at)
		}
		at = seg.End()
	}

	feats, err := utterance.SequenceOf[*utterance.FeatureVector](u, pipeline.Features)
	if err != nil {
		t.Fatal(err)
	}
	if feats.Size() != len(wantPhones) {
		t.Fatalf("FEATURES size = %d, want %d", feats.Size(), len(wantPhones))
	}

	fv, err := feats.Get(3)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		pipeline.FeatPhone:       "oU",
		pipeline.FeatPrevPhone:   "l",
		pipeline.FeatNextPhone:   "w",
		pipeline.FeatWord:        "Hello",
		pipeline.FeatPosInWord:   "4",
		pipeline.FeatWordPhones:  "4",
		pipeline.FeatSylStress:   "1",
		pipeline.FeatSegDuration: "165",
	}
	for name, v := range want {
		if got, ok := fv.Get(name); !ok || got != v {
			t.Errorf("feature %s = %q (set %v), want %q", name, got, ok, v)
		}
	}

	first, err := feats.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := first.Get(pipeline.FeatPrevPhone); got != "#" {
		t.Errorf("first prev_phone = %q, want #", got)
	}
}

func TestBuild_UnpronounceableWordIsSkipped(t *testing.T) {
	capture := &capturingHandler{}
	p := pipeline.Default(lexicon.New(), pipeline.WithLogger(slog.New(capture)))

	u, err := p.Build(context.Background(), "I have 42 cats.")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wordPhones, err := u.GetRelation(pipeline.Words, pipeline.Phones)
	if err != nil {
		t.Fatal(err)
	}
	if got := wordPhones.RelatedIndexes(2); len(got) != 0 {
		t.Errorf("word 42 aligned to phones %v, want none", got)
	}
	if got := wordPhones.RelatedIndexes(3); len(got) == 0 {
		t.Error("word after the skipped one lost its phones")
	}

	if warns := capture.messages(slog.LevelWarn); !slices.Contains(warns, "word has no pronunciation") {
		t.Errorf("warnings = %v, want a no-pronunciation warning", warns)
	}
}

func TestBuild_RejectsEmptyText(t *testing.T) {
	p := pipeline.Default(lexicon.New())

	if _, err := p.Build(context.Background(), " \n\t "); !errors.Is(err, text.ErrEmptyText) {
		t.Fatalf("want ErrEmptyText, got %v", err)
	}
}

type failingStage struct{ err error }

func (failingStage) Name() string { return "broken" }
func (f failingStage) Process(context.Context, *utterance.Utterance) error {
	return f.err
}

type countingStage struct{ calls int }

func (*countingStage) Name() string { return "count" }
func (c *countingStage) Process(context.Context, *utterance.Utterance) error {
	c.calls++
	return nil
}

func TestRun_StopsAtFailingStage(t *testing.T) {
	boom := errors.New("boom")
	after := &countingStage{}
	capture := &capturingHandler{}
	p := pipeline.New([]pipeline.Stage{pipeline.Tokenize{}, failingStage{err: boom}, after},
		pipeline.WithLogger(slog.New(capture)))

	if got := p.Stages(); !slices.Equal(got, []string{"tokenize", "broken", "count"}) {
		t.Errorf("Stages() = %v", got)
	}

	_, err := p.Build(context.Background(), "Hello.")
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped stage error, got %v", err)
	}
	if after.calls != 0 {
		t.Error("stage after the failure ran")
	}
	if errs := capture.messages(slog.LevelError); !slices.Contains(errs, "stage failed") {
		t.Errorf("error logs = %v, want stage failed", errs)
	}
}

func TestRun_HonoursCancellation(t *testing.T) {
	stage := &countingStage{}
	p := pipeline.New([]pipeline.Stage{stage})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Build(ctx, "Hello."); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if stage.calls != 0 {
		t.Error("stage ran after cancellation")
	}
}

func TestPhonemise_RequiresPhonemiser(t *testing.T) {
	p := pipeline.New([]pipeline.Stage{pipeline.Tokenize{}, pipeline.Phonemise{}})

	if _, err := p.Build(context.Background(), "Hello."); err == nil {
		t.Fatal("want error without phonemiser")
	}
}

func TestDurations_RequiresPhones(t *testing.T) {
	p := pipeline.New([]pipeline.Stage{pipeline.Tokenize{}, pipeline.Durations{}})

	if _, err := p.Build(context.Background(), "Hello."); !errors.Is(err, utterance.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRun_ReportsStageTimes(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	hook := func(stage string, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		if d < 0 {
			t.Errorf("stage %s reported negative duration", stage)
		}
		seen = append(seen, stage)
	}

	p := pipeline.Default(lexicon.New(), pipeline.WithStageHook(hook))
	if _, err := p.Build(context.Background(), "Hello."); err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(seen, p.Stages()) {
		t.Errorf("hook saw %v, want %v", seen, p.Stages())
	}
}
