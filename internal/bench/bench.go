// Package bench provides benchmarking primitives for the uttgraph bench command.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing of a single utterance build.
type RunResult struct {
	Index          int
	Cold           bool // true for the first run (cold-start)
	Duration       time.Duration
	SpeechDuration time.Duration // end of the last segment
	Items          int           // items across every level
	RTF            float64
	Stages         []StageTime
}

// StageTime is the time spent in one pipeline stage.
type StageTime struct {
	Name     string
	Duration time.Duration
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// An empty slice yields zero Stats.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// ---------------------------------------------------------------------------
// RTF helpers
// ---------------------------------------------------------------------------

// CalcRTF returns build_duration / speech_duration.
// Returns 0 if speechDur is zero to avoid division by zero.
func CalcRTF(buildDur, speechDur time.Duration) float64 {
	if speechDur <= 0 {
		return 0
	}
	return float64(buildDur) / float64(speechDur)
}

// CheckRTFThreshold returns an error if meanRTF > threshold.
// A threshold of 0 disables the gate.
func CheckRTFThreshold(meanRTF, threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if meanRTF > threshold {
		return fmt.Errorf("mean RTF %.3f exceeds threshold %.3f", meanRTF, threshold)
	}
	return nil
}

// MeanRTF averages the RTF of runs.
func MeanRTF(runs []RunResult) float64 {
	if len(runs) == 0 {
		return 0
	}
	var total float64
	for _, r := range runs {
		total += r.RTF
	}
	return total / float64(len(runs))
}

// ---------------------------------------------------------------------------
// Stage timing
// ---------------------------------------------------------------------------

// StageTimer accumulates per-stage durations reported by a pipeline hook.
// It is safe for concurrent use.
type StageTimer struct {
	mu     sync.Mutex
	order  []string
	totals map[string]time.Duration
}

// NewStageTimer returns an empty timer.
func NewStageTimer() *StageTimer {
	return &StageTimer{totals: make(map[string]time.Duration)}
}

// Observe adds d to the total of stage.
func (t *StageTimer) Observe(stage string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.totals[stage]; !ok {
		t.order = append(t.order, stage)
	}
	t.totals[stage] += d
}

// Take returns the totals in first-observed order and resets the timer.
func (t *StageTimer) Take() []StageTime {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageTime, len(t.order))
	for i, name := range t.order {
		out[i] = StageTime{Name: name, Duration: t.totals[name]}
	}
	t.order = nil
	t.totals = make(map[string]time.Duration)
	return out
}

// MeanStageTimes averages stage durations over runs, keeping the order in
// which stages first appear.
func MeanStageTimes(runs []RunResult) []StageTime {
	if len(runs) == 0 {
		return nil
	}
	var order []string
	sums := make(map[string]time.Duration)
	for _, r := range runs {
		for _, s := range r.Stages {
			if _, ok := sums[s.Name]; !ok {
				order = append(order, s.Name)
			}
			sums[s.Name] += s.Duration
		}
	}
	out := make([]StageTime, len(order))
	for i, name := range order {
		out[i] = StageTime{Name: name, Duration: sums[name] / time.Duration(len(runs))}
	}
	return out
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) error {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12s  %8s  %8s\n", "Run", "Cold", "MS", "Speech(ms)", "Items", "RTF")
	fmt.Fprintln(sb, strings.Repeat("-", 58))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.3f  %12.1f  %8d  %8.5f\n",
			r.Index+1,
			cold,
			ms(r.Duration),
			ms(r.SpeechDuration),
			r.Items,
			r.RTF,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 58))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (min)\n", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (mean)\n", "", "", ms(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (max)\n", "", "", ms(stats.Max))

	if stages := MeanStageTimes(runs); len(stages) > 0 {
		fmt.Fprintln(sb)
		fmt.Fprintf(sb, "%-12s  %10s\n", "Stage", "Mean MS")
		for _, s := range stages {
			fmt.Fprintf(sb, "%-12s  %10.3f\n", s.Name, ms(s.Duration))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs   []jsonRun   `json:"runs"`
	Stats  jsonStats   `json:"stats"`
	Stages []jsonStage `json:"stages,omitempty"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Cold       bool    `json:"cold"`
	DurationMS float64 `json:"duration_ms"`
	SpeechMS   float64 `json:"speech_ms"`
	Items      int     `json:"items"`
	RTF        float64 `json:"rtf"`
}

type jsonStats struct {
	MinMS  float64 `json:"min_ms"`
	MeanMS float64 `json:"mean_ms"`
	MaxMS  float64 `json:"max_ms"`
}

type jsonStage struct {
	Name   string  `json:"name"`
	MeanMS float64 `json:"mean_ms"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) error {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:  ms(stats.Min),
			MeanMS: ms(stats.Mean),
			MaxMS:  ms(stats.Max),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: ms(r.Duration),
			SpeechMS:   ms(r.SpeechDuration),
			Items:      r.Items,
			RTF:        r.RTF,
		}
	}
	for _, s := range MeanStageTimes(runs) {
		jr.Stages = append(jr.Stages, jsonStage{Name: s.Name, MeanMS: ms(s.Duration)})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jr)
}
