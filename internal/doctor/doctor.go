// Package doctor provides preflight checks for the uttgraph CLI.
package doctor

import (
	"fmt"
	"io"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// LexiconPath is the configured lexicon file; empty means
	// letter-to-sound only and skips the lexicon check.
	LexiconPath string
	// LoadLexicon loads the lexicon at path and returns its entry count.
	LoadLexicon func(path string) (int, error)
	// Workers is the configured batch worker limit.
	Workers int
	// SmokeBuild builds a short fixed text and describes the result.
	SmokeBuild func() (string, error)
	// SmokeAlign checks that a derived alignment can be computed on the
	// smoke utterance.
	SmokeAlign func() error
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark. Checks whose
// dependency is nil are skipped.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- lexicon ----------------------------------------------------------
	switch {
	case cfg.LexiconPath == "":
		fmt.Fprintf(w, "%s lexicon: none configured, letter-to-sound only\n", PassMark)
	case cfg.LoadLexicon == nil:
		fmt.Fprintf(w, "%s lexicon: skipped\n", PassMark)
	default:
		n, err := cfg.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			res.fail(fmt.Sprintf("lexicon %q: %v", cfg.LexiconPath, err))
			fmt.Fprintf(w, "%s lexicon %s: %v\n", FailMark, cfg.LexiconPath, err)
		} else {
			fmt.Fprintf(w, "%s lexicon: %s (%d entries)\n", PassMark, cfg.LexiconPath, n)
		}
	}

	// ---- workers ----------------------------------------------------------
	if err := checkWorkers(cfg.Workers); err != nil {
		res.fail(fmt.Sprintf("workers: %v", err))
		fmt.Fprintf(w, "%s workers: %v\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s workers: %d\n", PassMark, cfg.Workers)
	}

	// ---- smoke build ------------------------------------------------------
	if cfg.SmokeBuild != nil {
		desc, err := cfg.SmokeBuild()
		if err != nil {
			res.fail(fmt.Sprintf("smoke build: %v", err))
			fmt.Fprintf(w, "%s smoke build: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s smoke build: %s\n", PassMark, desc)
		}
	}

	// ---- derived alignment ------------------------------------------------
	if cfg.SmokeAlign != nil {
		if err := cfg.SmokeAlign(); err != nil {
			res.fail(fmt.Sprintf("derived alignment: %v", err))
			fmt.Fprintf(w, "%s derived alignment: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s derived alignment: ok\n", PassMark)
		}
	}

	return res
}

func checkWorkers(n int) error {
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}
