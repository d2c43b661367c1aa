package main

import (
	"strings"
	"testing"

	"github.com/example/go-utterance/internal/testutil"
)

func TestDoctorCmd_Passes(t *testing.T) {
	path := testutil.WriteLexicon(t, map[string]string{"hello": "h @ - 'l oU"})

	out, err := runRoot(t, "", "doctor", "--lexicon", path)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	for _, want := range []string{"(1 entries)", "smoke build: 8 levels", "derived alignment: ok", "doctor checks passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDoctorCmd_FailsOnBrokenLexicon(t *testing.T) {
	path := testutil.WriteFile(t, "lexicon.yaml", "entries:\n  hello: \"' \"\n")

	out, err := runRoot(t, "", "doctor", "--lexicon", path)
	if err == nil {
		t.Fatalf("expected doctor to fail:\n%s", out)
	}
	if !strings.Contains(out, "✗ lexicon") {
		t.Errorf("output should flag the lexicon:\n%s", out)
	}
}
