package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their
// defaults and parses args into it.
func newFlagBinder(t *testing.T, defaults Config, args ...string) *fakeBinder {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	return &fakeBinder{fs: fs}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}

	if cfg.Pipeline.LexiconPath != "" {
		t.Errorf("Pipeline.LexiconPath = %q; want empty", cfg.Pipeline.LexiconPath)
	}

	if cfg.Pipeline.MaxChunkChars != 0 {
		t.Errorf("Pipeline.MaxChunkChars = %d; want 0", cfg.Pipeline.MaxChunkChars)
	}

	if cfg.Pipeline.Workers != 2 {
		t.Errorf("Pipeline.Workers = %d; want 2", cfg.Pipeline.Workers)
	}

	if !cfg.Pipeline.CacheDerived {
		t.Error("Pipeline.CacheDerived = false; want true")
	}

	wantServer := ServerConfig{ListenAddr: ":8080", MaxTextBytes: 4096, RequestTimeout: 60, ShutdownTimeout: 30}
	if cfg.Server != wantServer {
		t.Errorf("Server = %+v; want %+v", cfg.Server, wantServer)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	checks := []struct {
		flag string
		want string
	}{
		{"log-level", "info"},
		{"pipeline-lexicon-path", ""},
		{"lexicon", ""},
		{"pipeline-max-chunk-chars", "0"},
		{"pipeline-workers", "2"},
		{"workers", "2"},
		{"pipeline-cache-derived", "true"},
		{"server-listen-addr", ":8080"},
		{"server-max-text-bytes", "4096"},
		{"server-request-timeout", "60"},
		{"server-shutdown-timeout", "30"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg != defaults {
		t.Errorf("Load() = %+v; want defaults %+v", cfg, defaults)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want PipelineConfig
	}{
		{
			name: "canonical flags",
			args: []string{"--pipeline-workers=8", "--pipeline-lexicon-path=lex.yaml", "--pipeline-cache-derived=false"},
			want: PipelineConfig{LexiconPath: "lex.yaml", Workers: 8},
		},
		{
			name: "alias flags",
			args: []string{"--workers=3", "--lexicon=other.yaml", "--pipeline-max-chunk-chars=200"},
			want: PipelineConfig{LexiconPath: "other.yaml", MaxChunkChars: 200, Workers: 3, CacheDerived: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defaults := DefaultConfig()

			cfg, err := Load(LoadOptions{
				Cmd:      newFlagBinder(t, defaults, tt.args...),
				Defaults: defaults,
			})
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if cfg.Pipeline != tt.want {
				t.Errorf("Pipeline = %+v; want %+v", cfg.Pipeline, tt.want)
			}
		})
	}
}

func TestLoad_ServerFlags(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd: newFlagBinder(t, defaults,
			"--server-listen-addr=127.0.0.1:9090",
			"--server-max-text-bytes=512",
			"--server-request-timeout=5",
			"--server-shutdown-timeout=1",
		),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := ServerConfig{ListenAddr: "127.0.0.1:9090", MaxTextBytes: 512, RequestTimeout: 5, ShutdownTimeout: 1}
	if cfg.Server != want {
		t.Errorf("Server = %+v; want %+v", cfg.Server, want)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("UTTGRAPH_LOG_LEVEL", "warn")
	t.Setenv("UTTGRAPH_PIPELINE_WORKERS", "5")
	t.Setenv("UTTGRAPH_PIPELINE_LEXICON_PATH", "/etc/uttgraph/lexicon.yaml")
	t.Setenv("UTTGRAPH_SERVER_LISTEN_ADDR", ":9999")

	cfg, err := Load(LoadOptions{
		Defaults: DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}

	if cfg.Pipeline.Workers != 5 {
		t.Errorf("Pipeline.Workers = %d; want 5", cfg.Pipeline.Workers)
	}

	if cfg.Pipeline.LexiconPath != "/etc/uttgraph/lexicon.yaml" {
		t.Errorf("Pipeline.LexiconPath = %q", cfg.Pipeline.LexiconPath)
	}

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":9999")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	cfgFile := writeConfig(t, "uttgraph.yaml", `
log_level: error
pipeline:
  workers: 16
  max_chunk_chars: 300
  cache_derived: false
`)

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}

	want := PipelineConfig{MaxChunkChars: 300, Workers: 16}
	if cfg.Pipeline != want {
		t.Errorf("Pipeline = %+v; want %+v", cfg.Pipeline, want)
	}
}

func TestLoad_FlagBeatsConfigFile(t *testing.T) {
	cfgFile := writeConfig(t, "uttgraph.yaml", "pipeline:\n  workers: 16\n")
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults, "--workers=4"),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pipeline.Workers != 4 {
		t.Errorf("Pipeline.Workers = %d; want 4", cfg.Pipeline.Workers)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	cfgFile := writeConfig(t, "bad.yaml", ":\t:bad yaml:::")

	_, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/uttgraph.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero workers", []string{"--workers=0"}},
		{"negative chunk size", []string{"--pipeline-max-chunk-chars=-1"}},
		{"zero text limit", []string{"--server-max-text-bytes=0"}},
		{"zero request timeout", []string{"--server-request-timeout=0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defaults := DefaultConfig()

			_, err := Load(LoadOptions{
				Cmd:      newFlagBinder(t, defaults, tt.args...),
				Defaults: defaults,
			})
			if err == nil {
				t.Error("Load() = nil; want validation error")
			}
		})
	}
}
