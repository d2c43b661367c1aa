package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   ServerConfig   `mapstructure:"server"`
}

type PipelineConfig struct {
	LexiconPath   string `mapstructure:"lexicon_path"`
	MaxChunkChars int    `mapstructure:"max_chunk_chars"`
	Workers       int    `mapstructure:"workers"`
	CacheDerived  bool   `mapstructure:"cache_derived"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Pipeline: PipelineConfig{
			LexiconPath:   "",
			MaxChunkChars: 0,
			Workers:       2,
			CacheDerived:  true,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			MaxTextBytes:    4096,
			RequestTimeout:  60,
			ShutdownTimeout: 30,
		},
	}
}

// flagKeys maps each command-line flag to the config key it sets. Aliases
// come after their canonical flag.
var flagKeys = []struct {
	flag, key string
	alias     bool
}{
	{"log-level", "log_level", false},
	{"pipeline-lexicon-path", "pipeline.lexicon_path", false},
	{"pipeline-max-chunk-chars", "pipeline.max_chunk_chars", false},
	{"pipeline-workers", "pipeline.workers", false},
	{"pipeline-cache-derived", "pipeline.cache_derived", false},
	{"server-listen-addr", "server.listen_addr", false},
	{"server-max-text-bytes", "server.max_text_bytes", false},
	{"server-request-timeout", "server.request_timeout", false},
	{"server-shutdown-timeout", "server.shutdown_timeout", false},
	{"lexicon", "pipeline.lexicon_path", true},
	{"workers", "pipeline.workers", true},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("pipeline-lexicon-path", defaults.Pipeline.LexiconPath, "Path to a YAML pronunciation lexicon")
	fs.String("lexicon", defaults.Pipeline.LexiconPath, "Path to a YAML pronunciation lexicon (alias for --pipeline-lexicon-path)")
	fs.Int("pipeline-max-chunk-chars", defaults.Pipeline.MaxChunkChars, "Split input into utterances of at most this many characters (0 = no split)")
	fs.Int("pipeline-workers", defaults.Pipeline.Workers, "Max utterances built concurrently")
	fs.Int("workers", defaults.Pipeline.Workers, "Max utterances built concurrently (alias for --pipeline-workers)")
	fs.Bool("pipeline-cache-derived", defaults.Pipeline.CacheDerived, "Memoize derived relations")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Max request text size in bytes")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request build timeout in seconds")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("UTTGRAPH")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("uttgraph")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects values no command can run with.
func (c Config) Validate() error {
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.MaxChunkChars < 0 {
		return fmt.Errorf("pipeline.max_chunk_chars must not be negative, got %d", c.Pipeline.MaxChunkChars)
	}
	if c.Server.MaxTextBytes < 1 {
		return fmt.Errorf("server.max_text_bytes must be at least 1, got %d", c.Server.MaxTextBytes)
	}
	if c.Server.RequestTimeout < 1 {
		return fmt.Errorf("server.request_timeout must be at least 1, got %d", c.Server.RequestTimeout)
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("pipeline.lexicon_path", c.Pipeline.LexiconPath)
	v.SetDefault("pipeline.max_chunk_chars", c.Pipeline.MaxChunkChars)
	v.SetDefault("pipeline.workers", c.Pipeline.Workers)
	v.SetDefault("pipeline.cache_derived", c.Pipeline.CacheDerived)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
}

// bindFlags binds every registered flag to its config key. An alias flag is
// bound only when it was set, so it cannot shadow the canonical flag.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}
		if fk.alias && !f.Changed {
			continue
		}
		if err := v.BindPFlag(fk.key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", fk.flag, err)
		}
	}
	return nil
}
