// Package config loads legendsof1f600 settings from YAML with environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nathanjent/legendsof1f600/legends"
)

// EnvPath names the variable holding the config file path.
const EnvPath = "LEGENDS_CONFIG"

// Config holds all library, logging and console settings.
type Config struct {
	Song    SongConfig    `yaml:"song"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Log     LogConfig     `yaml:"log"`
	Console ConsoleConfig `yaml:"console"`

	// Commands are extra verbs answered with fixed text.
	Commands map[string]string `yaml:"commands"`
}

// SongConfig configures theme song generation.
type SongConfig struct {
	Lyrics         []string `yaml:"lyrics"`
	Separator      string   `yaml:"separator" env:"LEGENDS_SONG_SEPARATOR"`
	NumberLines    bool     `yaml:"number_lines" env:"LEGENDS_NUMBER_LINES"`
	MaxBufferBytes int      `yaml:"max_buffer_bytes" env:"LEGENDS_MAX_BUFFER_BYTES"`
}

// LedgerConfig configures buffer tracking.
type LedgerConfig struct {
	MaxLive int `yaml:"max_live" env:"LEGENDS_MAX_LIVE"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" env:"LEGENDS_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"LEGENDS_LOG_DEVELOPMENT"`
}

// ConsoleConfig configures the interactive console.
type ConsoleConfig struct {
	MaxEntries     int  `yaml:"max_entries" env:"LEGENDS_CONSOLE_MAX_ENTRIES"`
	ShowTimestamps bool `yaml:"show_timestamps" env:"LEGENDS_CONSOLE_TIMESTAMPS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	song := legends.DefaultSongConfig()
	return &Config{
		Song: SongConfig{
			Lyrics:         song.Lyrics,
			Separator:      song.Separator,
			NumberLines:    song.NumberLines,
			MaxBufferBytes: song.MaxBufferBytes,
		},
		Ledger:   LedgerConfig{MaxLive: legends.DefaultMaxLive},
		Log:      LogConfig{Level: "info"},
		Console:  ConsoleConfig{MaxEntries: 1000},
		Commands: map[string]string{},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by LEGENDS_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvPath))
}

// Parse decodes YAML over the defaults and validates it. The environment is
// not consulted.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode rejects unknown keys. An empty document leaves cfg unchanged.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.librarySong().Validate(); err != nil {
		return fmt.Errorf("song: %w", errors.Join(ErrInvalid, err))
	}
	if c.Ledger.MaxLive < 0 {
		return fmt.Errorf("ledger.max_live=%d: %w", c.Ledger.MaxLive, ErrNegativeLimit)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level=%q: %w", c.Log.Level, ErrUnknownLevel)
	}
	if c.Console.MaxEntries <= 0 {
		return fmt.Errorf("console.max_entries=%d: %w", c.Console.MaxEntries, ErrNegativeLimit)
	}
	for verb, reply := range c.Commands {
		if _, err := legends.ParseCommand(verb); err != nil {
			return fmt.Errorf("commands.%s: %w", verb, ErrInvalidVerb)
		}
		if len(strings.Fields(verb)) != 1 {
			return fmt.Errorf("commands.%s must be a single word: %w", verb, ErrInvalidVerb)
		}
		if reply == "" {
			return fmt.Errorf("commands.%s: %w", verb, ErrEmptyReply)
		}
	}
	return nil
}

func (c *Config) librarySong() legends.SongConfig {
	return legends.SongConfig{
		Lyrics:         c.Song.Lyrics,
		Separator:      c.Song.Separator,
		NumberLines:    c.Song.NumberLines,
		MaxBufferBytes: c.Song.MaxBufferBytes,
	}
}

// LibraryOptions turns the configuration into legends options.
func (c *Config) LibraryOptions(logger *zap.Logger) []legends.Option {
	return []legends.Option{
		legends.WithLogger(logger),
		legends.WithSong(c.librarySong()),
		legends.WithMaxLive(c.Ledger.MaxLive),
		legends.WithReplies(c.Commands),
	}
}

// Build creates the logger described by the configuration.
func (l LogConfig) Build(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level=%q: %w", l.Level, ErrUnknownLevel)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
