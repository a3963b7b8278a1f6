package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/nathanjent/legendsof1f600/legends"
)

const sampleYAML = `
song:
  lyrics:
    - "Legends of \U0001F600"
    - "never done"
  separator: " | "
  number_lines: true
ledger:
  max_live: 16
log:
  level: debug
console:
  max_entries: 50
  show_timestamps: true
commands:
  holla: "back at you"
`

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, legends.DefaultLyrics, cfg.Song.Lyrics)
	assert.Equal(t, "\n", cfg.Song.Separator)
	assert.Equal(t, legends.DefaultMaxLive, cfg.Ledger.MaxLive)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"Legends of \U0001F600", "never done"}, cfg.Song.Lyrics)
	assert.Equal(t, " | ", cfg.Song.Separator)
	assert.True(t, cfg.Song.NumberLines)
	assert.Equal(t, legends.DefaultMaxBufferBytes, cfg.Song.MaxBufferBytes, "unset keys keep defaults")
	assert.Equal(t, 16, cfg.Ledger.MaxLive)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Console.MaxEntries)
	assert.True(t, cfg.Console.ShowTimestamps)
	assert.Equal(t, map[string]string{"holla": "back at you"}, cfg.Commands)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("song:\n  lyricz: [a]\n"))
	require.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want error
	}{
		{"empty separator", "song:\n  separator: \"\"\n", ErrInvalid},
		{"separator inside lyric", "song:\n  lyrics: [\"a,b\"]\n  separator: \",\"\n", legends.ErrInvalidConfig},
		{"negative max live", "ledger:\n  max_live: -1\n", ErrNegativeLimit},
		{"bad level", "log:\n  level: loud\n", ErrUnknownLevel},
		{"zero console entries", "console:\n  max_entries: 0\n", ErrNegativeLimit},
		{"two word verb", "commands:\n  \"holla back\": hi\n", ErrInvalidVerb},
		{"empty verb", "commands:\n  \"\": hi\n", ErrInvalidVerb},
		{"empty reply", "commands:\n  holla: \"\"\n", ErrEmptyReply},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legends.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	t.Setenv("LEGENDS_LOG_LEVEL", "warn")
	t.Setenv("LEGENDS_MAX_LIVE", "3")
	t.Setenv("LEGENDS_CONSOLE_TIMESTAMPS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Ledger.MaxLive)
	assert.False(t, cfg.Console.ShowTimestamps)
	assert.Equal(t, " | ", cfg.Song.Separator, "file values survive when env is unset")
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legends.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  max_live: 9\n"), 0o644))
	t.Setenv(EnvPath, path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Ledger.MaxLive)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLibraryOptions(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	logger, err := cfg.Log.Build(false)
	require.NoError(t, err)

	lib, err := legends.New(cfg.LibraryOptions(logger)...)
	require.NoError(t, err)
	defer lib.Close()

	buf, err := lib.GenerateThemeSong(3)
	require.NoError(t, err)
	text, err := buf.Text()
	require.NoError(t, err)
	assert.Equal(t, "1. Legends of \U0001F600 | 2. never done | 3. Legends of \U0001F600", text)
	require.NoError(t, buf.Free())

	var out string
	lib.ProcessCommand("Holla back!", func(r *legends.CommandResult) legends.StatusCode {
		out = r.Output
		return legends.StatusOK
	})
	assert.Equal(t, "back at you", out)
}

func TestLogBuild(t *testing.T) {
	logger, err := LogConfig{Level: "warn"}.Build(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = LogConfig{Level: "warn", Development: true}.Build(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = LogConfig{Level: "nope"}.Build(false)
	assert.True(t, errors.Is(err, ErrUnknownLevel))
}

func TestWatcherReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "legends.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  max_live: 1\n"), 0o644))

	changes := make(chan *Config, 16)
	w, err := NewWatcher(path, nil, func(cfg *Config) { changes <- cfg })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  max_live: 7\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			// A truncating write can surface the empty file first.
			if cfg.Ledger.MaxLive == 7 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "legends.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w, err := NewWatcher(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}
