package legends

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultSeparator joins song lines.
const DefaultSeparator = "\n"

// DefaultMaxBufferBytes caps a single generated buffer, terminator included.
const DefaultMaxBufferBytes = 1 << 20

// DefaultLyrics are cycled through when no lyrics are configured.
var DefaultLyrics = []string{
	"Legends of \U0001F600, grinning through the night",
	"Every tile a story, every wall a fight",
	"Step by step we wander where the map runs thin",
	"Type a command, brave one, and let the song begin",
	"Beep! goes the server, Hello goes the world",
	"Round and round the dungeon every banner is unfurled",
	"Count the characters, count them one by one",
	"Legends of \U0001F600, the legend's never done",
}

// SongConfig configures theme song generation.
type SongConfig struct {
	Lyrics         []string
	Separator      string
	NumberLines    bool
	MaxBufferBytes int
}

// DefaultSongConfig returns the built-in song configuration.
func DefaultSongConfig() SongConfig {
	return SongConfig{
		Lyrics:         append([]string(nil), DefaultLyrics...),
		Separator:      DefaultSeparator,
		MaxBufferBytes: DefaultMaxBufferBytes,
	}
}

// Validate checks that every count can be split back into its lines.
func (c SongConfig) Validate() error {
	if c.Separator == "" {
		return fmt.Errorf("song separator is empty: %w", ErrInvalidConfig)
	}
	if !utf8.ValidString(c.Separator) {
		return fmt.Errorf("song separator: %w", ErrInvalidEncoding)
	}
	if len(c.Lyrics) == 0 {
		return fmt.Errorf("song has no lyrics: %w", ErrInvalidConfig)
	}
	if c.MaxBufferBytes < 0 {
		return fmt.Errorf("max buffer bytes %d is negative: %w", c.MaxBufferBytes, ErrInvalidConfig)
	}
	for i, line := range c.Lyrics {
		if line == "" {
			return fmt.Errorf("lyric %d is empty: %w", i, ErrInvalidConfig)
		}
		if !utf8.ValidString(line) {
			return fmt.Errorf("lyric %d: %w", i, ErrInvalidEncoding)
		}
		if strings.Contains(line, c.Separator) || strings.ContainsRune(line, 0) {
			return fmt.Errorf("lyric %d contains the separator or a NUL: %w", i, ErrInvalidConfig)
		}
	}
	return nil
}

// composer assembles theme songs. It holds no per-call state.
type composer struct {
	cfg SongConfig
}

func newComposer(cfg SongConfig) (*composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Lyrics = append([]string(nil), cfg.Lyrics...)
	c := &composer{cfg: cfg}
	if cfg.NumberLines {
		for i := 0; i < 255; i++ {
			if strings.Contains(c.line(i), cfg.Separator) {
				return nil, fmt.Errorf("numbered line %d contains the separator: %w", i+1, ErrInvalidConfig)
			}
		}
	}
	return c, nil
}

// line returns segment i.
func (c *composer) line(i int) string {
	text := c.cfg.Lyrics[i%len(c.cfg.Lyrics)]
	if c.cfg.NumberLines {
		return strconv.Itoa(i+1) + ". " + text
	}
	return text
}

// size returns the buffer size for count lines, terminator included.
func (c *composer) size(count int) int {
	n := 1
	for i := 0; i < count; i++ {
		if i > 0 {
			n += len(c.cfg.Separator)
		}
		n += len(c.line(i))
	}
	return n
}

// compose returns count lines joined by the separator, NUL-terminated.
// Nothing is allocated when the result would exceed the size limit.
func (c *composer) compose(count uint8) ([]byte, error) {
	n := int(count)
	size := c.size(n)
	if c.cfg.MaxBufferBytes > 0 && size > c.cfg.MaxBufferBytes {
		return nil, fmt.Errorf("theme song of %d lines needs %d bytes, limit %d: %w",
			n, size, c.cfg.MaxBufferBytes, ErrOutOfMemory)
	}

	buf := make([]byte, 0, size)
	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, c.cfg.Separator...)
		}
		buf = append(buf, c.line(i)...)
	}
	return append(buf, 0), nil
}

// SplitSegments splits generated content back into its lines.
// Empty content has zero lines.
func SplitSegments(content, sep string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, sep)
}
