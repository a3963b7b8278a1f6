package legends

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGenerateEveryCount(t *testing.T) {
	lib, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer lib.Close()

	for i := 0; i <= 255; i++ {
		count := uint8(i)
		buf, err := lib.GenerateThemeSong(count)
		if err != nil {
			t.Fatalf("GenerateThemeSong(%d) failed: %v", count, err)
		}
		text, err := buf.Text()
		if err != nil {
			t.Fatalf("Text(%d) failed: %v", count, err)
		}
		if got := len(SplitSegments(text, DefaultSeparator)); got != i {
			t.Errorf("GenerateThemeSong(%d) produced %d lines", count, got)
		}
		if err := buf.Free(); err != nil {
			t.Errorf("Free(%d) failed: %v", count, err)
		}
		if err := buf.Free(); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("second Free(%d): expected ErrInvalidHandle, got %v", count, err)
		}
	}

	if leaked := lib.Close(); leaked != 0 {
		t.Errorf("Expected no leaks, got %d", leaked)
	}
}

func TestGenerateZero(t *testing.T) {
	lib, _ := New()
	defer lib.Close()

	buf, err := lib.GenerateThemeSong(0)
	if err != nil {
		t.Fatalf("GenerateThemeSong(0) failed: %v", err)
	}
	if buf == nil || buf.Handle() == NullHandle {
		t.Fatal("GenerateThemeSong(0) should return an allocated buffer")
	}
	n, _ := buf.Len()
	if n != 0 {
		t.Errorf("Expected empty content, got %d bytes", n)
	}
	raw, _ := buf.CBytes()
	if diff := cmp.Diff([]byte{0}, raw); diff != "" {
		t.Errorf("CBytes mismatch (-want +got):\n%s", diff)
	}
	buf.Free()
}

func TestGenerateCyclesLyrics(t *testing.T) {
	lib, _ := New()
	defer lib.Close()

	buf, _ := lib.GenerateThemeSong(uint8(len(DefaultLyrics) + 1))
	defer buf.Free()

	text, _ := buf.Text()
	lines := SplitSegments(text, DefaultSeparator)
	if diff := cmp.Diff(DefaultLyrics, lines[:len(DefaultLyrics)]); diff != "" {
		t.Errorf("lyrics mismatch (-want +got):\n%s", diff)
	}
	if lines[len(DefaultLyrics)] != DefaultLyrics[0] {
		t.Errorf("expected the song to wrap around, got %q", lines[len(DefaultLyrics)])
	}
}

func TestGenerateCustomSong(t *testing.T) {
	lib, err := New(
		WithLyrics("la", "di", "da"),
		WithSeparator(" / "),
		WithNumberedLines(true),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer lib.Close()

	buf, _ := lib.GenerateThemeSong(4)
	defer buf.Free()

	text, _ := buf.Text()
	if text != "1. la / 2. di / 3. da / 4. la" {
		t.Errorf("unexpected song: %q", text)
	}
}

func TestGenerateOutOfMemory(t *testing.T) {
	lib, _ := New(WithLyrics("0123456789"), WithMaxBufferBytes(32))
	defer lib.Close()

	// Two lines plus separator and NUL fit in 22 bytes; three need 33.
	buf, err := lib.GenerateThemeSong(2)
	if err != nil {
		t.Fatalf("GenerateThemeSong(2) failed: %v", err)
	}
	buf.Free()

	buf, err = lib.GenerateThemeSong(3)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
	if buf != nil {
		t.Error("failed generation must not return a buffer")
	}
	if lib.Stats().Live != 0 {
		t.Errorf("failed generation left %d live buffers", lib.Stats().Live)
	}
}

func TestGenerateLedgerFull(t *testing.T) {
	lib, _ := New(WithMaxLive(1))
	defer lib.Close()

	first, err := lib.GenerateThemeSong(1)
	if err != nil {
		t.Fatalf("first generate failed: %v", err)
	}
	if _, err := lib.GenerateThemeSong(1); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("expected ErrOutOfMemory, got %v", err)
	}
	first.Free()
}

func TestSongConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
	}{
		{"empty separator", []Option{WithSeparator("")}},
		{"no lyrics", []Option{WithLyrics()}},
		{"empty lyric", []Option{WithLyrics("ok", "")}},
		{"lyric with separator", []Option{WithLyrics("one\ntwo")}},
		{"lyric with NUL", []Option{WithLyrics("a\x00b")}},
		{"numbering collides", []Option{WithSeparator("."), WithNumberedLines(true)}},
		{"negative size", []Option{WithMaxBufferBytes(-1)}},
		{"negative live", []Option{WithMaxLive(-1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opts...)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := New(WithLyrics("bad \xff")); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("expected ErrInvalidEncoding for malformed lyric, got %v", err)
	}
}

func TestSplitSegments(t *testing.T) {
	if got := SplitSegments("", "\n"); len(got) != 0 {
		t.Errorf("empty content should have no lines, got %v", got)
	}
	got := SplitSegments("a\nb", "\n")
	if strings.Join(got, "|") != "a|b" {
		t.Errorf("unexpected split: %v", got)
	}
}
