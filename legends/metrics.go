package legends

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// CountCharacters returns the number of Unicode scalar values in text.
//
// Text is read up to the first NUL byte or the end of the slice, whichever
// comes first. Malformed UTF-8, including a multi-byte sequence cut short by
// either bound, returns an *EncodingError.
func CountCharacters(text []byte) (uint32, error) {
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	return countScalars(string(text))
}

// CountString is CountCharacters for a Go string.
func CountString(s string) (uint32, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return countScalars(s)
}

func countScalars(s string) (uint32, error) {
	n, bad := scanText(s)
	if bad >= 0 {
		return 0, &EncodingError{Offset: bad}
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%d characters: %w", n, ErrTextTooLong)
	}
	return uint32(n), nil
}

// scanText counts the scalar values in s. bad is the byte offset of the
// first malformed sequence, or -1 when s is valid UTF-8.
func scanText(s string) (n uint64, bad int) {
	for off := 0; off < len(s); {
		r, size := utf8.DecodeRuneInString(s[off:])
		if r == utf8.RuneError && size <= 1 {
			return n, off
		}
		off += size
		n++
	}
	return n, -1
}

// CountNormalized counts scalar values after NFC normalization, so a base
// letter followed by a combining accent counts once when a precomposed form
// exists.
func CountNormalized(text []byte) (uint32, error) {
	text, err := validText(text)
	if err != nil {
		return 0, err
	}
	return CountCharacters(norm.NFC.Bytes(text))
}

// CountGraphemes returns the number of user-perceived characters.
func CountGraphemes(text []byte) (int, error) {
	text, err := validText(text)
	if err != nil {
		return 0, err
	}
	return uniseg.GraphemeClusterCount(string(text)), nil
}

// DisplayWidth returns the number of terminal cells s occupies.
func DisplayWidth(s string) int {
	return uniseg.StringWidth(s)
}

// TruncateWidth shortens s to at most width cells, ending with tail when cut.
// Grapheme clusters are never split.
func TruncateWidth(s string, width int, tail string) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}
	if width <= 0 {
		return ""
	}
	limit := width - uniseg.StringWidth(tail)
	if limit <= 0 {
		// No room for any of s; the tail itself is clipped to fit.
		return TruncateWidth(tail, width, "")
	}

	var out []byte
	used := 0
	state := -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		var w int
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > limit {
			break
		}
		out = append(out, cluster...)
		used += w
	}
	return string(out) + tail
}

// validText bounds text at its terminator and rejects malformed UTF-8.
func validText(text []byte) ([]byte, error) {
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	if !utf8.Valid(text) {
		_, bad := scanText(string(text))
		return nil, &EncodingError{Offset: bad}
	}
	return text, nil
}
