package legends

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library. Wrapped errors can be matched with
// errors.Is.
var (
	// ErrOutOfMemory is returned when a buffer cannot be issued, either because
	// it would exceed the configured size limit or the ledger is full.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidHandle is returned when a handle was never issued or has
	// already been released.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrInvalidEncoding is returned for text that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid UTF-8 encoding")

	// ErrUnknownCommand marks a command result whose verb has no handler.
	// It is only ever carried inside a CommandResult, never returned.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrTextTooLong is returned when a character count does not fit in 32 bits.
	ErrTextTooLong = errors.New("text too long")

	// ErrClosed is returned by operations on a closed Library.
	ErrClosed = errors.New("library closed")

	// ErrInvalidConfig is returned by New when an option is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// EncodingError reports the byte offset of the first malformed sequence.
type EncodingError struct {
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 encoding at byte %d", e.Offset)
}

// Unwrap lets errors.Is match ErrInvalidEncoding.
func (e *EncodingError) Unwrap() error {
	return ErrInvalidEncoding
}
