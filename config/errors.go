package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalid wraps library-level validation failures.
	ErrInvalid = errors.New("invalid configuration")

	// ErrNegativeLimit is returned when a size or count limit is out of range.
	ErrNegativeLimit = errors.New("limit out of range")

	// ErrUnknownLevel is returned for a log level zap does not know.
	ErrUnknownLevel = errors.New("unknown log level")

	// ErrInvalidVerb is returned when a command verb is empty, spans several
	// words, or is not valid UTF-8.
	ErrInvalidVerb = errors.New("invalid command verb")

	// ErrEmptyReply is returned when a command has no reply text.
	ErrEmptyReply = errors.New("command reply is empty")
)
