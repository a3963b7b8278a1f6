package legends

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Handle is an opaque reference to a buffer held by a Ledger.
// Handles are never reused, so a stale handle can always be told apart
// from a live one.
type Handle uint64

// NullHandle is never issued.
const NullHandle Handle = 0

// Ledger tracks issued buffers until they are released.
type Ledger struct {
	mu      sync.Mutex
	live    map[Handle][]byte
	next    Handle
	maxLive int
	closed  bool
	logger  *zap.Logger
}

// NewLedger creates a ledger holding at most maxLive buffers at once.
// A maxLive of zero means no limit.
func NewLedger(maxLive int, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		live:    make(map[Handle][]byte),
		next:    1,
		maxLive: maxLive,
		logger:  logger,
	}
}

// Issue takes ownership of data and returns a new handle for it.
func (l *Ledger) Issue(data []byte) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return NullHandle, fmt.Errorf("issue: %w", ErrClosed)
	}
	if l.maxLive > 0 && len(l.live) >= l.maxLive {
		return NullHandle, fmt.Errorf("ledger full (%d live buffers): %w", len(l.live), ErrOutOfMemory)
	}

	h := l.next
	l.next++
	l.live[h] = data
	l.logger.Debug("buffer issued", zap.Uint64("handle", uint64(h)), zap.Int("bytes", len(data)))
	return h, nil
}

// Lookup returns the data behind a live handle. The slice is borrowed and
// must not be used after the handle is released.
func (l *Ledger) Lookup(h Handle) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, ok := l.live[h]
	if !ok {
		return nil, l.invalid(h)
	}
	return data, nil
}

// Release frees a live handle. Releasing a handle twice, or one that was never
// issued, returns an error wrapping ErrInvalidHandle.
func (l *Ledger) Release(h Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.live[h]; !ok {
		err := l.invalid(h)
		l.logger.Warn("invalid release", zap.Uint64("handle", uint64(h)), zap.Error(err))
		return err
	}
	delete(l.live, h)
	l.logger.Debug("buffer released", zap.Uint64("handle", uint64(h)))
	return nil
}

// invalid builds the error for a handle that is not live. Caller holds l.mu.
func (l *Ledger) invalid(h Handle) error {
	switch {
	case h == NullHandle:
		return fmt.Errorf("null handle: %w", ErrInvalidHandle)
	case h < l.next:
		return fmt.Errorf("handle %d already released: %w", h, ErrInvalidHandle)
	default:
		return fmt.Errorf("handle %d was never issued: %w", h, ErrInvalidHandle)
	}
}

// Live returns the number of buffers not yet released.
func (l *Ledger) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live)
}

// Issued returns the total number of handles issued so far.
func (l *Ledger) Issued() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(l.next - 1)
}

// Outstanding returns the live handles in issue order.
func (l *Ledger) Outstanding() []Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outstanding()
}

// outstanding lists live handles in issue order. Caller holds l.mu.
func (l *Ledger) outstanding() []Handle {
	handles := make([]Handle, 0, len(l.live))
	for h := range l.live {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// Drain releases every live buffer and returns how many there were.
func (l *Ledger) Drain() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.live)
	for h := range l.live {
		delete(l.live, h)
	}
	return n
}

// Close releases every live buffer and returns their handles in issue order.
// Issue fails with ErrClosed afterwards; Lookup and Release keep working and
// report the dropped handles as released.
func (l *Ledger) Close() []Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	handles := l.outstanding()
	for _, h := range handles {
		delete(l.live, h)
	}
	l.closed = true
	return handles
}

// Buffer is a generated, NUL-terminated UTF-8 text owned by a Ledger until
// Free is called.
type Buffer struct {
	ledger *Ledger
	handle Handle
}

// Handle returns the ledger handle backing the buffer.
func (b *Buffer) Handle() Handle {
	return b.handle
}

// Bytes returns the content without its terminator.
func (b *Buffer) Bytes() ([]byte, error) {
	data, err := b.ledger.Lookup(b.handle)
	if err != nil {
		return nil, err
	}
	return data[:len(data)-1], nil
}

// CBytes returns the content including the trailing NUL.
func (b *Buffer) CBytes() ([]byte, error) {
	return b.ledger.Lookup(b.handle)
}

// Text returns a copy of the content as a string.
func (b *Buffer) Text() (string, error) {
	data, err := b.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Len returns the content length in bytes, excluding the terminator.
func (b *Buffer) Len() (int, error) {
	data, err := b.Bytes()
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// Free releases the buffer. A second call returns ErrInvalidHandle.
func (b *Buffer) Free() error {
	return b.ledger.Release(b.handle)
}
