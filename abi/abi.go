// Package abi implements the C calling conventions of the legendsof1f600
// shared library on top of package legends.
//
// The cgo layer in cmd/legendsof1f600 only converts pointers; every rule
// about ownership, NULL handling and error reporting lives here so it can be
// tested without cgo.
//
// # Memory Management
//
// theme_song_generate copies the song into memory obtained from an Allocator
// and returns that address. The address stays registered until
// theme_song_free is called with it, which releases both the copy and the
// underlying ledger handle. Freeing an unknown address is reported through
// LastError instead of corrupting memory.
package abi

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nathanjent/legendsof1f600/legends"
)

// Allocator provides memory the C caller can read directly.
type Allocator interface {
	// Alloc copies data into new memory and returns its address, or 0.
	Alloc(data []byte) uintptr
	// Free releases memory returned by Alloc.
	Free(p uintptr)
}

// Exports holds the state behind the exported C functions.
type Exports struct {
	lib    *legends.Library
	alloc  Allocator
	logger *zap.Logger

	mu         sync.Mutex
	pointers   map[uintptr]legends.Handle
	lastErr    error
	lastStatus legends.StatusCode
}

// New wraps lib for C callers.
func New(lib *legends.Library, alloc Allocator, logger *zap.Logger) *Exports {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exports{
		lib:      lib,
		alloc:    alloc,
		logger:   logger,
		pointers: make(map[uintptr]legends.Handle),
	}
}

func (e *Exports) setError(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	e.logger.Warn("call failed", zap.Error(err))
}

// LastError returns the message of the most recent failure, or "".
func (e *Exports) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastErr == nil {
		return ""
	}
	return e.lastErr.Error()
}

// Err returns the most recent failure.
func (e *Exports) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// ClearError forgets the most recent failure.
func (e *Exports) ClearError() {
	e.mu.Lock()
	e.lastErr = nil
	e.mu.Unlock()
}

// ThemeSongGenerate implements theme_song_generate. It returns 0 when the
// song cannot be produced.
func (e *Exports) ThemeSongGenerate(count uint8) uintptr {
	buf, err := e.lib.GenerateThemeSong(count)
	if err != nil {
		e.setError(err)
		return 0
	}
	data, err := buf.CBytes()
	if err != nil {
		e.setError(err)
		return 0
	}

	p := e.alloc.Alloc(data)
	if p == 0 {
		buf.Free()
		e.setError(fmt.Errorf("copying %d bytes: %w", len(data), legends.ErrOutOfMemory))
		return 0
	}

	e.mu.Lock()
	e.pointers[p] = buf.Handle()
	e.mu.Unlock()
	return p
}

// ThemeSongFree implements theme_song_free. A zero address is ignored, like
// free(NULL).
func (e *Exports) ThemeSongFree(p uintptr) {
	if p == 0 {
		return
	}

	e.mu.Lock()
	h, ok := e.pointers[p]
	if ok {
		delete(e.pointers, p)
	}
	e.mu.Unlock()

	if !ok {
		e.setError(fmt.Errorf("theme_song_free(%#x): %w", p, legends.ErrInvalidHandle))
		return
	}
	if err := e.lib.Release(h); err != nil {
		e.setError(err)
	}
	e.alloc.Free(p)
}

// HowManyCharacters implements how_many_characters. Malformed text counts as
// zero and sets the last error.
func (e *Exports) HowManyCharacters(text []byte) uint32 {
	n, err := legends.CountCharacters(text)
	if err != nil {
		e.setError(err)
		return 0
	}
	return n
}

// ProcessCommandStatus runs command and returns the callback's status.
// result is NUL-terminated and only valid during cb.
func (e *Exports) ProcessCommandStatus(command []byte, cb func(result []byte) uint8) uint8 {
	status := e.lib.ProcessCommand(string(command), func(r *legends.CommandResult) legends.StatusCode {
		if cb == nil {
			return legends.StatusOK
		}
		out := make([]byte, 0, len(r.Output)+1)
		out = append(out, r.Output...)
		return legends.StatusCode(cb(append(out, 0)))
	})

	e.mu.Lock()
	e.lastStatus = status
	e.mu.Unlock()
	return uint8(status)
}

// ProcessCommand implements process_command. The exported symbol returns
// void, so the status is dropped here; it stays readable via LastStatus.
func (e *Exports) ProcessCommand(command []byte, cb func(result []byte) uint8) {
	e.ProcessCommandStatus(command, cb)
}

// LastStatus returns the status of the most recent command.
func (e *Exports) LastStatus() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint8(e.lastStatus)
}

// Outstanding returns how many generated songs have not been freed.
func (e *Exports) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pointers)
}

// Shutdown frees every outstanding song and closes the library. It returns
// the number of songs the caller never freed.
func (e *Exports) Shutdown() int {
	e.mu.Lock()
	pointers := e.pointers
	e.pointers = make(map[uintptr]legends.Handle)
	e.mu.Unlock()

	for p := range pointers {
		e.alloc.Free(p)
	}
	leaked := e.lib.Close()
	if leaked > 0 {
		e.logger.Warn("songs never freed", zap.Int("count", leaked))
	}
	return leaked
}
