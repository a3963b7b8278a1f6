// Command legendsof1f600 builds the C shared library:
//
//	go build -buildmode=c-shared -o liblegendsof1f600.so ./cmd/legendsof1f600
//
// Strings returned by theme_song_generate must be released with
// theme_song_free. Strings returned by legends_last_error and
// legends_version must be released with legends_string_free.
package main

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

typedef uint8_t (*legends_callback)(const char*);

static inline uint8_t legends_invoke(legends_callback cb, const char* result) {
	return cb(result);
}
*/
import "C"

import (
	"unsafe"

	"github.com/nathanjent/legendsof1f600/abi"
	"github.com/nathanjent/legendsof1f600/legends"
)

// cAllocator hands out malloc'd memory so C callers can read it directly.
type cAllocator struct{}

func (cAllocator) Alloc(data []byte) uintptr {
	p := C.malloc(C.size_t(len(data)))
	if p == nil {
		return 0
	}
	C.memcpy(p, unsafe.Pointer(&data[0]), C.size_t(len(data)))
	return uintptr(p)
}

func (cAllocator) Free(p uintptr) {
	C.free(unsafe.Pointer(p))
}

func exports() (*abi.Exports, error) {
	return abi.Init(cAllocator{})
}

//export theme_song_generate
func theme_song_generate(count C.uint8_t) *C.char {
	e, err := exports()
	if err != nil {
		return nil
	}
	return (*C.char)(unsafe.Pointer(e.ThemeSongGenerate(uint8(count))))
}

//export theme_song_free
func theme_song_free(song *C.char) {
	e, err := exports()
	if err != nil {
		return
	}
	e.ThemeSongFree(uintptr(unsafe.Pointer(song)))
}

//export how_many_characters
func how_many_characters(text *C.char) C.uint32_t {
	e, err := exports()
	if err != nil || text == nil {
		return 0
	}
	return C.uint32_t(e.HowManyCharacters([]byte(C.GoString(text))))
}

//export process_command
func process_command(command *C.char, cb C.legends_callback) {
	e, err := exports()
	if err != nil {
		return
	}
	e.ProcessCommand(goBytes(command), callback(cb))
}

//export process_command_status
func process_command_status(command *C.char, cb C.legends_callback) C.uint8_t {
	e, err := exports()
	if err != nil {
		return C.uint8_t(legends.ResultFailed)
	}
	return C.uint8_t(e.ProcessCommandStatus(goBytes(command), callback(cb)))
}

//export legends_last_error
func legends_last_error() *C.char {
	e, err := exports()
	if err != nil {
		return C.CString(err.Error())
	}
	msg := e.LastError()
	if msg == "" {
		return nil
	}
	return C.CString(msg)
}

//export legends_has_error
func legends_has_error() C.int {
	e, err := exports()
	if err != nil || e.Err() != nil {
		return 1
	}
	return 0
}

//export legends_clear_error
func legends_clear_error() {
	if e, err := exports(); err == nil {
		e.ClearError()
	}
}

//export legends_version
func legends_version() *C.char {
	return C.CString(legends.Version)
}

//export legends_string_free
func legends_string_free(s *C.char) {
	C.free(unsafe.Pointer(s))
}

//export legends_shutdown
func legends_shutdown() C.int {
	e, err := exports()
	if err != nil {
		return 0
	}
	return C.int(e.Shutdown())
}

func goBytes(s *C.char) []byte {
	if s == nil {
		return nil
	}
	return []byte(C.GoString(s))
}

// callback adapts a C function pointer. The result string is copied into C
// memory for the duration of the call.
func callback(cb C.legends_callback) func([]byte) uint8 {
	if cb == nil {
		return nil
	}
	return func(result []byte) uint8 {
		cs := C.CBytes(result)
		defer C.free(cs)
		return uint8(C.legends_invoke(cb, (*C.char)(cs)))
	}
}

func main() {}
