// Package legends implements the legendsof1f600 command and content library.
//
// A Library generates theme songs into ledger-tracked buffers, counts the
// characters in UTF-8 text, and dispatches text commands to a caller-supplied
// callback.
//
// # Memory Management
//
// Buffers returned by GenerateThemeSong are owned by the Library until they
// are released with Buffer.Free or Library.Release. Each buffer must be
// released exactly once. Unlike a native library, misuse is reported:
// reading or releasing a buffer after release returns ErrInvalidHandle.
// Close releases anything still outstanding and reports how many buffers
// leaked.
//
// # Thread Safety
//
// A Library is safe for concurrent use. Callbacks run on the calling
// goroutine and may call back into the Library.
//
// # Example
//
//	lib, err := legends.New()
//	if err != nil {
//	    return err
//	}
//	defer lib.Close()
//
//	song, err := lib.GenerateThemeSong(8)
//	if err != nil {
//	    return err
//	}
//	text, _ := song.Text()
//	fmt.Println(text)
//	song.Free()
//
//	status := lib.ProcessCommand("beep", func(r *legends.CommandResult) legends.StatusCode {
//	    fmt.Println(r.Output)
//	    return legends.StatusOK
//	})
package legends

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Version is the library version.
const Version = "0.2.0"

// DefaultMaxLive bounds the number of unreleased buffers.
const DefaultMaxLive = 4096

// Library is one independent instance of the library. The zero value is not
// usable; call New.
type Library struct {
	composer   *composer
	ledger     *Ledger
	dispatcher *dispatcher
	logger     *zap.Logger
	closed     atomic.Bool
}

type options struct {
	song     SongConfig
	maxLive  int
	logger   *zap.Logger
	commands CommandTable
	replies  map[string]string
	defaults bool
}

// Option configures a Library.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSong replaces the whole song configuration.
func WithSong(cfg SongConfig) Option {
	return func(o *options) {
		o.song = cfg
	}
}

// WithLyrics sets the lines the theme song cycles through.
func WithLyrics(lines ...string) Option {
	return func(o *options) {
		o.song.Lyrics = lines
	}
}

// WithSeparator sets the string placed between song lines.
func WithSeparator(sep string) Option {
	return func(o *options) {
		o.song.Separator = sep
	}
}

// WithNumberedLines prefixes every song line with its number.
func WithNumberedLines(number bool) Option {
	return func(o *options) {
		o.song.NumberLines = number
	}
}

// WithMaxBufferBytes caps the size of a generated buffer. Zero disables the cap.
func WithMaxBufferBytes(n int) Option {
	return func(o *options) {
		o.song.MaxBufferBytes = n
	}
}

// WithMaxLive caps the number of unreleased buffers. Zero disables the cap.
func WithMaxLive(n int) Option {
	return func(o *options) {
		o.maxLive = n
	}
}

// WithCommands adds handlers on top of the built-in vocabulary.
func WithCommands(table CommandTable) Option {
	return func(o *options) {
		for verb, h := range table {
			o.commands.Register(verb, h)
		}
	}
}

// WithReplies adds verbs that answer with fixed text. A reply shadows a
// handler registered for the same verb.
func WithReplies(replies map[string]string) Option {
	return func(o *options) {
		for verb, text := range replies {
			o.replies[verb] = text
		}
	}
}

// WithoutBuiltins starts from an empty command table.
func WithoutBuiltins() Option {
	return func(o *options) {
		o.defaults = false
	}
}

// New creates a Library.
func New(opts ...Option) (*Library, error) {
	o := options{
		song:     DefaultSongConfig(),
		maxLive:  DefaultMaxLive,
		commands: CommandTable{},
		replies:  map[string]string{},
		defaults: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.maxLive < 0 {
		return nil, fmt.Errorf("max live buffers %d is negative: %w", o.maxLive, ErrInvalidConfig)
	}

	c, err := newComposer(o.song)
	if err != nil {
		return nil, err
	}

	lib := &Library{
		composer: c,
		ledger:   NewLedger(o.maxLive, o.logger.Named("ledger")),
		logger:   o.logger,
	}
	handlers := CommandTable{}
	if o.defaults {
		handlers = lib.Builtins()
	}
	for verb, h := range o.commands {
		handlers.Register(verb, h)
	}
	lib.dispatcher = newDispatcher(handlers, normalizeReplies(o.replies), o.logger.Named("dispatch"))
	return lib, nil
}

// normalizeReplies copies replies with lower-case verbs.
func normalizeReplies(replies map[string]string) map[string]string {
	out := make(map[string]string, len(replies))
	for verb, text := range replies {
		out[strings.ToLower(verb)] = text
	}
	return out
}

// GenerateThemeSong returns a buffer holding count song lines.
// A count of zero yields an empty, still allocated buffer.
func (l *Library) GenerateThemeSong(count uint8) (*Buffer, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	data, err := l.composer.compose(count)
	if err != nil {
		return nil, err
	}
	h, err := l.ledger.Issue(data)
	if err != nil {
		return nil, err
	}
	return &Buffer{ledger: l.ledger, handle: h}, nil
}

// Buffer returns the live buffer for h.
func (l *Library) Buffer(h Handle) (*Buffer, error) {
	if _, err := l.ledger.Lookup(h); err != nil {
		return nil, err
	}
	return &Buffer{ledger: l.ledger, handle: h}, nil
}

// Release frees the buffer behind h.
func (l *Library) Release(h Handle) error {
	return l.ledger.Release(h)
}

// CountCharacters counts the Unicode scalar values in text.
func (l *Library) CountCharacters(text []byte) (uint32, error) {
	return CountCharacters(text)
}

// ProcessCommand runs command and passes the result to cb, returning the
// status cb returns. cb is called exactly once, even for unknown or
// malformed commands. A nil cb counts as returning StatusOK.
func (l *Library) ProcessCommand(command string, cb Callback) StatusCode {
	if cb == nil {
		return l.Dispatch(command, nil)
	}
	return l.Dispatch(command, cb)
}

// Dispatch is ProcessCommand for a Receiver.
func (l *Library) Dispatch(command string, recv Receiver) StatusCode {
	if l.closed.Load() {
		result := CommandResult{
			Command: command,
			Code:    ResultFailed,
			Err:     ErrClosed,
			Output:  ErrClosed.Error(),
		}
		if recv == nil {
			return StatusOK
		}
		return recv.Receive(&result)
	}
	return l.dispatcher.dispatch(command, recv)
}

// Commands returns a copy of the current command table, static replies
// included.
func (l *Library) Commands() CommandTable {
	return l.dispatcher.snapshot().Clone()
}

// Handlers returns a copy of the handler table without the static replies.
func (l *Library) Handlers() CommandTable {
	return l.dispatcher.handlerTable().Clone()
}

// SetCommandTable swaps the handler table. The static replies stay layered
// on top; pass a table from Handlers to edit without freezing them in.
// Calls already in flight keep the table they started with.
func (l *Library) SetCommandTable(table CommandTable) {
	l.dispatcher.setHandlers(table.Clone())
}

// SetReplies replaces the static replies, keeping the current handler
// table, including one installed with SetCommandTable.
func (l *Library) SetReplies(replies map[string]string) {
	l.dispatcher.setReplies(normalizeReplies(replies))
	l.logger.Debug("replies updated", zap.Int("count", len(replies)))
}

// Stats describes ledger usage.
type Stats struct {
	Live   int
	Issued uint64
}

// Stats returns the current ledger usage.
func (l *Library) Stats() Stats {
	return Stats{Live: l.ledger.Live(), Issued: l.ledger.Issued()}
}

// Close releases outstanding buffers and returns how many were leaked.
// Calling Close more than once is safe and returns zero after the first call.
func (l *Library) Close() int {
	if !l.closed.CompareAndSwap(false, true) {
		return 0
	}
	leaked := l.ledger.Close()
	if len(leaked) > 0 {
		ids := make([]string, len(leaked))
		for i, h := range leaked {
			ids[i] = strconv.FormatUint(uint64(h), 10)
		}
		l.logger.Warn("buffers leaked at close", zap.Int("count", len(leaked)), zap.Strings("handles", ids))
	}
	return len(leaked)
}
