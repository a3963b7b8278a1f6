package legends

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// StatusCode is the value a callback hands back to the dispatcher.
type StatusCode uint8

// StatusOK is the conventional success status.
const StatusOK StatusCode = 0

// ResultCode classifies a CommandResult.
type ResultCode int

const (
	ResultOK ResultCode = iota
	ResultUnknownCommand
	ResultParseError
	ResultFailed
)

func (c ResultCode) String() string {
	switch c {
	case ResultOK:
		return "ok"
	case ResultUnknownCommand:
		return "unknown_command"
	case ResultParseError:
		return "parse_error"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// errEmptyCommand is reported for blank input.
var errEmptyCommand = errors.New("empty command")

// CommandResult describes the outcome of one command. A callback receives a
// pointer that is only valid until it returns; copy anything it needs to keep.
type CommandResult struct {
	Command string
	Verb    string
	Args    []string
	Output  string
	Code    ResultCode
	Err     error
}

// OK reports whether the command ran successfully.
func (r *CommandResult) OK() bool {
	return r.Code == ResultOK
}

// Callback receives the result of a dispatched command.
type Callback func(result *CommandResult) StatusCode

// Receive implements Receiver. A nil Callback returns StatusOK.
func (f Callback) Receive(result *CommandResult) StatusCode {
	if f == nil {
		return StatusOK
	}
	return f(result)
}

// Receiver is the single-method form of Callback.
type Receiver interface {
	Receive(result *CommandResult) StatusCode
}

// Request is a parsed command. Rest is the input after the verb with its
// original spacing.
type Request struct {
	Raw  string
	Verb string
	Args []string
	Rest string
}

// Handler executes one verb.
type Handler interface {
	Handle(req Request) (string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req Request) (string, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(req Request) (string, error) {
	return f(req)
}

// StaticReply returns a handler that always answers text.
func StaticReply(text string) Handler {
	return HandlerFunc(func(Request) (string, error) {
		return text, nil
	})
}

// CommandTable maps lower-case verbs to handlers.
type CommandTable map[string]Handler

// Register adds or replaces the handler for verb.
func (t CommandTable) Register(verb string, h Handler) {
	t[strings.ToLower(verb)] = h
}

// Lookup finds the handler for verb, ignoring case.
func (t CommandTable) Lookup(verb string) (Handler, bool) {
	h, ok := t[strings.ToLower(verb)]
	return h, ok
}

// Verbs returns the registered verbs in sorted order.
func (t CommandTable) Verbs() []string {
	verbs := make([]string, 0, len(t))
	for v := range t {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

// Clone returns a shallow copy of the table.
func (t CommandTable) Clone() CommandTable {
	c := make(CommandTable, len(t))
	for v, h := range t {
		c[v] = h
	}
	return c
}

// ParseCommand splits a command into its verb and arguments.
func ParseCommand(command string) (Request, error) {
	if !utf8.ValidString(command) {
		_, bad := scanText(command)
		return Request{Raw: command}, &EncodingError{Offset: bad}
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Request{Raw: command}, errEmptyCommand
	}
	trimmed := strings.TrimSpace(command)
	return Request{
		Raw:  command,
		Verb: strings.ToLower(fields[0]),
		Args: fields[1:],
		Rest: strings.TrimLeftFunc(trimmed[len(fields[0]):], unicode.IsSpace),
	}, nil
}

// dispatcher resolves commands against swappable handlers with static
// replies layered on top. A reply shadows a handler with the same verb.
type dispatcher struct {
	mu       sync.RWMutex
	handlers CommandTable
	replies  map[string]string
	table    CommandTable
	logger   *zap.Logger
}

func newDispatcher(handlers CommandTable, replies map[string]string, logger *zap.Logger) *dispatcher {
	d := &dispatcher{handlers: handlers, replies: replies, logger: logger}
	d.table = d.merge()
	return d
}

// merge builds the effective table. Caller holds d.mu or owns d.
func (d *dispatcher) merge() CommandTable {
	table := d.handlers.Clone()
	for verb, text := range d.replies {
		table.Register(verb, StaticReply(text))
	}
	return table
}

func (d *dispatcher) setHandlers(handlers CommandTable) {
	d.mu.Lock()
	d.handlers = handlers
	d.table = d.merge()
	d.mu.Unlock()
}

func (d *dispatcher) setReplies(replies map[string]string) {
	d.mu.Lock()
	d.replies = replies
	d.table = d.merge()
	d.mu.Unlock()
}

// handlerTable returns the handlers without the reply layer.
func (d *dispatcher) handlerTable() CommandTable {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers
}

func (d *dispatcher) snapshot() CommandTable {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.table
}

// resolve runs the command and describes the outcome. It never fails; every
// problem is encoded in the result.
func (d *dispatcher) resolve(command string) CommandResult {
	req, err := ParseCommand(command)
	result := CommandResult{Command: command, Verb: req.Verb, Args: req.Args}
	if err != nil {
		result.Code = ResultParseError
		result.Err = err
		result.Output = "parse error: " + err.Error()
		return result
	}

	h, ok := d.snapshot().Lookup(req.Verb)
	if !ok {
		result.Code = ResultUnknownCommand
		result.Err = fmt.Errorf("%q: %w", req.Verb, ErrUnknownCommand)
		result.Output = fmt.Sprintf("unknown command %q", req.Verb)
		return result
	}

	out, err := runHandler(h, req)
	if err != nil {
		result.Code = ResultFailed
		result.Err = err
		result.Output = req.Verb + ": " + err.Error()
		return result
	}
	result.Code = ResultOK
	result.Output = out
	return result
}

// runHandler converts a handler panic into an error so the callback still fires.
func runHandler(h Handler, req Request) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(req)
}

// dispatch resolves command and delivers the result to recv exactly once.
func (d *dispatcher) dispatch(command string, recv Receiver) StatusCode {
	result := d.resolve(command)

	status := StatusOK
	if recv != nil {
		status = recv.Receive(&result)
	}

	d.logger.Debug("command dispatched",
		zap.String("verb", result.Verb),
		zap.Stringer("result", result.Code),
		zap.Uint8("status", uint8(status)))
	return status
}
