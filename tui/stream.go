package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Stream is a channel-based source of entries produced outside the console,
// such as config reload notices.
type Stream struct {
	entries chan Entry
	done    chan struct{}
	once    sync.Once
}

// NewStream creates a new entry stream.
func NewStream() *Stream {
	return &Stream{
		entries: make(chan Entry, 100),
		done:    make(chan struct{}),
	}
}

// Send sends an entry to the stream. It returns once the entry is queued or
// the stream is closed.
func (s *Stream) Send(e Entry) {
	select {
	case s.entries <- e:
	case <-s.done:
	}
}

// Close closes the stream. It is safe to call more than once.
func (s *Stream) Close() {
	s.once.Do(func() { close(s.done) })
}

// Listen returns a tea.Cmd that waits for the next entry.
func (s *Stream) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-s.entries:
			return StreamMsg{Entry: e}
		case <-s.done:
			return nil
		}
	}
}

// StreamingModel extends Model with entries from a Stream.
type StreamingModel struct {
	Model
	stream *Stream
}

// NewStreamingModel creates a console that also shows entries from stream.
func NewStreamingModel(d Dispatcher, stream *Stream, opts ...Option) StreamingModel {
	return StreamingModel{
		Model:  New(d, opts...),
		stream: stream,
	}
}

// Init implements tea.Model with streaming support.
func (m StreamingModel) Init() tea.Cmd {
	return tea.Batch(
		m.Model.Init(),
		m.stream.Listen(),
	)
}

// Update implements tea.Model with streaming support.
func (m StreamingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.(type) {
	case StreamMsg:
		// Continue listening for more entries
		cmds = append(cmds, m.stream.Listen())
	}

	model, cmd := m.Model.Update(msg)
	m.Model = model.(Model)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// Transcript records every entry of a console session.
type Transcript struct {
	mu        sync.Mutex
	entries   []Entry
	startTime time.Time
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		entries:   make([]Entry, 0),
		startTime: time.Now(),
	}
}

// Record appends an entry.
func (t *Transcript) Record(e Entry) {
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Duration returns the elapsed time since recording started.
func (t *Transcript) Duration() time.Duration {
	return time.Since(t.startTime)
}

// ExportJSON exports all entries as JSON lines.
func (t *Transcript) ExportJSON() []string {
	entries := t.Entries()
	result := make([]string, len(entries))
	for i, e := range entries {
		json, err := e.ToJSON()
		if err != nil {
			result[i] = ""
			continue
		}
		result[i] = json
	}
	return result
}

// ExportLogLines exports all entries as log lines.
func (t *Transcript) ExportLogLines() []string {
	entries := t.Entries()
	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.LogLine()
	}
	return result
}
