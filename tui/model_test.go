package tui

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/goleak"

	"github.com/nathanjent/legendsof1f600/legends"
)

func newLibrary(t *testing.T) *legends.Library {
	t.Helper()
	lib, err := legends.New()
	if err != nil {
		t.Fatalf("legends.New failed: %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return newModel.(Model)
}

func TestNewModel(t *testing.T) {
	m := New(nil)
	if m.running {
		t.Error("New model should not be running")
	}
	if len(m.entries) != 0 {
		t.Error("New model should have no entries")
	}
	if !m.input.Focused() {
		t.Error("input should start focused")
	}
}

func TestModelWithOptions(t *testing.T) {
	transcript := NewTranscript()
	m := New(nil,
		WithTimestamps(true),
		WithMaxEntries(100),
		WithTranscript(transcript),
	)
	if !m.showTimestamps {
		t.Error("showTimestamps should be true")
	}
	if m.maxEntries != 100 {
		t.Error("maxEntries should be 100")
	}
	if m.transcript != transcript {
		t.Error("transcript not set")
	}
}

func TestModelAddEntry(t *testing.T) {
	m := New(nil)

	m.AddEntry(Notice("hello"))
	if len(m.entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(m.entries))
	}
}

func TestModelMaxEntries(t *testing.T) {
	m := New(nil, WithMaxEntries(3))

	for i := 0; i < 5; i++ {
		m.AddEntry(Notice("tick"))
	}

	if len(m.entries) != 3 {
		t.Errorf("Expected 3 entries (max), got %d", len(m.entries))
	}
}

func TestModelClearKeepsTranscript(t *testing.T) {
	transcript := NewTranscript()
	m := New(nil, WithTranscript(transcript))

	m.AddEntry(Notice("one"))
	m.Clear()

	if len(m.entries) != 0 {
		t.Error("Clear should remove all entries")
	}
	if len(transcript.Entries()) != 1 {
		t.Error("transcript should keep cleared entries")
	}
}

func TestModelStart(t *testing.T) {
	m := New(nil)
	m.Start()

	if !m.running {
		t.Error("Model should be running after Start")
	}
	if m.startTime.IsZero() {
		t.Error("startTime should be set after Start")
	}
}

func TestModelUpdateWindowSize(t *testing.T) {
	m := sized(t, New(nil))

	if m.width != 80 {
		t.Errorf("Expected width 80, got %d", m.width)
	}
	if m.height != 24 {
		t.Errorf("Expected height 24, got %d", m.height)
	}
	if m.viewport.Height != 18 {
		t.Errorf("Expected viewport height 18, got %d", m.viewport.Height)
	}
}

func TestModelEnterRunsCommand(t *testing.T) {
	lib := newLibrary(t)
	m := sized(t, New(lib))

	m.input.SetValue("beep")
	newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = newModel.(Model)

	if !m.running {
		t.Error("Model should be running while the command is pending")
	}
	if m.input.Value() != "" {
		t.Error("input should be cleared after enter")
	}
	if cmd == nil {
		t.Fatal("enter should return a command")
	}

	msg, ok := cmd().(EntryMsg)
	if !ok {
		t.Fatalf("expected EntryMsg, got %T", msg)
	}
	newModel, _ = m.Update(msg)
	m = newModel.(Model)

	if m.running {
		t.Error("Model should stop running once the entry arrives")
	}
	if len(m.entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(m.entries))
	}
	e := m.entries[0]
	if e.Command != "beep" || e.Output != "Beep!" || e.Code != legends.ResultOK || e.Status != legends.StatusOK {
		t.Errorf("unexpected entry %+v", e)
	}
	if !strings.Contains(m.View(), "Beep!") {
		t.Error("View should show the output")
	}
}

func TestModelEnterIgnoresBlankInput(t *testing.T) {
	m := sized(t, New(newLibrary(t)))

	m.input.SetValue("   ")
	newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = newModel.(Model)

	if cmd != nil || m.running {
		t.Error("blank input should not run anything")
	}
}

func TestModelUnknownCommandStatus(t *testing.T) {
	m := sized(t, New(newLibrary(t)))

	m.input.SetValue("Holla back!")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd().(EntryMsg)

	if msg.Entry.Code != legends.ResultUnknownCommand {
		t.Errorf("Expected unknown_command, got %s", msg.Entry.Code)
	}
	if msg.Entry.Status != legends.StatusCode(legends.ResultUnknownCommand) {
		t.Errorf("Expected status %d, got %d", legends.ResultUnknownCommand, msg.Entry.Status)
	}
}

func TestModelWithStatus(t *testing.T) {
	m := New(newLibrary(t), WithStatus(func(*legends.CommandResult) legends.StatusCode { return 42 }))

	m.input.SetValue("hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd().(EntryMsg)

	if msg.Entry.Status != 42 {
		t.Errorf("Expected status 42, got %d", msg.Entry.Status)
	}
}

func TestModelNilDispatcher(t *testing.T) {
	m := New(nil)

	m.input.SetValue("beep")
	newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = newModel.(Model)

	errMsg, ok := cmd().(ErrorMsg)
	if !ok {
		t.Fatal("expected ErrorMsg without a dispatcher")
	}
	newModel, _ = m.Update(errMsg)
	m = newModel.(Model)
	if m.running || m.err == nil {
		t.Error("error should stop the model and be kept")
	}
}

func TestRenderEntryTruncatesByWidth(t *testing.T) {
	m := sized(t, New(nil))

	e := Entry{
		Command: "song",
		Output:  strings.Repeat("\U0001F600", 100),
		Code:    legends.ResultOK,
	}
	line := m.renderEntry(e)
	if !strings.Contains(line, "...") {
		t.Error("long output should be truncated")
	}
	if strings.ContainsRune(line, '�') {
		t.Error("truncation must not split characters")
	}
}

func TestRenderEntryJoinsLines(t *testing.T) {
	m := sized(t, New(nil))

	line := m.renderEntry(Entry{Command: "song 2", Output: "a\nb", Code: legends.ResultOK})
	if strings.Contains(line, "\n") || !strings.Contains(line, "a / b") {
		t.Errorf("expected a single row, got %q", line)
	}
}

func TestDefaultStyles(t *testing.T) {
	styles := DefaultStyles()

	if styles.Title.GetBold() != true {
		t.Error("Title should be bold")
	}
}

func TestStream(t *testing.T) {
	stream := NewStream()
	defer stream.Close()

	e := Notice("config reloaded")
	stream.Send(e)

	msg, ok := stream.Listen()().(StreamMsg)
	if !ok {
		t.Fatal("expected StreamMsg")
	}
	if msg.Entry.ID != e.ID {
		t.Error("Should receive the same entry")
	}
}

func TestStreamClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	stream := NewStream()
	done := make(chan tea.Msg)
	go func() { done <- stream.Listen()() }()

	stream.Close()
	stream.Close()

	select {
	case msg := <-done:
		if msg != nil {
			t.Errorf("closed stream should yield nil, got %T", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after Close")
	}

	// Send after Close must not block.
	for i := 0; i < 200; i++ {
		stream.Send(Notice("late"))
	}
}

func TestStreamingModel(t *testing.T) {
	stream := NewStream()
	defer stream.Close()

	m := NewStreamingModel(newLibrary(t), stream)
	stream.Send(Notice("config reloaded"))

	msg := m.stream.Listen()()
	newModel, cmd := m.Update(msg)
	m = newModel.(StreamingModel)

	if len(m.entries) != 1 || !m.entries[0].IsNotice() {
		t.Errorf("expected one notice, got %+v", m.entries)
	}
	if m.running {
		t.Error("notices should not change the running state")
	}
	if cmd == nil {
		t.Error("StreamingModel should keep listening")
	}
}

func TestRun(t *testing.T) {
	lib := newLibrary(t)

	e := Run(lib, "echo  hi there", nil)
	if e.Output != "Command: hi there" {
		t.Errorf("got %q", e.Output)
	}
	if e.Status != legends.StatusOK {
		t.Errorf("nil status func should return OK, got %d", e.Status)
	}
	if e.ID.String() == "" || e.Time.IsZero() {
		t.Error("entry should have an ID and time")
	}
}

func TestTranscriptExport(t *testing.T) {
	lib := newLibrary(t)
	transcript := NewTranscript()

	transcript.Record(Run(lib, "hello", ResultStatus))
	transcript.Record(Run(lib, "nope", ResultStatus))
	transcript.Record(Notice("config reloaded"))

	jsonExport := transcript.ExportJSON()
	if len(jsonExport) != 3 {
		t.Fatalf("Expected 3 JSON exports, got %d", len(jsonExport))
	}
	var decoded struct {
		Command string `json:"command"`
		Output  string `json:"output"`
		Result  string `json:"result"`
		Status  uint8  `json:"status"`
	}
	if err := json.Unmarshal([]byte(jsonExport[1]), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", jsonExport[1], err)
	}
	if decoded.Command != "nope" || decoded.Result != "unknown_command" || decoded.Status != 1 {
		t.Errorf("unexpected export %+v", decoded)
	}

	logLines := transcript.ExportLogLines()
	if len(logLines) != 3 {
		t.Fatalf("Expected 3 log lines, got %d", len(logLines))
	}
	if !strings.HasSuffix(logLines[0], "[ok/0] hello -> Hello World!") {
		t.Errorf("log line 0 = %q", logLines[0])
	}
	if !strings.HasSuffix(logLines[2], "[notice] config reloaded") {
		t.Errorf("log line 2 = %q", logLines[2])
	}
}

func TestTranscriptDuration(t *testing.T) {
	transcript := NewTranscript()
	if transcript.Duration() < 0 {
		t.Error("Duration should not be negative")
	}
}
