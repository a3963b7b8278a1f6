// Package tui provides a Bubble Tea console for the legendsof1f600 command
// processor.
//
// Each line typed at the prompt is dispatched through the library and shown
// with its result code and the status the console's callback returned.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nathanjent/legendsof1f600/legends"
)

// EntryMsg delivers a finished command.
type EntryMsg struct {
	Entry Entry
}

// StreamMsg delivers an entry from a Stream.
type StreamMsg struct {
	Entry Entry
}

// ErrorMsg indicates an error occurred.
type ErrorMsg struct {
	Err error
}

// Model represents the console state.
type Model struct {
	dispatcher Dispatcher
	status     func(*legends.CommandResult) legends.StatusCode
	transcript *Transcript

	// History shown in the viewport
	entries []Entry

	// Current execution state
	running   bool
	startTime time.Time
	last      time.Duration
	err       error

	// UI components
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	// Dimensions
	width  int
	height int

	styles Styles

	// Options
	showTimestamps bool
	maxEntries     int
}

// Styles contains all style configurations for the console.
type Styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Entry     lipgloss.Style
	Command   lipgloss.Style
	Output    lipgloss.Style
	Result    lipgloss.Style
	Timestamp lipgloss.Style
	Notice    lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Entry: lipgloss.NewStyle().
			PaddingLeft(1),
		Command: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("81")),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Result: lipgloss.NewStyle().
			Bold(true).
			Width(17),
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(9),
		Notice: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("228")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

// Option is a functional option for configuring the Model.
type Option func(*Model)

// WithTimestamps enables timestamp display for entries.
func WithTimestamps(show bool) Option {
	return func(m *Model) {
		m.showTimestamps = show
	}
}

// WithMaxEntries sets the maximum number of entries kept on screen.
func WithMaxEntries(max int) Option {
	return func(m *Model) {
		m.maxEntries = max
	}
}

// WithStyles sets custom styles.
func WithStyles(styles Styles) Option {
	return func(m *Model) {
		m.styles = styles
	}
}

// WithStatus sets the status the console returns for each result.
// The default is ResultStatus.
func WithStatus(status func(*legends.CommandResult) legends.StatusCode) Option {
	return func(m *Model) {
		m.status = status
	}
}

// WithTranscript records every entry in t.
func WithTranscript(t *Transcript) Option {
	return func(m *Model) {
		m.transcript = t
	}
}

// New creates a console that runs commands through d.
func New(d Dispatcher, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "type a command, try help"
	in.Focus()

	m := Model{
		dispatcher:     d,
		status:         ResultStatus,
		entries:        make([]Entry, 0),
		input:          in,
		spinner:        s,
		styles:         DefaultStyles(),
		showTimestamps: false,
		maxEntries:     1000,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+l":
			m.Clear()
			m.refresh()
			return m, nil
		case "enter":
			line := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(line) == "" || m.running {
				return m, nil
			}
			m.Start()
			return m, m.run(line)
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		footerHeight := 3
		verticalMargin := headerHeight + footerHeight

		if m.viewport.Width == 0 {
			m.viewport = viewport.New(msg.Width, max(1, msg.Height-verticalMargin))
			m.viewport.YPosition = headerHeight
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(1, msg.Height-verticalMargin)
		}
		m.input.Width = max(1, msg.Width-lipgloss.Width(m.input.Prompt)-1)
		m.refresh()

	case EntryMsg:
		m.running = false
		m.last = time.Since(m.startTime)
		m.AddEntry(msg.Entry)
		m.refresh()
		m.viewport.GotoBottom()

	case StreamMsg:
		m.AddEntry(msg.Entry)
		m.refresh()
		m.viewport.GotoBottom()

	case ErrorMsg:
		m.err = msg.Err
		m.running = false

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// run dispatches line off the UI goroutine.
func (m Model) run(line string) tea.Cmd {
	d, status := m.dispatcher, m.status
	return func() tea.Msg {
		if d == nil {
			return ErrorMsg{Err: fmt.Errorf("no dispatcher configured")}
		}
		return EntryMsg{Entry: Run(d, line, status)}
	}
}

func (m *Model) refresh() {
	if m.viewport.Width == 0 {
		return
	}
	m.viewport.SetContent(m.renderEntries())
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Header
	title := m.styles.Title.Render("legendsof1f600 console")
	var status string
	if m.running {
		status = m.spinner.View() + " Running..."
	} else if m.err != nil {
		status = m.styles.Error.Render("Error: " + m.err.Error())
	} else if m.last > 0 {
		status = m.styles.Success.Render(fmt.Sprintf("Done (%s)", m.last.Round(time.Microsecond)))
	} else {
		status = m.styles.Subtitle.Render("Ready")
	}

	header := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(status)-4)),
		status,
	)
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", m.width))
	b.WriteString("\n")

	b.WriteString(m.viewport.View())

	// Footer
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", m.width))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	entryCount := fmt.Sprintf("%d entries", len(m.entries))
	scrollInfo := fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)
	help := m.styles.Help.Render("enter: run • ctrl+l: clear • esc: quit • ↑/↓: scroll")

	footer := lipgloss.JoinHorizontal(
		lipgloss.Center,
		m.styles.StatusBar.Render(entryCount),
		strings.Repeat(" ", max(0, m.width-lipgloss.Width(entryCount)-lipgloss.Width(scrollInfo)-lipgloss.Width(help)-8)),
		help,
		"  ",
		m.styles.StatusBar.Render(scrollInfo),
	)
	b.WriteString(footer)

	return b.String()
}

func (m Model) renderEntries() string {
	if len(m.entries) == 0 {
		return m.styles.Subtitle.Render("No commands yet...")
	}

	var b strings.Builder
	for _, e := range m.entries {
		b.WriteString(m.renderEntry(e))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderEntry(e Entry) string {
	var parts []string

	if m.showTimestamps {
		parts = append(parts, m.styles.Timestamp.Render(e.Time.Format("15:04:05")))
	}

	if e.IsNotice() {
		parts = append(parts, m.styles.Notice.Render("* "+e.Output))
		return m.styles.Entry.Render(strings.Join(parts, " "))
	}

	result := fmt.Sprintf("%s/%d", e.Code, e.Status)
	parts = append(parts, m.resultStyle(e.Code).Render(result))
	parts = append(parts, m.styles.Command.Render(e.Command))

	// Songs span several lines; keep one row per entry.
	content := strings.ReplaceAll(e.Output, "\n", " / ")
	maxContentWidth := m.width - 30 - legends.DisplayWidth(e.Command)
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}
	content = legends.TruncateWidth(content, maxContentWidth, "...")
	parts = append(parts, m.styles.Output.Render(content))

	return m.styles.Entry.Render(strings.Join(parts, " "))
}

func (m Model) resultStyle(code legends.ResultCode) lipgloss.Style {
	switch code {
	case legends.ResultOK:
		return m.styles.Result.Foreground(lipgloss.Color("82"))
	case legends.ResultUnknownCommand:
		return m.styles.Result.Foreground(lipgloss.Color("214"))
	case legends.ResultParseError:
		return m.styles.Result.Foreground(lipgloss.Color("220"))
	default:
		return m.styles.Result.Foreground(lipgloss.Color("196"))
	}
}

// Start marks the model as running a command.
func (m *Model) Start() {
	m.running = true
	m.startTime = time.Now()
	m.err = nil
}

// AddEntry appends an entry, dropping the oldest past the limit.
func (m *Model) AddEntry(e Entry) {
	m.entries = append(m.entries, e)
	if len(m.entries) > m.maxEntries {
		m.entries = m.entries[1:]
	}
	if m.transcript != nil {
		m.transcript.Record(e)
	}
}

// Entries returns the entries on screen.
func (m *Model) Entries() []Entry {
	return m.entries
}

// Clear removes all entries from the screen. The transcript keeps them.
func (m *Model) Clear() {
	m.entries = make([]Entry, 0)
}
