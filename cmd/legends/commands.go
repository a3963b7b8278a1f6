package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathanjent/legendsof1f600/config"
	"github.com/nathanjent/legendsof1f600/legends"
	"github.com/nathanjent/legendsof1f600/tui"
)

var (
	songSeparator string
	songNumbered  bool

	countDetail bool

	execShowStatus bool

	consoleWatch      bool
	consolePlain      bool
	consoleTranscript string
)

// statusError carries a non-zero callback status out to the exit code.
type statusError struct {
	status legends.StatusCode
}

func (e *statusError) Error() string {
	return fmt.Sprintf("command finished with status %d", e.status)
}

var songCmd = &cobra.Command{
	Use:   "song [count]",
	Short: "Print the theme song",
	Long: `Generates count lines of the theme song (0-255, default 1), prints it
and frees the buffer.

Example:
  legends song 4 --numbered`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSong,
}

var countCmd = &cobra.Command{
	Use:   "count [text]",
	Short: "Count the Unicode characters in text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCount,
}

var execCmd = &cobra.Command{
	Use:   "exec [command]",
	Short: "Run one command through the dispatcher",
	Long: `Dispatches the command, prints the result the callback receives and
exits with the callback's status: 0 for success, otherwise the result code.

Example:
  legends exec song 3
  legends exec "Holla back!"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start an interactive command console",
	Args:  cobra.NoArgs,
	RunE:  runConsole,
}

func runSong(cmd *cobra.Command, args []string) error {
	count := uint64(1)
	if len(args) == 1 {
		n, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("count %q must be 0-255", args[0])
		}
		count = n
	}

	var extra []legends.Option
	if songSeparator != "" {
		extra = append(extra, legends.WithSeparator(songSeparator))
	}
	if songNumbered {
		extra = append(extra, legends.WithNumberedLines(true))
	}
	lib, err := newLibrary(extra...)
	if err != nil {
		return err
	}
	defer closeLibrary(lib)

	buf, err := lib.GenerateThemeSong(uint8(count))
	if err != nil {
		return fmt.Errorf("generating song: %w", err)
	}
	text, err := buf.Text()
	if err != nil {
		return errors.Join(err, buf.Free())
	}
	if err := buf.Free(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	n, err := legends.CountString(text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !countDetail {
		fmt.Fprintln(out, n)
		return nil
	}

	graphemes, err := legends.CountGraphemes([]byte(text))
	if err != nil {
		return err
	}
	nfc, err := legends.CountNormalized([]byte(text))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "scalars    %d\n", n)
	fmt.Fprintf(out, "graphemes  %d\n", graphemes)
	fmt.Fprintf(out, "width      %d\n", legends.DisplayWidth(text))
	fmt.Fprintf(out, "nfc        %d\n", nfc)
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	lib, err := newLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary(lib)

	out := cmd.OutOrStdout()
	status := lib.ProcessCommand(strings.Join(args, " "), func(r *legends.CommandResult) legends.StatusCode {
		fmt.Fprintln(out, r.Output)
		return tui.ResultStatus(r)
	})
	if execShowStatus {
		fmt.Fprintf(out, "status: %d\n", status)
	}
	if status != legends.StatusOK {
		cmd.SilenceErrors = true
		return &statusError{status: status}
	}
	return nil
}

func runConsole(cmd *cobra.Command, args []string) error {
	lib, err := newLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary(lib)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	transcript := tui.NewTranscript()
	stream := tui.NewStream()

	notify := func(e tui.Entry) { stream.Send(e) }
	if consolePlain {
		errOut := cmd.ErrOrStderr()
		notify = func(e tui.Entry) {
			transcript.Record(e)
			fmt.Fprintln(errOut, "* "+e.Output)
		}
	}

	if consoleWatch {
		stop, err := watchReplies(ctx, lib, notify)
		if err != nil {
			return err
		}
		defer stop()
	}
	// Closed before stop runs so a pending Send returns.
	defer stream.Close()

	if consolePlain {
		err = runPlainConsole(lib, transcript, cmd.InOrStdin(), cmd.OutOrStdout())
	} else {
		model := tui.NewStreamingModel(lib, stream,
			tui.WithTimestamps(cfg.Console.ShowTimestamps),
			tui.WithMaxEntries(cfg.Console.MaxEntries),
			tui.WithTranscript(transcript),
		)
		_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	}
	if err != nil {
		return err
	}
	return writeTranscript(transcript)
}

// runPlainConsole reads one command per line until EOF.
func runPlainConsole(lib *legends.Library, transcript *tui.Transcript, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := tui.Run(lib, line, tui.ResultStatus)
		transcript.Record(e)
		fmt.Fprintln(out, e.Output)
	}
	return scanner.Err()
}

// watchReplies swaps the library's static replies whenever the config file
// changes. The returned func stops the watcher.
func watchReplies(ctx context.Context, lib *legends.Library, notify func(tui.Entry)) (func(), error) {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvPath)
	}
	if path == "" {
		return nil, errors.New("--watch needs a config file")
	}

	w, err := config.NewWatcher(path, logger.Named("config"), func(c *config.Config) {
		lib.SetReplies(c.Commands)
		notify(tui.Notice(fmt.Sprintf("config reloaded, %d replies", len(c.Commands))))
	})
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w.Stop, nil
}

func writeTranscript(t *tui.Transcript) error {
	if consoleTranscript == "" {
		return nil
	}
	lines := t.ExportJSON()
	data := strings.Join(lines, "\n")
	if len(lines) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(consoleTranscript, []byte(data), 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	logger.Info("transcript written", zap.String("path", consoleTranscript), zap.Int("entries", len(lines)))
	return nil
}
