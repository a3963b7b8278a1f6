package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nathanjent/legendsof1f600/legends"
)

// Dispatcher runs a command and hands the result to a receiver.
// *legends.Library satisfies it.
type Dispatcher interface {
	Dispatch(command string, recv legends.Receiver) legends.StatusCode
}

// Entry is one line of console history: a command and its result, or a
// notice when Command is empty.
type Entry struct {
	ID      uuid.UUID
	Time    time.Time
	Command string
	Output  string
	Code    legends.ResultCode
	Status  legends.StatusCode
}

// IsNotice reports whether the entry came from outside the command line.
func (e Entry) IsNotice() bool {
	return e.Command == ""
}

// Notice creates an entry announcing text.
func Notice(text string) Entry {
	return Entry{ID: uuid.New(), Time: time.Now(), Output: text}
}

// Run dispatches command through d and captures the result. The callback
// returns the status chosen by status, or StatusOK when status is nil.
func Run(d Dispatcher, command string, status func(*legends.CommandResult) legends.StatusCode) Entry {
	e := Entry{ID: uuid.New(), Time: time.Now(), Command: command}
	e.Status = d.Dispatch(command, legends.Callback(func(r *legends.CommandResult) legends.StatusCode {
		e.Output = r.Output
		e.Code = r.Code
		if status == nil {
			return legends.StatusOK
		}
		return status(r)
	}))
	return e
}

// ResultStatus maps a result onto its ResultCode, so failures surface as a
// non-zero status.
func ResultStatus(r *legends.CommandResult) legends.StatusCode {
	return legends.StatusCode(r.Code)
}

type entryJSON struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Command string `json:"command,omitempty"`
	Output  string `json:"output"`
	Result  string `json:"result"`
	Status  uint8  `json:"status"`
}

// ToJSON encodes the entry as a single JSON object.
func (e Entry) ToJSON() (string, error) {
	data, err := json.Marshal(entryJSON{
		ID:      e.ID.String(),
		Time:    e.Time.UTC().Format(time.RFC3339Nano),
		Command: e.Command,
		Output:  e.Output,
		Result:  e.Code.String(),
		Status:  uint8(e.Status),
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LogLine formats the entry for a plain text log.
func (e Entry) LogLine() string {
	ts := e.Time.Format("15:04:05")
	out := strings.ReplaceAll(e.Output, "\n", " / ")
	if e.IsNotice() {
		return fmt.Sprintf("%s [notice] %s", ts, out)
	}
	return fmt.Sprintf("%s [%s/%d] %s -> %s", ts, e.Code, e.Status, e.Command, out)
}
