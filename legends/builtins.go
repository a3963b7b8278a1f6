package legends

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Builtins returns the default vocabulary:
//
//	hello            Hello World!
//	beep             Beep!
//	sms              Hello, Mobile Monkey
//	version          library version
//	echo <text>      Command: <text>
//	song [n]         theme song with n lines (default 1)
//	count <text>     number of characters in text
//	help             registered verbs
func (l *Library) Builtins() CommandTable {
	return CommandTable{
		"hello":   StaticReply("Hello World!"),
		"beep":    StaticReply("Beep!"),
		"sms":     StaticReply("Hello, Mobile Monkey"),
		"version": StaticReply("legendsof1f600 " + Version),
		"echo": HandlerFunc(func(req Request) (string, error) {
			return "Command: " + req.Rest, nil
		}),
		"song":  HandlerFunc(l.songCommand),
		"count": HandlerFunc(l.countCommand),
		"help": HandlerFunc(func(Request) (string, error) {
			return strings.Join(l.Commands().Verbs(), " "), nil
		}),
	}
}

func (l *Library) songCommand(req Request) (string, error) {
	count := uint64(1)
	if len(req.Args) > 0 {
		n, err := strconv.ParseUint(req.Args[0], 10, 8)
		if err != nil {
			return "", fmt.Errorf("line count %q must be 0-255", req.Args[0])
		}
		count = n
	}

	buf, err := l.GenerateThemeSong(uint8(count))
	if err != nil {
		return "", err
	}
	text, err := buf.Text()
	if ferr := buf.Free(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return text, err
}

func (l *Library) countCommand(req Request) (string, error) {
	n, err := CountString(req.Rest)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(n), 10), nil
}
