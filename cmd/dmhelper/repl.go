package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmhelper/extension/pkg/hostapi"
)

// replLine is one parsed line of console input.
type replLine struct {
	command string
	args    []string
}

// parseLine turns console input into a host call.
// ":CMD:|a|b" is a raw command, "/say text" is a Say roll and "sender: text"
// is party chat. Anything else is rejected.
func parseLine(line string) (replLine, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return replLine{}, fmt.Errorf("empty line")
	case strings.HasPrefix(line, ":"):
		parts := strings.Split(line, "|")
		return replLine{command: parts[0], args: parts[1:]}, nil
	case strings.HasPrefix(line, "/say "):
		msg := strings.TrimSpace(strings.TrimPrefix(line, "/say "))
		return replLine{command: ":CHAT:", args: []string{"Say", "0", "", msg}}, nil
	}

	sender, msg, ok := strings.Cut(line, ":")
	if !ok || strings.TrimSpace(sender) == "" {
		return replLine{}, fmt.Errorf("expected \"sender: message\" or a :COMMAND:")
	}
	return replLine{command: ":CHAT:", args: []string{"Party", "0", strings.TrimSpace(sender), strings.TrimSpace(msg)}}, nil
}

// runREPL feeds console lines to the host interface until in is exhausted,
// "quit" is entered or ctx is done.
func runREPL(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		text := scanner.Text()
		if t := strings.TrimSpace(text); t == "quit" || t == "exit" {
			return nil
		}
		if strings.TrimSpace(text) != "" {
			l, err := parseLine(text)
			if err != nil {
				fmt.Fprintln(out, err)
			} else {
				fmt.Fprintln(out, hostapi.Call(l.command, l.args))
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
