// Package hostapi is the command surface the chat host calls into.
// Every call returns a JSON array: ["ok", cmd], ["ok", cmd, result] or ["error", cmd, message].
package hostapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmhelper/extension/internal/dispatcher"
)

// Config defines how calls into the extension are handled
var Config configStruct = configStruct{}

func init() {
	Config.Init()
}

// Call dispatches command with its arguments and returns the encoded response.
func Call(command string, args []string) string {
	switch command {
	case ":TIMESTAMP:":
		return formatDispatchResponse(command, getTimestamp(), nil)
	case ":VERSION:":
		return formatDispatchResponse(command, Config.version, nil)
	}

	if Config.dispatcher == nil || !Config.dispatcher.HasHandler(command) {
		return formatDispatchResponse(command, nil, fmt.Errorf("no handler registered"))
	}

	result, err := Config.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatDispatchResponse(command, result, err)
}

// CallRaw accepts the single-string form "CMD|arg1|arg2".
func CallRaw(input string) string {
	parts := strings.Split(strings.TrimSpace(input), "|")
	return Call(parts[0], parts[1:])
}

// formatDispatchResponse encodes the dispatcher result for the host
func formatDispatchResponse(command string, result any, err error) string {
	var resp []any
	switch {
	case err != nil:
		resp = []any{"error", command, err.Error()}
	case result == nil:
		resp = []any{"ok", command}
	default:
		resp = []any{"ok", command, result}
	}

	b, mErr := json.Marshal(resp)
	if mErr != nil {
		b, _ = json.Marshal([]any{"error", command, fmt.Sprintf("encoding result: %v", mErr)})
	}
	return string(b)
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
