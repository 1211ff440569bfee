// Package streaming defines the envelopes a display server receives from the
// websocket storage backend.
package streaming

import (
	"encoding/json"

	"github.com/dmhelper/extension/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeLogEntry     = "log_entry"
	TypeSnapshot     = "snapshot"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces a new combat session.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// LogEntryPayload carries one appended combat log entry.
type LogEntryPayload struct {
	Entry *core.CombatLogEntry `json:"entry"`
}

// SnapshotPayload carries the full state after a mutating command.
type SnapshotPayload struct {
	Snapshot *core.Snapshot `json:"snapshot"`
}
