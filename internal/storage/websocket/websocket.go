package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dmhelper/extension/pkg/core"
	"github.com/dmhelper/extension/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams combat log entries and snapshots to a display server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
	seq  atomic.Uint64
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("backend", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, seq uint64, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Seq: seq, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) envelope(msgType string, payload any) ([]byte, error) {
	return marshalEnvelope(msgType, b.seq.Add(1), payload)
}

// StartSession announces the session and waits for the server ack.
func (b *Backend) StartSession(s *core.Session) error {
	b.seq.Store(0)
	data, err := b.envelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}
	b.conn.cache(streaming.TypeStartSession, data)
	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	data, err := b.envelope(streaming.TypeEndSession, struct{}{})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.cache(streaming.TypeEndSession, nil)
	return err
}

// RecordLogEntry streams one entry (fire-and-forget).
func (b *Backend) RecordLogEntry(e *core.CombatLogEntry) error {
	data, err := b.envelope(streaming.TypeLogEntry, streaming.LogEntryPayload{Entry: e})
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// RecordSnapshot streams the state and keeps it for reconnect replay.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	data, err := b.envelope(streaming.TypeSnapshot, streaming.SnapshotPayload{Snapshot: s})
	if err != nil {
		return err
	}
	b.conn.cache(streaming.TypeSnapshot, data)
	b.conn.send(data)
	return nil
}
