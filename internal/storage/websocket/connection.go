package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dmhelper/extension/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	sendChSize    = 4_096
	ackChSize     = 16
	maxReconnect  = 10
	maxBackoff    = 30 * time.Second
	writeWait     = 10 * time.Second
	ackTimeout    = 10 * time.Second
	handshakeWait = 5 * time.Second
)

// connection manages a WebSocket connection with a single write goroutine.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL  string
	secret string

	// Replayed after a reconnect so the server can rebuild the session view.
	cachedSessionMsg  []byte
	cachedSnapshotMsg []byte

	dropped int

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// dial connects to the WebSocket server and starts read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop()

	return nil
}

// dialOnce performs a single WebSocket dial. The secret travels both as a
// query parameter and as a bearer token.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket URL scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if c.secret != "" {
		header.Set("Authorization", "Bearer "+c.secret)
	}

	dialer := ws.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeWait,
	}
	conn, _, err := dialer.Dial(u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// writeLoop drains sendCh and writes messages to the WebSocket.
// Only one writeLoop runs at a time; it returns on error or shutdown.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()

			if conn == nil {
				continue
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				go c.reconnect()
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				go c.reconnect()
				return
			}
		}
	}
}

// readLoop reads ack messages from the server and routes them to ackCh.
func (c *connection) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			go c.reconnect()
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}

		if ack.Type == "ack" {
			select {
			case c.ackCh <- ack:
			default:
				c.logger.Debug("Ack channel full, dropping", "for", ack.For)
			}
		}
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. On success it replays the cached session and latest
// snapshot, then restarts the read/write loops.
func (c *connection) reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		replay := [][]byte{c.cachedSessionMsg, c.cachedSnapshotMsg}
		c.mu.Unlock()

		if err := writeReplay(conn, replay); err != nil {
			c.logger.Warn("Failed to replay session after reconnect", "error", err)
			_ = conn.Close()
			continue
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		go c.writeLoop()
		go c.readLoop()
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// writeReplay writes the non-nil cached messages directly to conn.
func writeReplay(conn *ws.Conn, msgs [][]byte) error {
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		if err := conn.WriteMessage(ws.TextMessage, msg); err != nil {
			return err
		}
	}
	return nil
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.mu.Lock()
		c.dropped++
		n := c.dropped
		c.mu.Unlock()
		c.logger.Warn("WebSocket send channel full, dropping message", "dropped", n)
	}
}

// cache stores the latest session or snapshot message for replay.
func (c *connection) cache(msgType string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msgType {
	case streaming.TypeStartSession:
		c.cachedSessionMsg = data
		c.cachedSnapshotMsg = nil
	case streaming.TypeSnapshot:
		c.cachedSnapshotMsg = data
	case streaming.TypeEndSession:
		c.cachedSessionMsg = nil
		c.cachedSnapshotMsg = nil
	}
}

// sendAndWait sends data and blocks until the server acknowledges with a
// matching ack message or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
			// Not our ack, keep waiting.
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a WebSocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
