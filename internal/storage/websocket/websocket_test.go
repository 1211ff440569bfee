package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhelper/extension/internal/storage"
	"github.com/dmhelper/extension/pkg/core"
	"github.com/dmhelper/extension/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and acks start_session/end_session.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setAuth(r.Header.Get("Authorization"), r.URL.Query().Get("secret"))

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	auth     string
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setAuth(auth, secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = auth
	m.secret = secret
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestInit_InvalidScheme(t *testing.T) {
	b := New(Config{URL: "http://localhost:1/stream"})
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
	assert.NoError(t, b.Close())
}

func TestInit_SendsSecret(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "hunter2"})
	require.NoError(t, b.Init())
	defer b.Close()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	assert.Equal(t, "Bearer hunter2", ml.auth)
	assert.Equal(t, "hunter2", ml.secret)
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.Session{Name: "Crypt of Bones", DM: "Mira"}))
	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[len(msgs)-1].Type)

	var p streaming.StartSessionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &p))
	assert.Equal(t, "Crypt of Bones", p.Session.Name)
	assert.Equal(t, "Mira", p.Session.DM)

	b.conn.mu.Lock()
	defer b.conn.mu.Unlock()
	assert.Nil(t, b.conn.cachedSessionMsg)
	assert.Nil(t, b.conn.cachedSnapshotMsg)
}

func TestEntriesAndSnapshots(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.Session{Name: "S"}))
	require.NoError(t, b.RecordLogEntry(&core.CombatLogEntry{
		Actor: "Bram", Target: "Ghoul", Roll: 15, DC: 12, Success: true, Damage: 1, Kind: core.KindAttack,
	}))
	require.NoError(t, b.RecordLogEntry(&core.CombatLogEntry{Actor: "Ghoul", Kind: core.KindMonsterDefeated}))
	require.NoError(t, b.RecordSnapshot(&core.Snapshot{Phase: core.PhaseAttack, LogSize: 2}))

	b.conn.mu.Lock()
	assert.NotNil(t, b.conn.cachedSnapshotMsg)
	b.conn.mu.Unlock()

	require.NoError(t, b.EndSession())

	// Give a moment for all messages to arrive at server.
	time.Sleep(50 * time.Millisecond)

	msgs := ml.all()
	types := make(map[string]int)
	for _, m := range msgs {
		types[m.Type]++
	}
	assert.Equal(t, 1, types[streaming.TypeStartSession])
	assert.Equal(t, 2, types[streaming.TypeLogEntry])
	assert.Equal(t, 1, types[streaming.TypeSnapshot])
	assert.Equal(t, 1, types[streaming.TypeEndSession])

	for i, m := range msgs {
		assert.Equal(t, uint64(i+1), m.Seq, "message %d", i)
	}

	var lp streaming.LogEntryPayload
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &lp))
	assert.Equal(t, "Bram", lp.Entry.Actor)
	assert.Equal(t, core.KindAttack, lp.Entry.Kind)
}

func TestEndSession_TimesOutWithoutAck(t *testing.T) {
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)})
	require.NoError(t, b.Init())

	data, err := marshalEnvelope(streaming.TypeEndSession, 1, struct{}{})
	require.NoError(t, err)
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	require.NoError(t, b.Close())
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestMarshalEnvelope(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeSnapshot, 7, streaming.SnapshotPayload{
		Snapshot: &core.Snapshot{Phase: core.PhaseDefense, LogSize: 3},
	})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeSnapshot, decoded.Type)
	assert.Equal(t, uint64(7), decoded.Seq)

	var sp streaming.SnapshotPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &sp))
	assert.Equal(t, core.PhaseDefense, sp.Snapshot.Phase)
	assert.Equal(t, 3, sp.Snapshot.LogSize)
}

func TestCacheReplayOrder(t *testing.T) {
	c := newConnection(nil)
	c.cache(streaming.TypeSnapshot, []byte("snap-0"))
	c.cache(streaming.TypeStartSession, []byte("start"))
	assert.Nil(t, c.cachedSnapshotMsg)

	c.cache(streaming.TypeSnapshot, []byte("snap-1"))
	c.cache(streaming.TypeSnapshot, []byte("snap-2"))
	assert.Equal(t, []byte("start"), c.cachedSessionMsg)
	assert.Equal(t, []byte("snap-2"), c.cachedSnapshotMsg)

	c.cache(streaming.TypeEndSession, nil)
	assert.Nil(t, c.cachedSessionMsg)
	assert.Nil(t, c.cachedSnapshotMsg)
}
