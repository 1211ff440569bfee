// Package gormstorage implements storage.Backend on top of GORM with
// internal queues and a background writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmhelper/extension/internal/database"
	"github.com/dmhelper/extension/internal/queue"
	"github.com/dmhelper/extension/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ErrNoSession is returned when recording before StartSession.
var ErrNoSession = errors.New("no active session")

const (
	defaultFlushInterval = 2 * time.Second
	queueLimit           = 50_000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
	// FlushInterval is how often queued rows are written. Zero means 2s.
	FlushInterval time.Duration
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps Dependencies

	entries   *queue.Queue[database.LogEntry]
	snapshots *queue.Queue[database.Snapshot]

	sessionID atomic.Uint64
	seq       atomic.Uint64

	// serializes flushes between the writer goroutine and session changes
	flushMu  sync.Mutex
	stopChan chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:      deps,
		entries:   queue.NewBounded[database.LogEntry](queueLimit),
		snapshots: queue.NewBounded[database.Snapshot](queueLimit),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs the schema migration and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if err := database.Migrate(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.stopped = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.stopped
	if dropped := b.entries.Dropped() + b.snapshots.Dropped(); dropped > 0 {
		b.deps.Logger.Warn().Uint64("dropped", dropped).Msg("rows dropped on full queues")
	}
	return nil
}

// StartSession inserts the session row synchronously so later rows can
// reference its ID. The assigned ID is written back to s.
func (b *Backend) StartSession(s *core.Session) error {
	if err := b.flush(); err != nil {
		b.deps.Logger.Warn().Err(err).Msg("flush before new session failed")
	}

	if s.StartTime.IsZero() {
		s.StartTime = time.Now()
	}
	row := database.SessionFromCore(*s)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	b.seq.Store(0)
	b.deps.Logger.Info().Uint("session", row.ID).Str("name", row.Name).Msg("Session started")
	return nil
}

// EndSession writes everything queued and stamps the session end time.
func (b *Backend) EndSession() error {
	id := uint(b.sessionID.Load())
	if id == 0 {
		return nil
	}
	if err := b.flush(); err != nil {
		return err
	}

	now := time.Now()
	if err := b.deps.DB.Model(&database.Session{}).Where("id = ?", id).Update("end_time", now).Error; err != nil {
		return fmt.Errorf("failed to close session %d: %w", id, err)
	}
	b.sessionID.Store(0)
	return nil
}

// RecordLogEntry queues an entry for the writer.
func (b *Backend) RecordLogEntry(e *core.CombatLogEntry) error {
	id := b.sessionID.Load()
	if id == 0 {
		return ErrNoSession
	}
	row := database.EntryFromCore(*e)
	row.SessionID = uint(id)
	row.Seq = b.seq.Add(1)
	if n := b.entries.Push(row); n > 0 {
		b.deps.Logger.Warn().Int("dropped", n).Msg("log entry queue full")
	}
	return nil
}

// RecordSnapshot queues a JSON snapshot for the writer.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	id := b.sessionID.Load()
	if id == 0 {
		return ErrNoSession
	}
	row, err := database.SnapshotFromCore(*s)
	if err != nil {
		return err
	}
	row.SessionID = uint(id)
	if n := b.snapshots.Push(row); n > 0 {
		b.deps.Logger.Warn().Int("dropped", n).Msg("snapshot queue full")
	}
	return nil
}

// Pending returns how many rows are waiting for the writer.
func (b *Backend) Pending() int {
	return b.entries.Len() + b.snapshots.Len()
}

// Entries loads a session's log in append order.
func (b *Backend) Entries(sessionID uint) ([]core.CombatLogEntry, error) {
	var rows []database.LogEntry
	if err := b.deps.DB.Where("session_id = ?", sessionID).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	out := make([]core.CombatLogEntry, len(rows))
	for i, r := range rows {
		out[i] = r.ToCore()
	}
	return out, nil
}

// LatestSnapshot loads the most recent snapshot of a session.
func (b *Backend) LatestSnapshot(sessionID uint) (core.Snapshot, error) {
	var row database.Snapshot
	err := b.deps.DB.Where("session_id = ?", sessionID).Order("id desc").First(&row).Error
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return row.ToCore()
}

// Sessions lists recorded sessions, newest first.
func (b *Backend) Sessions() ([]database.Session, error) {
	var rows []database.Session
	if err := b.deps.DB.Order("id desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return rows, nil
}

// writeQueue writes all items from a queue in one transaction, putting them
// back on failure.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		q.Requeue(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	return nil
}

// Flush writes everything queued immediately.
func (b *Backend) Flush() error {
	return b.flush()
}

func (b *Backend) flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	return errors.Join(
		writeQueue(b.deps.DB, b.entries, "log entries"),
		writeQueue(b.deps.DB, b.snapshots, "snapshots"),
	)
}

// writeLoop periodically drains the queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.stopped)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if err := b.flush(); err != nil {
				b.deps.Logger.Error().Err(err).Msg("final flush failed")
			}
			return
		case <-ticker.C:
			if err := b.flush(); err != nil {
				b.deps.Logger.Error().Err(err).Msg("flush failed")
			}
		}
	}
}
