// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/dmhelper/extension/internal/config"
	"github.com/dmhelper/extension/pkg/core"
)

// Backend keeps a combat session in memory and exports it to JSON when the
// session ends.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	entries   []core.CombatLogEntry
	latest    *core.Snapshot
	snapshots int

	endTime        time.Time
	lastExportPath string
	lastExportMeta core.UploadMetadata

	now func() time.Time
	mu  sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
		now: time.Now,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and drops anything held from
// the previous one.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := *s
	if cp.StartTime.IsZero() {
		cp.StartTime = b.now()
	}
	b.session = &cp
	b.entries = nil
	b.latest = nil
	b.snapshots = 0
	b.endTime = time.Time{}

	return nil
}

// EndSession finalizes and exports the session.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	b.endTime = b.now()
	return b.exportJSON()
}

// RecordLogEntry appends a resolved combat event.
func (b *Backend) RecordLogEntry(e *core.CombatLogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, *e)
	return nil
}

// RecordSnapshot keeps the most recent snapshot for the export.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *s
	b.latest = &cp
	b.snapshots++
	return nil
}

// Entries returns a copy of the recorded log entries.
func (b *Backend) Entries() []core.CombatLogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.CombatLogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// SnapshotCount returns how many snapshots were recorded this session.
func (b *Backend) SnapshotCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshots
}

// GetExportedFilePath returns the path of the last export, or "" before the
// first session ended.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
