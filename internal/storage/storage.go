// internal/storage/storage.go
package storage

import "github.com/dmhelper/extension/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// Recording
	RecordLogEntry(e *core.CombatLogEntry) error
	RecordSnapshot(s *core.Snapshot) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the companion web service.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Multi fans every call out to all backends. It returns the first error
// but still calls the remaining backends.
type Multi []Backend

func (m Multi) each(fn func(Backend) error) error {
	var first error
	for _, b := range m {
		if err := fn(b); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Init() error { return m.each(Backend.Init) }
func (m Multi) Close() error { return m.each(Backend.Close) }

func (m Multi) StartSession(s *core.Session) error {
	return m.each(func(b Backend) error { return b.StartSession(s) })
}

func (m Multi) EndSession() error { return m.each(Backend.EndSession) }

func (m Multi) RecordLogEntry(e *core.CombatLogEntry) error {
	return m.each(func(b Backend) error { return b.RecordLogEntry(e) })
}

func (m Multi) RecordSnapshot(s *core.Snapshot) error {
	return m.each(func(b Backend) error { return b.RecordSnapshot(s) })
}

// Uploadable returns the first backend that produces an uploadable export.
func (m Multi) Uploadable() (Uploadable, bool) {
	for _, b := range m {
		if u, ok := b.(Uploadable); ok {
			return u, true
		}
	}
	return nil, false
}
