package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmhelper/extension/pkg/core"
	"gorm.io/datatypes"
)

// Session is one recorded combat encounter.
type Session struct {
	ID               uint `gorm:"primarykey"`
	CreatedAt        time.Time
	Name             string `gorm:"size:128"`
	DM               string `gorm:"size:64"`
	Tag              string `gorm:"size:64;index"`
	ExtensionVersion string `gorm:"size:32"`
	StartTime        time.Time
	EndTime          *time.Time
	Entries          []LogEntry `gorm:"constraint:OnDelete:CASCADE"`
}

// LogEntry is one combat log line. Seq preserves the order entries were
// appended in, which timestamps alone cannot when a resolution emits
// several entries in the same instant.
type LogEntry struct {
	ID        uint      `gorm:"primarykey"`
	SessionID uint      `gorm:"index:idx_entry_order,priority:1"`
	Seq       uint64    `gorm:"index:idx_entry_order,priority:2"`
	Timestamp time.Time `gorm:"index"`
	Kind      string    `gorm:"size:32;index"`
	Actor     string    `gorm:"size:128"`
	Target    string    `gorm:"size:128"`
	Roll      int
	DC        int
	Success   bool
	Damage    int
	Phrase    string
}

// Snapshot stores the full session state as JSON.
type Snapshot struct {
	ID        uint `gorm:"primarykey"`
	SessionID uint `gorm:"index"`
	Taken     time.Time
	Phase     string `gorm:"size:16"`
	LogSize   int
	State     datatypes.JSON
}

// Models lists every table the schema migration creates.
var Models = []any{
	&Session{},
	&LogEntry{},
	&Snapshot{},
}

// SessionFromCore converts session metadata to its row.
func SessionFromCore(s core.Session) Session {
	return Session{
		ID:               s.ID,
		Name:             s.Name,
		DM:               s.DM,
		Tag:              s.Tag,
		ExtensionVersion: s.ExtensionVersion,
		StartTime:        s.StartTime,
	}
}

// EntryFromCore converts a log entry to its row.
func EntryFromCore(e core.CombatLogEntry) LogEntry {
	return LogEntry{
		Timestamp: e.Timestamp,
		Kind:      string(e.Kind),
		Actor:     e.Actor,
		Target:    e.Target,
		Roll:      e.Roll,
		DC:        e.DC,
		Success:   e.Success,
		Damage:    e.Damage,
		Phrase:    e.Phrase,
	}
}

// ToCore converts the row back to a log entry.
func (e LogEntry) ToCore() core.CombatLogEntry {
	return core.CombatLogEntry{
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Target:    e.Target,
		Roll:      e.Roll,
		DC:        e.DC,
		Success:   e.Success,
		Damage:    e.Damage,
		Kind:      core.EntryKind(e.Kind),
		Phrase:    e.Phrase,
	}
}

// SnapshotFromCore serializes a snapshot into its row.
func SnapshotFromCore(s core.Snapshot) (Snapshot, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return Snapshot{
		Taken:   s.Taken,
		Phase:   s.Phase.String(),
		LogSize: s.LogSize,
		State:   datatypes.JSON(raw),
	}, nil
}

// ToCore decodes the stored state.
func (s Snapshot) ToCore() (core.Snapshot, error) {
	var out core.Snapshot
	if err := json.Unmarshal(s.State, &out); err != nil {
		return out, fmt.Errorf("unmarshal snapshot %d: %w", s.ID, err)
	}
	return out, nil
}
