// Package combatlog holds the append-only combat feed.
package combatlog

import (
	"fmt"
	"strings"

	"github.com/dmhelper/extension/pkg/core"
)

// Log is an append-only list of resolved events.
// When max is positive the oldest entries are dropped once the cap is exceeded.
// Log is not safe for concurrent use; the owning session serializes access.
type Log struct {
	entries []core.CombatLogEntry
	max     int
}

// New creates a log capped at limit entries. Zero or negative means unlimited.
func New(limit int) *Log {
	return &Log{max: limit}
}

// Append adds entries in order and enforces the cap.
func (l *Log) Append(entries ...core.CombatLogEntry) {
	l.entries = append(l.entries, entries...)
	l.trim()
}

// SetMax changes the cap and trims immediately.
func (l *Log) SetMax(limit int) {
	l.max = limit
	l.trim()
}

// Max returns the configured cap.
func (l *Log) Max() int {
	return l.max
}

func (l *Log) trim() {
	if l.max <= 0 || len(l.entries) <= l.max {
		return
	}
	drop := len(l.entries) - l.max
	l.entries = append(l.entries[:0], l.entries[drop:]...)
}

// Entries returns a copy of the current entries, oldest first.
func (l *Log) Entries() []core.CombatLogEntry {
	out := make([]core.CombatLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.entries = nil
}

// Render formats an entry for a text feed.
// With breakdown set, attack and defense entries carry the roll, threshold and damage.
func Render(e core.CombatLogEntry, breakdown bool) string {
	text := e.Phrase
	if text == "" {
		text = fallbackText(e)
	}

	if !breakdown || (e.Kind != core.KindAttack && e.Kind != core.KindDefense) {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	fmt.Fprintf(&b, " [%d vs %d", e.Roll, e.DC)
	if e.Damage > 0 {
		fmt.Fprintf(&b, ", %d dmg", e.Damage)
	}
	b.WriteByte(']')
	return b.String()
}

func fallbackText(e core.CombatLogEntry) string {
	switch e.Kind {
	case core.KindAttack, core.KindDefense:
		if e.Success {
			return fmt.Sprintf("%s hits %s (%d vs %d) for %d damage.", e.Actor, e.Target, e.Roll, e.DC, e.Damage)
		}
		return fmt.Sprintf("%s fails against %s (%d vs %d).", e.Actor, e.Target, e.Roll, e.DC)
	case core.KindMonsterDefeated:
		return fmt.Sprintf("%s is defeated.", e.Target)
	case core.KindPlayerDowned:
		return fmt.Sprintf("%s is downed by %s.", e.Target, e.Actor)
	}
	return e.Actor
}
