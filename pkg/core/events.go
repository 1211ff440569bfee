// pkg/core/events.go
package core

import "time"

// ChatChannel is the host chat channel a message arrived on.
type ChatChannel string

const (
	// ChannelParty is the wide channel where real party members announce rolls.
	ChannelParty ChatChannel = "Party"
	// ChannelSay is the narrow channel routed to the listening ad-hoc combatant.
	ChannelSay ChatChannel = "Say"
	// ChannelOther covers every channel the engine does not watch.
	ChannelOther ChatChannel = "Other"
)

// ChatEvent is a chat message delivered by the host.
type ChatEvent struct {
	Time    time.Time
	Channel ChatChannel
	Sender  string
	Message string
}

// EntryKind tags a combat log entry with the event that produced it.
type EntryKind string

const (
	KindAttack          EntryKind = "Attack"
	KindDefense         EntryKind = "Defense"
	KindMonsterDefeated EntryKind = "MonsterDefeated"
	KindPlayerDowned    EntryKind = "PlayerDowned"
	KindInfo            EntryKind = "Info"
)

// CombatLogEntry is an immutable record of a resolved event.
type CombatLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Target    string    `json:"target"`
	Roll      int       `json:"roll"`
	DC        int       `json:"dc"`
	Success   bool      `json:"success"`
	Damage    int       `json:"damage"`
	Kind      EntryKind `json:"kind"`
	Phrase    string    `json:"phrase"`
}
