// pkg/core/combatant.go
package core

import (
	"strings"
	"unicode"
)

// CombatantID identifies a party member or ad-hoc combatant.
// Ad-hoc IDs live at AdHocIDBase and above so they never collide with host entity IDs.
type CombatantID uint32

// AdHocIDBase is the first identifier of the ad-hoc range.
const AdHocIDBase CombatantID = 0xF0000000

// IsAdHoc reports whether the ID falls inside the ad-hoc range.
func (id CombatantID) IsAdHoc() bool {
	return id >= AdHocIDBase
}

// Status labels set on a PlayerState by the last resolution.
const (
	StatusNone     = ""
	StatusHit      = "Hit"
	StatusMiss     = "Miss"
	StatusDefended = "Defended"
	StatusFailed   = "Failed"
)

// PlayerState tracks a combatant's hit points and last outcome.
type PlayerState struct {
	MaxHP     int    `json:"maxHp"`
	CurrentHP int    `json:"currentHp"`
	Status    string `json:"status"`
}

// IsSet reports whether hit points were ever configured for the combatant.
func (s PlayerState) IsSet() bool {
	return s.MaxHP > 0
}

// IsDown reports whether a configured combatant has no hit points left.
func (s PlayerState) IsDown() bool {
	return s.IsSet() && s.CurrentHP <= 0
}

// RosterMember is a real party member reported by the host.
type RosterMember struct {
	ID   CombatantID `json:"id"`
	Name string      `json:"name"`
}

// AdHocCombatant is a DM-created party member that exists only in this session.
type AdHocCombatant struct {
	ID        CombatantID `json:"id"`
	Name      string      `json:"name"`
	Listening bool        `json:"listening"`
}

// Initials shortens a display name to at most two upper-case letters.
func Initials(fullName string) string {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "?"
	case 1:
		return strings.ToUpper(string(firstRune(parts[0])))
	default:
		return strings.ToUpper(string(firstRune(parts[0])) + string(firstRune(parts[1])))
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return unicode.ToUpper(r)
	}
	return '?'
}
