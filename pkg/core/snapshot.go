// pkg/core/snapshot.go
package core

import (
	"fmt"
	"time"
)

// RollHighlight classifies a roll against the configured die size.
type RollHighlight string

const (
	HighlightNone       RollHighlight = ""
	HighlightNaturalMax RollHighlight = "natural-max"
	HighlightNaturalOne RollHighlight = "natural-one"
)

// ClassifyRoll marks natural maximum and natural one rolls.
func ClassifyRoll(roll, maxRoll int) RollHighlight {
	switch {
	case maxRoll > 1 && roll == maxRoll:
		return HighlightNaturalMax
	case roll == 1:
		return HighlightNaturalOne
	default:
		return HighlightNone
	}
}

// CombatantView is a read-only row describing one combatant.
type CombatantView struct {
	ID        CombatantID   `json:"id"`
	Name      string        `json:"name"`
	Initials  string        `json:"initials"`
	AdHoc     bool          `json:"adHoc"`
	Listening bool          `json:"listening,omitempty"`
	State     PlayerState   `json:"state"`
	Roll      *int          `json:"roll,omitempty"`
	Highlight RollHighlight `json:"highlight,omitempty"`
	Targets   []AdversaryID `json:"targets,omitempty"`
	// TargetedBy lists active adversaries that declared this combatant.
	TargetedBy []AdversaryID `json:"targetedBy,omitempty"`
}

// AdversaryView is a read-only row describing one adversary.
type AdversaryView struct {
	Adversary
	Targets []CombatantID `json:"targets,omitempty"`
	// TargetedByCount is the number of players that declared this adversary.
	TargetedByCount int `json:"targetedByCount"`
}

// Snapshot is a deep copy of the session state taken between events.
type Snapshot struct {
	Taken       time.Time       `json:"taken"`
	Phase       Phase           `json:"phase"`
	Combatants  []CombatantView `json:"combatants"`
	Adversaries []AdversaryView `json:"adversaries"`
	LogSize     int             `json:"logSize"`
}

// Summary mirrors the DM status line for the current phase.
type Summary struct {
	Phase            Phase `json:"phase"`
	Rolled           int   `json:"rolled"`
	Total            int   `json:"total"`
	Engaged          int   `json:"engaged"`
	TargetedByPlayer int   `json:"targetedByPlayer"`
	WithTargets      int   `json:"withTargets"`
}

// String renders the status line for the current phase.
func (s Summary) String() string {
	switch s.Phase {
	case PhaseAttack:
		return fmt.Sprintf("Attack phase: %d/%d rolled, %d/%d adversaries targeted", s.Rolled, s.Total, s.TargetedByPlayer, s.Engaged)
	case PhaseDefense:
		return fmt.Sprintf("Defense phase: %d/%d rolled, %d adversaries with targets", s.Rolled, s.Total, s.WithTargets)
	default:
		return "No phase selected"
	}
}
