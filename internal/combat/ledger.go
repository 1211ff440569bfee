package combat

import "github.com/dmhelper/extension/pkg/core"

// Ledger stores the rolls captured during the current phase, one per combatant.
// Iteration follows first-capture order; a later capture overwrites the value in place.
type Ledger struct {
	rolls map[core.CombatantID]int
	order []core.CombatantID
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{rolls: make(map[core.CombatantID]int)}
}

// Record stores roll for id, replacing any earlier value.
func (l *Ledger) Record(id core.CombatantID, roll int) {
	if _, ok := l.rolls[id]; !ok {
		l.order = append(l.order, id)
	}
	l.rolls[id] = roll
}

// Roll returns the captured value for id.
func (l *Ledger) Roll(id core.CombatantID) (int, bool) {
	r, ok := l.rolls[id]
	return r, ok
}

// Remove forgets id's roll.
func (l *Ledger) Remove(id core.CombatantID) {
	if _, ok := l.rolls[id]; !ok {
		return
	}
	delete(l.rolls, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// IDs returns the combatants with a roll in capture order.
func (l *Ledger) IDs() []core.CombatantID {
	out := make([]core.CombatantID, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of captured rolls.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Clear drops every roll.
func (l *Ledger) Clear() {
	clear(l.rolls)
	l.order = l.order[:0]
}
