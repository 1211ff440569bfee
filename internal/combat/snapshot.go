package combat

import "github.com/dmhelper/extension/pkg/core"

// Snapshot returns a deep copy of the engine state for display and storage.
func (e *Engine) Snapshot() core.Snapshot {
	snap := core.Snapshot{
		Taken:   e.clock(),
		Phase:   e.phase.Current(),
		LogSize: e.feed.Len(),
	}

	for _, m := range e.members {
		snap.Combatants = append(snap.Combatants, e.combatantView(m.ID, m.Name, false, false))
	}
	for _, c := range e.adHoc {
		snap.Combatants = append(snap.Combatants, e.combatantView(c.ID, c.Name, true, c.Listening))
	}

	for _, a := range e.adversaries {
		snap.Adversaries = append(snap.Adversaries, core.AdversaryView{
			Adversary:       *a,
			Targets:         e.targets.AdversaryTargets(a.ID),
			TargetedByCount: e.TargetedByPlayers(a.ID),
		})
	}
	return snap
}

func (e *Engine) combatantView(id core.CombatantID, name string, adHoc, listening bool) core.CombatantView {
	v := core.CombatantView{
		ID:         id,
		Name:       name,
		Initials:   core.Initials(name),
		AdHoc:      adHoc,
		Listening:  listening,
		Targets:    e.targets.PlayerTargets(id),
		TargetedBy: e.TargetedByAdversaries(id),
	}
	if s, ok := e.players[id]; ok {
		v.State = *s
	}
	if roll, ok := e.ledger.Roll(id); ok {
		v.Roll = &roll
		v.Highlight = core.ClassifyRoll(roll, e.cfg.MaxRollValue)
	}
	return v
}

// Summary returns the counters shown on the DM status line.
func (e *Engine) Summary() core.Summary {
	s := core.Summary{
		Phase: e.phase.Current(),
		Total: len(e.members) + len(e.adHoc),
	}
	if s.Phase != core.PhaseNone {
		s.Rolled = e.ledger.Len()
	}
	for _, a := range e.adversaries {
		if a.Active() {
			s.Engaged++
			if e.TargetedByPlayers(a.ID) > 0 {
				s.TargetedByPlayer++
			}
		}
		if e.targets.HasAdversaryTargets(a.ID) {
			s.WithTargets++
		}
	}
	return s
}
