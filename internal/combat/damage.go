package combat

import (
	"github.com/dmhelper/extension/internal/narrative"
	"github.com/dmhelper/extension/pkg/core"
)

// ApplyPendingDamage commits staged damage and returns the defeat entries it appended.
// Adversaries reaching zero are disengaged. A second call with nothing staged is a no-op.
func (e *Engine) ApplyPendingDamage() []core.CombatLogEntry {
	var entries []core.CombatLogEntry

	for _, a := range e.adversaries {
		if a.PendingDamage <= 0 {
			continue
		}

		e.logger.Info("Applying damage", "adversary", a.Name, "damage", a.PendingDamage)
		a.CurrentHP = max(0, a.CurrentHP-a.PendingDamage)
		a.PendingDamage = 0

		if a.CurrentHP == 0 {
			a.Engaged = false
			e.metrics.outcome(outcomeDefeated)
			e.emit(&entries, core.CombatLogEntry{
				Timestamp: e.clock(),
				Actor:     a.Name,
				Target:    a.Name,
				Success:   true,
				Kind:      core.KindMonsterDefeated,
				Phrase:    e.narrative.Phrase(narrative.MonsterDefeated, "", a.Name, 0),
			})
		}
	}
	return entries
}
