package combat

import (
	"github.com/dmhelper/extension/internal/narrative"
	"github.com/dmhelper/extension/pkg/core"
)

// resolveDefense checks each defender's roll against every active adversary that declared them.
func (e *Engine) resolveDefense() []core.CombatLogEntry {
	var entries []core.CombatLogEntry

	for _, id := range e.ledger.IDs() {
		player, ok := e.players[id]
		if !ok {
			continue
		}
		roll, _ := e.ledger.Roll(id)
		name := e.nameOf(id)

		var attackers []*core.Adversary
		for _, a := range e.adversaries {
			if a.Active() && e.targets.Targets(a.ID, id) {
				attackers = append(attackers, a)
			}
		}
		if len(attackers) == 0 {
			e.logger.Warn("Defense roll ignored: no adversary has declared this combatant", "combatant", name, "roll", roll)
			continue
		}

		for _, a := range attackers {
			e.defend(&entries, name, player, a, roll)
		}
	}
	return entries
}

func (e *Engine) defend(entries *[]core.CombatLogEntry, name string, player *core.PlayerState, a *core.Adversary, roll int) {
	success := roll >= a.DC
	damage := 0

	if success {
		player.Status = core.StatusDefended
		e.metrics.outcome(outcomeDefended)
	} else {
		damage = e.cfg.DefaultMonsterDamage
		player.Status = core.StatusFailed
		player.CurrentHP -= damage
		if e.cfg.ClampHPToZero && player.CurrentHP < 0 {
			player.CurrentHP = 0
		}
		e.metrics.outcome(outcomeFailed)

		if player.CurrentHP <= 0 {
			player.CurrentHP = 0
			e.logger.Info("Combatant downed", "combatant", name, "by", a.Name)
			e.metrics.outcome(outcomeDowned)
			e.emit(entries, core.CombatLogEntry{
				Timestamp: e.clock(),
				Actor:     a.Name,
				Target:    name,
				Success:   true,
				Kind:      core.KindPlayerDowned,
				Phrase:    e.narrative.Phrase(narrative.PlayerDowned, a.Name, name, 0),
			})
		}
	}

	e.emit(entries, core.CombatLogEntry{
		Timestamp: e.clock(),
		Actor:     a.Name,
		Target:    name,
		Roll:      roll,
		DC:        a.DC,
		Success:   success,
		Damage:    damage,
		Kind:      core.KindDefense,
		Phrase:    e.narrative.Phrase(narrative.ForOutcome(false, success), a.Name, name, damage),
	})
}
