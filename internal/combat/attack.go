package combat

import (
	"fmt"

	"github.com/dmhelper/extension/internal/narrative"
	"github.com/dmhelper/extension/pkg/core"
)

// resolveAttack fans each attacker's single roll out to every declared target still standing.
func (e *Engine) resolveAttack() []core.CombatLogEntry {
	var entries []core.CombatLogEntry

	for _, id := range e.ledger.IDs() {
		player, ok := e.players[id]
		if !ok {
			continue
		}
		roll, _ := e.ledger.Roll(id)
		name := e.nameOf(id)

		targets := e.targets.PlayerTargets(id)
		if len(targets) == 0 {
			e.logger.Warn("Attack roll has no declared targets, skipping", "combatant", name, "roll", roll)
			continue
		}

		resolved := 0
		for _, adversaryID := range targets {
			i := e.adversaryIndex(adversaryID)
			if i < 0 || !e.adversaries[i].Alive() {
				continue
			}
			e.emit(&entries, e.attack(name, player, e.adversaries[i], roll))
			resolved++
		}

		if resolved == 0 {
			e.emit(&entries, e.info(name, fmt.Sprintf("%s's targets were already defeated. Nothing to resolve.", name)))
		}
	}

	if e.cfg.AutoApplyDamage {
		entries = append(entries, e.ApplyPendingDamage()...)
	}
	return entries
}

func (e *Engine) attack(name string, player *core.PlayerState, a *core.Adversary, roll int) core.CombatLogEntry {
	success := roll >= a.DC
	damage := 0
	if success {
		damage = e.cfg.DefaultPlayerDamage
		player.Status = core.StatusHit
		a.PendingDamage += damage
		e.metrics.outcome(outcomeHit)
	} else {
		player.Status = core.StatusMiss
		e.metrics.outcome(outcomeMiss)
	}

	return core.CombatLogEntry{
		Timestamp: e.clock(),
		Actor:     name,
		Target:    a.Name,
		Roll:      roll,
		DC:        a.DC,
		Success:   success,
		Damage:    damage,
		Kind:      core.KindAttack,
		Phrase:    e.narrative.Phrase(narrative.ForOutcome(true, success), name, a.Name, damage),
	}
}
