package combat

import (
	"slices"

	"github.com/dmhelper/extension/pkg/core"
)

// orderedSet keeps insertion order and rejects duplicates.
type orderedSet[T comparable] []T

func (s orderedSet[T]) with(v T) orderedSet[T] {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

func (s orderedSet[T]) without(v T) orderedSet[T] {
	return slices.DeleteFunc(s, func(x T) bool { return x == v })
}

// Registry records which adversaries each player attacks and which players each adversary attacks.
// The two directions are declared independently and need not agree.
type Registry struct {
	playerTargets    map[core.CombatantID]orderedSet[core.AdversaryID]
	adversaryTargets map[core.AdversaryID]orderedSet[core.CombatantID]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		playerTargets:    make(map[core.CombatantID]orderedSet[core.AdversaryID]),
		adversaryTargets: make(map[core.AdversaryID]orderedSet[core.CombatantID]),
	}
}

// DeclarePlayerTarget marks adversary as one of player's targets.
func (r *Registry) DeclarePlayerTarget(player core.CombatantID, adversary core.AdversaryID) {
	r.playerTargets[player] = r.playerTargets[player].with(adversary)
}

// DeclareAllPlayerTargets adds every adversary in order.
func (r *Registry) DeclareAllPlayerTargets(player core.CombatantID, adversaries []core.AdversaryID) {
	for _, a := range adversaries {
		r.DeclarePlayerTarget(player, a)
	}
}

// DeclareAdversaryTarget marks player as one of adversary's targets.
func (r *Registry) DeclareAdversaryTarget(adversary core.AdversaryID, player core.CombatantID) {
	r.adversaryTargets[adversary] = r.adversaryTargets[adversary].with(player)
}

// UndeclarePlayerTarget removes a single declaration.
func (r *Registry) UndeclarePlayerTarget(player core.CombatantID, adversary core.AdversaryID) {
	set, ok := r.playerTargets[player]
	if !ok {
		return
	}
	if set = set.without(adversary); len(set) == 0 {
		delete(r.playerTargets, player)
		return
	}
	r.playerTargets[player] = set
}

// UndeclareAdversaryTarget removes a single declaration.
func (r *Registry) UndeclareAdversaryTarget(adversary core.AdversaryID, player core.CombatantID) {
	set, ok := r.adversaryTargets[adversary]
	if !ok {
		return
	}
	if set = set.without(player); len(set) == 0 {
		delete(r.adversaryTargets, adversary)
		return
	}
	r.adversaryTargets[adversary] = set
}

// ClearPlayerTargets empties player's whole target set.
func (r *Registry) ClearPlayerTargets(player core.CombatantID) {
	delete(r.playerTargets, player)
}

// ClearAdversaryTargets empties adversary's whole target set.
func (r *Registry) ClearAdversaryTargets(adversary core.AdversaryID) {
	delete(r.adversaryTargets, adversary)
}

// ClearAll empties both directions.
func (r *Registry) ClearAll() {
	clear(r.playerTargets)
	clear(r.adversaryTargets)
}

// RemoveAdversary purges every reference to adversary.
func (r *Registry) RemoveAdversary(adversary core.AdversaryID) {
	for player := range r.playerTargets {
		r.UndeclarePlayerTarget(player, adversary)
	}
	delete(r.adversaryTargets, adversary)
}

// RemoveCombatant purges every reference to player.
func (r *Registry) RemoveCombatant(player core.CombatantID) {
	delete(r.playerTargets, player)
	for adversary := range r.adversaryTargets {
		r.UndeclareAdversaryTarget(adversary, player)
	}
}

// PlayerTargets returns player's declared adversaries in declaration order.
func (r *Registry) PlayerTargets(player core.CombatantID) []core.AdversaryID {
	return slices.Clone(r.playerTargets[player])
}

// AdversaryTargets returns adversary's declared players in declaration order.
func (r *Registry) AdversaryTargets(adversary core.AdversaryID) []core.CombatantID {
	return slices.Clone(r.adversaryTargets[adversary])
}

// Targets reports whether adversary has declared player.
func (r *Registry) Targets(adversary core.AdversaryID, player core.CombatantID) bool {
	return slices.Contains(r.adversaryTargets[adversary], player)
}

// PlayersTargeting counts the players that declared adversary.
func (r *Registry) PlayersTargeting(adversary core.AdversaryID) int {
	n := 0
	for _, set := range r.playerTargets {
		if slices.Contains(set, adversary) {
			n++
		}
	}
	return n
}

// AdversariesTargeting returns the adversaries, among candidates, that declared player.
func (r *Registry) AdversariesTargeting(player core.CombatantID, candidates []core.AdversaryID) []core.AdversaryID {
	var out []core.AdversaryID
	for _, a := range candidates {
		if r.Targets(a, player) {
			out = append(out, a)
		}
	}
	return out
}

// HasAdversaryTargets reports whether adversary declared anyone.
func (r *Registry) HasAdversaryTargets(adversary core.AdversaryID) bool {
	return len(r.adversaryTargets[adversary]) > 0
}
