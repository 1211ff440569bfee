package combat

import "errors"

var (
	// ErrUnknownAdversary is returned when a command names an adversary that does not exist.
	ErrUnknownAdversary = errors.New("unknown adversary")
	// ErrUnknownCombatant is returned when a command names a combatant outside the roster and ad-hoc list.
	ErrUnknownCombatant = errors.New("unknown combatant")
	// ErrNotAdHoc is returned when an ad-hoc operation targets a real party member.
	ErrNotAdHoc = errors.New("combatant is not ad-hoc")
	// ErrAdversaryDefeated is returned when engaging an adversary with no hit points.
	ErrAdversaryDefeated = errors.New("adversary is defeated")
	// ErrEmptyName is returned when a combatant or adversary is created without a name.
	ErrEmptyName = errors.New("name must not be empty")
)
