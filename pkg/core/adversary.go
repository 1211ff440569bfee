// pkg/core/adversary.go
package core

import "github.com/google/uuid"

// AdversaryID identifies a hostile entity created by the DM.
type AdversaryID = uuid.UUID

// Adversary is a hostile entity with a hit-point pool and a difficulty threshold.
type Adversary struct {
	ID            AdversaryID `json:"id"`
	Name          string      `json:"name"`
	MaxHP         int         `json:"maxHp"`
	CurrentHP     int         `json:"currentHp"`
	DC            int         `json:"dc"`
	Engaged       bool        `json:"engaged"`
	PendingDamage int         `json:"pendingDamage"`
}

// Alive reports whether the adversary still has hit points.
func (a Adversary) Alive() bool {
	return a.CurrentHP > 0
}

// Active reports whether the adversary takes part in defense resolution.
func (a Adversary) Active() bool {
	return a.Engaged && a.Alive()
}

// NewAdversaryID returns a fresh random identifier.
func NewAdversaryID() AdversaryID {
	return uuid.New()
}

// ParseAdversaryID decodes the textual form of an identifier.
func ParseAdversaryID(s string) (AdversaryID, error) {
	return uuid.Parse(s)
}
