// pkg/core/phase.go
package core

import (
	"fmt"
	"strings"
)

// Phase is the current round phase. It governs how captured rolls are read.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseAttack
	PhaseDefense
)

// String returns the lowercase phase name used in host commands and logs.
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseAttack:
		return "attack"
	case PhaseDefense:
		return "defense"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase accepts the names produced by String, case-insensitively.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return PhaseNone, nil
	case "attack":
		return PhaseAttack, nil
	case "defense", "defence":
		return PhaseDefense, nil
	}
	return PhaseNone, fmt.Errorf("unknown phase %q", s)
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
