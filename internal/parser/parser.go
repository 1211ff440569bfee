package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmhelper/extension/pkg/core"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Host bridges frequently serialize every number as a float.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Parser provides pure []string -> core struct conversion for host commands.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{
		logger: logger,
		now:    time.Now,
	}
}

// ParseCombatantID parses a host entity or ad-hoc identifier.
func ParseCombatantID(s string) (core.CombatantID, error) {
	v, err := parseUintFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("error converting combatant id: %w", err)
	}
	if v > 0xFFFFFFFF {
		return 0, fmt.Errorf("combatant id %d out of range", v)
	}
	return core.CombatantID(v), nil
}

// ParseAdversaryID parses an adversary UUID.
func ParseAdversaryID(s string) (core.AdversaryID, error) {
	id, err := core.ParseAdversaryID(s)
	if err != nil {
		return id, fmt.Errorf("error converting adversary id: %w", err)
	}
	return id, nil
}

// ParseInt parses a DM-entered number, tolerating float formatting.
func ParseInt(s string) (int, error) {
	v, err := parseIntFromFloat(s)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
