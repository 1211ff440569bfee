package parser

import (
	"fmt"

	"github.com/dmhelper/extension/internal/util"
	"github.com/dmhelper/extension/pkg/core"
)

// AdversaryRequest is a parsed :ADVERSARY:ADD: command.
// HP and DC are nil when the DM left them out and configured defaults apply.
type AdversaryRequest struct {
	Name string
	HP   *int
	DC   *int
}

// PlayerHPRequest is a parsed :PLAYER:HP: command.
type PlayerHPRequest struct {
	ID      core.CombatantID
	MaxHP   int
	Current int
}

// ParseAdversaryAdd parses [name, hp?, dc?].
func (p *Parser) ParseAdversaryAdd(data []string) (AdversaryRequest, error) {
	var req AdversaryRequest
	if len(data) < 1 {
		return req, fmt.Errorf("adversary add: missing name")
	}
	util.CleanArgs(data)

	req.Name = data[0]
	if req.Name == "" {
		return req, fmt.Errorf("adversary add: empty name")
	}

	if len(data) > 1 && data[1] != "" {
		hp, err := ParseInt(data[1])
		if err != nil {
			return req, fmt.Errorf("error converting adversary hp: %w", err)
		}
		req.HP = &hp
	}
	if len(data) > 2 && data[2] != "" {
		dc, err := ParseInt(data[2])
		if err != nil {
			return req, fmt.Errorf("error converting adversary dc: %w", err)
		}
		req.DC = &dc
	}
	return req, nil
}

// ParsePlayerHP parses [combatantID, max, current].
func (p *Parser) ParsePlayerHP(data []string) (PlayerHPRequest, error) {
	var req PlayerHPRequest
	if len(data) < 3 {
		return req, fmt.Errorf("player hp: expected 3 args, got %d", len(data))
	}
	util.CleanArgs(data)

	id, err := ParseCombatantID(data[0])
	if err != nil {
		return req, err
	}
	req.ID = id

	if req.MaxHP, err = ParseInt(data[1]); err != nil {
		return req, fmt.Errorf("error converting max hp: %w", err)
	}
	if req.Current, err = ParseInt(data[2]); err != nil {
		return req, fmt.Errorf("error converting current hp: %w", err)
	}
	return req, nil
}

// ParseTargetPair parses a [combatantID, adversaryID] pair in either order.
// combatantFirst selects the :TARGET:PLAYER: layout.
func (p *Parser) ParseTargetPair(data []string, combatantFirst bool) (core.CombatantID, core.AdversaryID, error) {
	var adversary core.AdversaryID
	if len(data) < 2 {
		return 0, adversary, fmt.Errorf("target: expected 2 args, got %d", len(data))
	}
	util.CleanArgs(data)

	ci, ai := 0, 1
	if !combatantFirst {
		ci, ai = 1, 0
	}
	combatant, err := ParseCombatantID(data[ci])
	if err != nil {
		return 0, adversary, err
	}
	adversary, err = ParseAdversaryID(data[ai])
	if err != nil {
		return 0, adversary, err
	}
	return combatant, adversary, nil
}
