// Package combat adjudicates chat-announced rolls against DM-declared targets.
package combat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/dmhelper/extension/internal/combatlog"
	"github.com/dmhelper/extension/internal/dice"
	"github.com/dmhelper/extension/internal/narrative"
	"github.com/dmhelper/extension/internal/parser"
	"github.com/dmhelper/extension/internal/resolver"
	"github.com/dmhelper/extension/pkg/core"
)

// RosterProvider reports the real party members currently in the group.
type RosterProvider interface {
	Members(ctx context.Context) ([]core.RosterMember, error)
}

// Phraser renders narrative text for a log entry.
type Phraser interface {
	Phrase(c narrative.Category, actor, target string, damage int) string
}

// Dependencies are the collaborators handed to New. Nil fields get defaults.
type Dependencies struct {
	Roster    RosterProvider
	Narrative Phraser
	Dice      dice.Source
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Engine owns every piece of combat state: phase, ledger, registry, hit points and the log.
// It is not safe for concurrent use; session.Session serializes callers.
type Engine struct {
	cfg       Config
	roster    RosterProvider
	narrative Phraser
	dice      dice.Source
	logger    *slog.Logger
	clock     func() time.Time
	metrics   *metrics

	phase   *phaseMachine
	ledger  *Ledger
	targets *Registry
	feed    *combatlog.Log

	members     []core.RosterMember
	adHoc       []core.AdHocCombatant
	players     map[core.CombatantID]*core.PlayerState
	adversaries []*core.Adversary
}

// New creates an engine in phase None with an empty roster.
func New(cfg Config, deps Dependencies) (*Engine, error) {
	cfg = cfg.normalized()

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Narrative == nil {
		deps.Narrative = narrative.New(nil)
	}
	if deps.Dice == nil {
		d, err := dice.NewRandom()
		if err != nil {
			return nil, fmt.Errorf("seeding dice: %w", err)
		}
		deps.Dice = d
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		roster:    deps.Roster,
		narrative: deps.Narrative,
		dice:      deps.Dice,
		logger:    deps.Logger,
		clock:     deps.Clock,
		metrics:   m,
		ledger:    NewLedger(),
		targets:   NewRegistry(),
		feed:      combatlog.New(cfg.FeedMaxEntries),
		players:   make(map[core.CombatantID]*core.PlayerState),
	}
	e.phase = newPhaseMachine(func(from, to core.Phase) {
		e.logger.Info("Phase changed", "from", from, "to", to)
	})
	return e, nil
}

// Config returns the active rules.
func (e *Engine) Config() Config {
	return e.cfg
}

// SetConfig replaces the rules. The feed cap takes effect immediately.
func (e *Engine) SetConfig(cfg Config) {
	e.cfg = cfg.normalized()
	e.feed.SetMax(e.cfg.FeedMaxEntries)
}

// Roster

// RefreshRoster replaces the party roster from the configured provider.
func (e *Engine) RefreshRoster(ctx context.Context) error {
	if e.roster == nil {
		return nil
	}
	members, err := e.roster.Members(ctx)
	if err != nil {
		return fmt.Errorf("refreshing roster: %w", err)
	}
	e.SetRoster(members)
	return nil
}

// SetRoster replaces the party roster. States of departed members are kept.
func (e *Engine) SetRoster(members []core.RosterMember) {
	e.members = slices.Clone(members)
	for _, m := range e.members {
		e.ensurePlayer(m.ID)
	}
	e.logger.Debug("Roster updated", "members", len(e.members))
}

// Roster returns the current party roster.
func (e *Engine) Roster() []core.RosterMember {
	return slices.Clone(e.members)
}

func (e *Engine) isKnown(id core.CombatantID) bool {
	if id.IsAdHoc() {
		return e.adHocIndex(id) >= 0
	}
	return slices.ContainsFunc(e.members, func(m core.RosterMember) bool { return m.ID == id })
}

// nameOf returns the display label used in log entries.
func (e *Engine) nameOf(id core.CombatantID) string {
	for _, m := range e.members {
		if m.ID == id {
			return resolver.BaseName(m.Name)
		}
	}
	if i := e.adHocIndex(id); i >= 0 {
		return e.adHoc[i].Name
	}
	return "Unknown"
}

// Player state

func (e *Engine) ensurePlayer(id core.CombatantID) *core.PlayerState {
	if s, ok := e.players[id]; ok {
		return s
	}
	s := &core.PlayerState{MaxHP: e.cfg.DefaultPlayerHP, CurrentHP: e.cfg.DefaultPlayerHP}
	e.players[id] = s
	return s
}

// PlayerState returns a copy of id's state.
func (e *Engine) PlayerState(id core.CombatantID) (core.PlayerState, bool) {
	s, ok := e.players[id]
	if !ok {
		return core.PlayerState{}, false
	}
	return *s, true
}

// SetPlayerHP sets both hit-point values. Max is at least 1 and current is kept within [0, max].
func (e *Engine) SetPlayerHP(id core.CombatantID, maxHP, current int) error {
	if !e.isKnown(id) {
		return fmt.Errorf("set hp for %d: %w", id, ErrUnknownCombatant)
	}
	s := e.ensurePlayer(id)
	s.MaxHP = max(maxHP, 1)
	s.CurrentHP = min(max(current, 0), s.MaxHP)
	return nil
}

// FullHeal restores id to maximum hit points.
func (e *Engine) FullHeal(id core.CombatantID) error {
	if !e.isKnown(id) {
		return fmt.Errorf("heal %d: %w", id, ErrUnknownCombatant)
	}
	s := e.ensurePlayer(id)
	s.CurrentHP = s.MaxHP
	return nil
}

// ClearStatuses blanks every transient status label.
func (e *Engine) ClearStatuses() {
	for _, s := range e.players {
		s.Status = core.StatusNone
	}
}

// Adversaries

// AdversaryOption overrides a default when adding an adversary.
type AdversaryOption func(*core.Adversary)

// WithHP sets max and current hit points, clamped to at least 1.
func WithHP(hp int) AdversaryOption {
	return func(a *core.Adversary) {
		a.MaxHP = max(hp, 1)
		a.CurrentHP = a.MaxHP
	}
}

// WithDC sets the difficulty threshold, clamped to at least 1.
func WithDC(dc int) AdversaryOption {
	return func(a *core.Adversary) {
		a.DC = max(dc, 1)
	}
}

// WithEngaged overrides the auto-engage setting.
func WithEngaged(engaged bool) AdversaryOption {
	return func(a *core.Adversary) {
		a.Engaged = engaged
	}
}

// AddAdversary creates an adversary from the configured defaults and the given options.
func (e *Engine) AddAdversary(name string, opts ...AdversaryOption) (core.Adversary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Adversary{}, fmt.Errorf("add adversary: %w", ErrEmptyName)
	}
	a := &core.Adversary{
		ID:        core.NewAdversaryID(),
		Name:      name,
		MaxHP:     e.cfg.DefaultMonsterHP,
		CurrentHP: e.cfg.DefaultMonsterHP,
		DC:        e.cfg.DefaultMonsterDC,
		Engaged:   e.cfg.AutoEngageOnAdd,
	}
	for _, opt := range opts {
		opt(a)
	}
	e.adversaries = append(e.adversaries, a)
	e.logger.Info("Adversary added", "adversary", a.Name, "id", a.ID, "hp", a.MaxHP, "dc", a.DC)
	return *a, nil
}

// RemoveAdversary deletes the adversary and every registry entry that names it.
func (e *Engine) RemoveAdversary(id core.AdversaryID) error {
	i := e.adversaryIndex(id)
	if i < 0 {
		return fmt.Errorf("remove adversary %s: %w", id, ErrUnknownAdversary)
	}
	name := e.adversaries[i].Name
	e.adversaries = slices.Delete(e.adversaries, i, i+1)
	e.targets.RemoveAdversary(id)
	e.logger.Info("Adversary removed", "adversary", name, "id", id)
	return nil
}

// SetAdversaryHP edits hit points. Max is at least 1 and current is kept within [0, max].
// An adversary brought to zero this way is disengaged.
func (e *Engine) SetAdversaryHP(id core.AdversaryID, maxHP, current int) error {
	a, err := e.adversary(id)
	if err != nil {
		return err
	}
	a.MaxHP = max(maxHP, 1)
	a.CurrentHP = min(max(current, 0), a.MaxHP)
	if !a.Alive() {
		a.Engaged = false
	}
	return nil
}

// SetAdversaryDC edits the difficulty threshold, clamped to at least 1.
func (e *Engine) SetAdversaryDC(id core.AdversaryID, dc int) error {
	a, err := e.adversary(id)
	if err != nil {
		return err
	}
	a.DC = max(dc, 1)
	return nil
}

// HealAdversary restores the adversary to full hit points and drops pending damage.
func (e *Engine) HealAdversary(id core.AdversaryID) error {
	a, err := e.adversary(id)
	if err != nil {
		return err
	}
	a.CurrentHP = a.MaxHP
	a.PendingDamage = 0
	return nil
}

// SetEngaged toggles participation in defense resolution. Defeated adversaries cannot engage.
func (e *Engine) SetEngaged(id core.AdversaryID, engaged bool) error {
	a, err := e.adversary(id)
	if err != nil {
		return err
	}
	if engaged && !a.Alive() {
		return fmt.Errorf("engage %s: %w", a.Name, ErrAdversaryDefeated)
	}
	a.Engaged = engaged
	return nil
}

// Adversary returns a copy of the adversary.
func (e *Engine) Adversary(id core.AdversaryID) (core.Adversary, bool) {
	i := e.adversaryIndex(id)
	if i < 0 {
		return core.Adversary{}, false
	}
	return *e.adversaries[i], true
}

// Adversaries returns copies in creation order.
func (e *Engine) Adversaries() []core.Adversary {
	out := make([]core.Adversary, len(e.adversaries))
	for i, a := range e.adversaries {
		out[i] = *a
	}
	return out
}

// PendingDamage returns the staged damage on the adversary.
func (e *Engine) PendingDamage(id core.AdversaryID) (int, error) {
	a, err := e.adversary(id)
	if err != nil {
		return 0, err
	}
	return a.PendingDamage, nil
}

func (e *Engine) adversaryIndex(id core.AdversaryID) int {
	return slices.IndexFunc(e.adversaries, func(a *core.Adversary) bool { return a.ID == id })
}

func (e *Engine) adversary(id core.AdversaryID) (*core.Adversary, error) {
	i := e.adversaryIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("adversary %s: %w", id, ErrUnknownAdversary)
	}
	return e.adversaries[i], nil
}

func (e *Engine) adversaryIDs() []core.AdversaryID {
	ids := make([]core.AdversaryID, len(e.adversaries))
	for i, a := range e.adversaries {
		ids[i] = a.ID
	}
	return ids
}

// Ad-hoc combatants

// AddAdHoc creates a DM-controlled combatant with default hit points.
func (e *Engine) AddAdHoc(name string) (core.AdHocCombatant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.AdHocCombatant{}, fmt.Errorf("add ad-hoc combatant: %w", ErrEmptyName)
	}
	c := core.AdHocCombatant{ID: e.nextAdHocID(), Name: name}
	e.adHoc = append(e.adHoc, c)
	e.ensurePlayer(c.ID)
	e.logger.Info("Ad-hoc combatant added", "name", c.Name, "id", c.ID)
	return c, nil
}

func (e *Engine) nextAdHocID() core.CombatantID {
	for {
		id := core.AdHocIDBase + core.CombatantID(rand.Uint32N(0x0FFFFFFF))
		if e.adHocIndex(id) < 0 {
			return id
		}
	}
}

// RemoveAdHoc deletes an ad-hoc combatant together with its state, roll and declarations.
func (e *Engine) RemoveAdHoc(id core.CombatantID) error {
	i, err := e.adHocLookup(id)
	if err != nil {
		return err
	}
	name := e.adHoc[i].Name
	e.adHoc = slices.Delete(e.adHoc, i, i+1)
	delete(e.players, id)
	e.ledger.Remove(id)
	e.targets.RemoveCombatant(id)
	e.logger.Info("Ad-hoc combatant removed", "name", name, "id", id)
	return nil
}

// SetAdHocListening routes Say-channel rolls to id. Enabling it clears the flag on every other ad-hoc combatant.
func (e *Engine) SetAdHocListening(id core.CombatantID, listening bool) error {
	i, err := e.adHocLookup(id)
	if err != nil {
		return err
	}
	if listening {
		for j := range e.adHoc {
			e.adHoc[j].Listening = false
		}
	}
	e.adHoc[i].Listening = listening
	return nil
}

// AdHoc returns the ad-hoc combatants in creation order.
func (e *Engine) AdHoc() []core.AdHocCombatant {
	return slices.Clone(e.adHoc)
}

func (e *Engine) adHocIndex(id core.CombatantID) int {
	return slices.IndexFunc(e.adHoc, func(c core.AdHocCombatant) bool { return c.ID == id })
}

func (e *Engine) adHocLookup(id core.CombatantID) (int, error) {
	if !id.IsAdHoc() {
		return -1, fmt.Errorf("combatant %d: %w", id, ErrNotAdHoc)
	}
	i := e.adHocIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("combatant %d: %w", id, ErrUnknownCombatant)
	}
	return i, nil
}

// Roll capture

// HandleChat captures a roll announcement. It reports the combatant and value
// when the message was stored; noise, unknown senders and rolls outside a phase return ok=false.
func (e *Engine) HandleChat(ev core.ChatEvent) (core.CombatantID, int, bool) {
	if e.phase.Current() == core.PhaseNone {
		return 0, 0, false
	}

	roll, ok := parser.ParseRoll(ev.Channel, ev.Message)
	if !ok {
		e.logger.Debug("No roll pattern matched", "channel", ev.Channel, "sender", ev.Sender)
		return 0, 0, false
	}

	id, name, ok := resolver.Resolve(ev.Channel, ev.Sender, e.members, e.adHoc)
	if !ok {
		if ev.Channel == core.ChannelSay {
			e.logger.Warn("Say roll ignored: no ad-hoc combatant is listening", "roll", roll)
		} else {
			e.logger.Warn("Roll ignored: sender not found in party", "sender", resolver.CleanSender(ev.Sender), "roll", roll)
		}
		return 0, 0, false
	}

	e.store(id, roll)
	e.logger.Info("Roll stored", "combatant", name, "roll", roll, "channel", ev.Channel)
	return id, roll, true
}

// RecordRoll stores a roll for a known combatant as if it arrived through chat.
// Outside a phase the roll is discarded and false is returned.
func (e *Engine) RecordRoll(id core.CombatantID, roll int) (bool, error) {
	if !e.isKnown(id) {
		return false, fmt.Errorf("record roll for %d: %w", id, ErrUnknownCombatant)
	}
	if e.phase.Current() == core.PhaseNone {
		return false, nil
	}
	e.store(id, roll)
	return true, nil
}

// RollForAdHoc draws a synthetic roll in [1, MaxRollValue] for an ad-hoc combatant.
// The value is returned even when no phase is active, in which case it is not stored.
func (e *Engine) RollForAdHoc(id core.CombatantID) (int, bool, error) {
	i, err := e.adHocLookup(id)
	if err != nil {
		return 0, false, err
	}
	roll := e.dice.Roll(e.cfg.MaxRollValue)
	e.logger.Info("Manual roll generated", "combatant", e.adHoc[i].Name, "roll", roll)
	if e.phase.Current() == core.PhaseNone {
		return roll, false, nil
	}
	e.store(id, roll)
	return roll, true, nil
}

func (e *Engine) store(id core.CombatantID, roll int) {
	e.ensurePlayer(id)
	e.ledger.Record(id, roll)
}

// HasRolled reports whether id has a roll captured in the current phase.
func (e *Engine) HasRolled(id core.CombatantID) bool {
	if e.phase.Current() == core.PhaseNone {
		return false
	}
	_, ok := e.ledger.Roll(id)
	return ok
}

// Roll returns id's captured roll.
func (e *Engine) Roll(id core.CombatantID) (int, bool) {
	return e.ledger.Roll(id)
}

// PendingRollCount returns the number of captured rolls awaiting resolution.
func (e *Engine) PendingRollCount() int {
	return e.ledger.Len()
}

// ClearRolls empties the ledger.
func (e *Engine) ClearRolls() {
	e.ledger.Clear()
}

// Targets

// DeclarePlayerTarget records that player attacks adversary.
func (e *Engine) DeclarePlayerTarget(player core.CombatantID, adversary core.AdversaryID) error {
	if err := e.checkPair(player, adversary); err != nil {
		return err
	}
	e.targets.DeclarePlayerTarget(player, adversary)
	return nil
}

// DeclareAllPlayerTargets makes player target every adversary still standing.
func (e *Engine) DeclareAllPlayerTargets(player core.CombatantID) error {
	if !e.isKnown(player) {
		return fmt.Errorf("combatant %d: %w", player, ErrUnknownCombatant)
	}
	var alive []core.AdversaryID
	for _, a := range e.adversaries {
		if a.Alive() {
			alive = append(alive, a.ID)
		}
	}
	e.targets.DeclareAllPlayerTargets(player, alive)
	return nil
}

// UndeclarePlayerTarget removes one attack declaration.
func (e *Engine) UndeclarePlayerTarget(player core.CombatantID, adversary core.AdversaryID) {
	e.targets.UndeclarePlayerTarget(player, adversary)
}

// DeclareAdversaryTarget records that adversary attacks player.
func (e *Engine) DeclareAdversaryTarget(adversary core.AdversaryID, player core.CombatantID) error {
	if err := e.checkPair(player, adversary); err != nil {
		return err
	}
	e.targets.DeclareAdversaryTarget(adversary, player)
	return nil
}

// UndeclareAdversaryTarget removes one defense declaration.
func (e *Engine) UndeclareAdversaryTarget(adversary core.AdversaryID, player core.CombatantID) {
	e.targets.UndeclareAdversaryTarget(adversary, player)
}

// ClearPlayerTargets empties one player's declarations.
func (e *Engine) ClearPlayerTargets(player core.CombatantID) {
	e.targets.ClearPlayerTargets(player)
}

// ClearAdversaryTargets empties one adversary's declarations.
func (e *Engine) ClearAdversaryTargets(adversary core.AdversaryID) {
	e.targets.ClearAdversaryTargets(adversary)
}

// ClearTargets empties the whole registry.
func (e *Engine) ClearTargets() {
	e.targets.ClearAll()
}

// PlayerTargets returns the adversaries player declared.
func (e *Engine) PlayerTargets(player core.CombatantID) []core.AdversaryID {
	return e.targets.PlayerTargets(player)
}

// AdversaryTargets returns the players adversary declared.
func (e *Engine) AdversaryTargets(adversary core.AdversaryID) []core.CombatantID {
	return e.targets.AdversaryTargets(adversary)
}

// TargetedByPlayers counts the players that declared adversary.
func (e *Engine) TargetedByPlayers(adversary core.AdversaryID) int {
	return e.targets.PlayersTargeting(adversary)
}

// TargetedByAdversaries returns the active adversaries that declared player.
func (e *Engine) TargetedByAdversaries(player core.CombatantID) []core.AdversaryID {
	var active []core.AdversaryID
	for _, a := range e.adversaries {
		if a.Active() {
			active = append(active, a.ID)
		}
	}
	return e.targets.AdversariesTargeting(player, active)
}

func (e *Engine) checkPair(player core.CombatantID, adversary core.AdversaryID) error {
	if !e.isKnown(player) {
		return fmt.Errorf("combatant %d: %w", player, ErrUnknownCombatant)
	}
	if e.adversaryIndex(adversary) < 0 {
		return fmt.Errorf("adversary %s: %w", adversary, ErrUnknownAdversary)
	}
	return nil
}

// Phase control

// Phase returns the current phase.
func (e *Engine) Phase() core.Phase {
	return e.phase.Current()
}

// SetPhase switches phase. Every call, including re-entry, clears statuses and the ledger.
// Declared targets survive so the DM can review rolls before resolving.
func (e *Engine) SetPhase(p core.Phase) error {
	if err := e.phase.Enter(p); err != nil {
		return err
	}
	e.ClearStatuses()
	e.ClearRolls()
	return nil
}

// Resolve adjudicates the current phase and returns the entries it appended.
// Rolls are cleared when configured; declarations are always cleared. The phase is unchanged.
// Outside a phase nothing happens. With no rolls captured only an info entry is added.
func (e *Engine) Resolve() []core.CombatLogEntry {
	phase := e.phase.Current()
	if phase == core.PhaseNone {
		return nil
	}
	if e.ledger.Len() == 0 {
		entry := e.info("", "No rolls to resolve.")
		e.feed.Append(entry)
		return []core.CombatLogEntry{entry}
	}

	var entries []core.CombatLogEntry
	switch phase {
	case core.PhaseAttack:
		entries = e.resolveAttack()
	case core.PhaseDefense:
		entries = e.resolveDefense()
	}
	e.metrics.resolved(phase)

	if e.cfg.ClearRollsAfterResolve {
		e.ClearRolls()
	}
	e.ClearTargets()
	return entries
}

// Log

// Log returns a copy of the combat feed.
func (e *Engine) Log() []core.CombatLogEntry {
	return e.feed.Entries()
}

// ClearLog empties the combat feed.
func (e *Engine) ClearLog() {
	e.feed.Clear()
}

func (e *Engine) emit(entries *[]core.CombatLogEntry, entry core.CombatLogEntry) {
	e.feed.Append(entry)
	*entries = append(*entries, entry)
}

func (e *Engine) info(actor, phrase string) core.CombatLogEntry {
	return core.CombatLogEntry{
		Timestamp: e.clock(),
		Actor:     actor,
		Kind:      core.KindInfo,
		Phrase:    phrase,
	}
}
