// Package session serializes every chat callback and DM command onto a single
// combat engine and forwards the results to storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmhelper/extension/internal/combat"
	"github.com/dmhelper/extension/internal/storage"
	"github.com/dmhelper/extension/pkg/core"
)

var (
	// ErrRecording is returned when starting a recording while one is active.
	ErrRecording = errors.New("a session is already being recorded")
	// ErrNotRecording is returned when ending a recording that was never started.
	ErrNotRecording = errors.New("no session is being recorded")
)

// Dependencies holds the collaborators of a Session.
type Dependencies struct {
	Engine  *combat.Engine
	Backend storage.Backend
	Logger  *slog.Logger
	// ExtensionVersion is stamped on recorded sessions.
	ExtensionVersion string
	Clock            func() time.Time
}

// Session owns the engine. All methods are safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	engine  *combat.Engine
	backend storage.Backend
	logger  *slog.Logger
	version string
	clock   func() time.Time

	recording *core.Session

	// mirrors engine.Phase for log context without taking mu
	phase atomic.Int32
}

// New wraps an engine. Backend may be nil, in which case nothing is recorded.
func New(deps Dependencies) (*Session, error) {
	if deps.Engine == nil {
		return nil, errors.New("session: engine is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Session{
		engine:  deps.Engine,
		backend: deps.Backend,
		logger:  deps.Logger,
		version: deps.ExtensionVersion,
		clock:   deps.Clock,
	}, nil
}

// LogContext returns attributes added to every log record.
func (s *Session) LogContext() []slog.Attr {
	return []slog.Attr{slog.String("phase", core.Phase(s.phase.Load()).String())}
}

// Recording

// Start begins recording to the storage backend.
func (s *Session) Start(name, dm, tag string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording != nil {
		return core.Session{}, ErrRecording
	}
	rec := &core.Session{
		Name:             strings.TrimSpace(name),
		DM:               strings.TrimSpace(dm),
		Tag:              strings.TrimSpace(tag),
		ExtensionVersion: s.version,
		StartTime:        s.clock(),
	}
	if s.backend != nil {
		if err := s.backend.StartSession(rec); err != nil {
			return core.Session{}, fmt.Errorf("start session: %w", err)
		}
	}
	s.recording = rec
	s.logger.Info("Session recording started", "name", rec.Name, "dm", rec.DM, "id", rec.ID)
	s.recordSnapshot()
	return *rec, nil
}

// End stops recording. When the backend produces an export, its location
// and metadata are returned with ok=true.
func (s *Session) End() (path string, meta core.UploadMetadata, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording == nil {
		return "", core.UploadMetadata{}, false, ErrNotRecording
	}
	name := s.recording.Name
	s.recording = nil

	if s.backend == nil {
		return "", core.UploadMetadata{}, false, nil
	}
	if err := s.backend.EndSession(); err != nil {
		return "", core.UploadMetadata{}, false, fmt.Errorf("end session: %w", err)
	}
	s.logger.Info("Session recording ended", "name", name)

	if u, found := uploadable(s.backend); found && u.GetExportedFilePath() != "" {
		return u.GetExportedFilePath(), u.GetExportMetadata(), true, nil
	}
	return "", core.UploadMetadata{}, false, nil
}

func uploadable(b storage.Backend) (storage.Uploadable, bool) {
	if m, ok := b.(storage.Multi); ok {
		return m.Uploadable()
	}
	u, ok := b.(storage.Uploadable)
	return u, ok
}

// Recording returns the active recording.
func (s *Session) Recording() (core.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording == nil {
		return core.Session{}, false
	}
	return *s.recording, true
}

// Close ends an active recording.
func (s *Session) Close() error {
	if _, _, _, err := s.End(); err != nil && !errors.Is(err, ErrNotRecording) {
		return err
	}
	return nil
}

// mutate runs fn under the lock, then forwards the entries it produced and a
// fresh snapshot to storage.
func (s *Session) mutate(fn func() ([]core.CombatLogEntry, error)) ([]core.CombatLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := fn()
	s.phase.Store(int32(s.engine.Phase()))
	if err != nil {
		return nil, err
	}
	s.recordEntries(entries)
	s.recordSnapshot()
	return entries, nil
}

func (s *Session) do(fn func() error) error {
	_, err := s.mutate(func() ([]core.CombatLogEntry, error) {
		return nil, fn()
	})
	return err
}

func (s *Session) recordEntries(entries []core.CombatLogEntry) {
	if s.recording == nil || s.backend == nil {
		return
	}
	for i := range entries {
		if err := s.backend.RecordLogEntry(&entries[i]); err != nil {
			s.logger.Warn("Failed to record log entry", "error", err, "kind", entries[i].Kind)
		}
	}
}

func (s *Session) recordSnapshot() {
	if s.recording == nil || s.backend == nil {
		return
	}
	snap := s.engine.Snapshot()
	if err := s.backend.RecordSnapshot(&snap); err != nil {
		s.logger.Warn("Failed to record snapshot", "error", err)
	}
}

// Chat

// HandleChat captures a roll announcement.
func (s *Session) HandleChat(ev core.ChatEvent) (core.CombatantID, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, roll, ok := s.engine.HandleChat(ev)
	if ok {
		s.recordSnapshot()
	}
	return id, roll, ok
}

// Queries

// Phase returns the current phase.
func (s *Session) Phase() core.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Phase()
}

// HasRolled reports whether id has a roll captured in the current phase.
func (s *Session) HasRolled(id core.CombatantID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.HasRolled(id)
}

// PendingRollCount returns the number of captured rolls.
func (s *Session) PendingRollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.PendingRollCount()
}

// Log returns a copy of the combat feed.
func (s *Session) Log() []core.CombatLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Log()
}

// PendingDamage returns the staged damage on an adversary.
func (s *Session) PendingDamage(id core.AdversaryID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.PendingDamage(id)
}

// Snapshot returns a deep copy of the whole state.
func (s *Session) Snapshot() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Summary returns the DM status line counters.
func (s *Session) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Summary()
}

// PlayerState returns a copy of a combatant's hit points and status.
func (s *Session) PlayerState(id core.CombatantID) (core.PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.PlayerState(id)
}

// Adversary returns a copy of one adversary.
func (s *Session) Adversary(id core.AdversaryID) (core.Adversary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Adversary(id)
}

// Config returns the active combat rules.
func (s *Session) Config() combat.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Config()
}

// Phase and resolution

// SetPhase switches phase and resets statuses and rolls.
func (s *Session) SetPhase(p core.Phase) error {
	return s.do(func() error { return s.engine.SetPhase(p) })
}

// Resolve adjudicates the current phase.
func (s *Session) Resolve() []core.CombatLogEntry {
	entries, _ := s.mutate(func() ([]core.CombatLogEntry, error) {
		return s.engine.Resolve(), nil
	})
	return entries
}

// ApplyPendingDamage commits staged damage to adversaries.
func (s *Session) ApplyPendingDamage() []core.CombatLogEntry {
	entries, _ := s.mutate(func() ([]core.CombatLogEntry, error) {
		return s.engine.ApplyPendingDamage(), nil
	})
	return entries
}

// ClearRolls empties the ledger.
func (s *Session) ClearRolls() {
	_ = s.do(func() error { s.engine.ClearRolls(); return nil })
}

// ClearTargets empties the declaration registry.
func (s *Session) ClearTargets() {
	_ = s.do(func() error { s.engine.ClearTargets(); return nil })
}

// SetConfig swaps the combat rules, e.g. after a config reload.
func (s *Session) SetConfig(cfg combat.Config) {
	_ = s.do(func() error { s.engine.SetConfig(cfg); return nil })
}

// ClearLog empties the combat feed. Recorded entries are kept by storage.
func (s *Session) ClearLog() {
	_ = s.do(func() error { s.engine.ClearLog(); return nil })
}

// Targets

// DeclarePlayerTarget records that player attacks adversary.
func (s *Session) DeclarePlayerTarget(player core.CombatantID, adversary core.AdversaryID) error {
	return s.do(func() error { return s.engine.DeclarePlayerTarget(player, adversary) })
}

// DeclareAllPlayerTargets makes player target every adversary still standing.
func (s *Session) DeclareAllPlayerTargets(player core.CombatantID) error {
	return s.do(func() error { return s.engine.DeclareAllPlayerTargets(player) })
}

// UndeclarePlayerTarget removes one attack declaration.
func (s *Session) UndeclarePlayerTarget(player core.CombatantID, adversary core.AdversaryID) {
	_ = s.do(func() error { s.engine.UndeclarePlayerTarget(player, adversary); return nil })
}

// DeclareAdversaryTarget records that adversary attacks player.
func (s *Session) DeclareAdversaryTarget(adversary core.AdversaryID, player core.CombatantID) error {
	return s.do(func() error { return s.engine.DeclareAdversaryTarget(adversary, player) })
}

// UndeclareAdversaryTarget removes one defense declaration.
func (s *Session) UndeclareAdversaryTarget(adversary core.AdversaryID, player core.CombatantID) {
	_ = s.do(func() error { s.engine.UndeclareAdversaryTarget(adversary, player); return nil })
}

// ClearPlayerTargets empties one player's whole target set.
func (s *Session) ClearPlayerTargets(player core.CombatantID) {
	_ = s.do(func() error { s.engine.ClearPlayerTargets(player); return nil })
}

// ClearAdversaryTargets empties one adversary's whole target set.
func (s *Session) ClearAdversaryTargets(adversary core.AdversaryID) {
	_ = s.do(func() error { s.engine.ClearAdversaryTargets(adversary); return nil })
}

// Adversaries

// AddAdversary creates an adversary. Zero hp or dc keep the configured defaults.
func (s *Session) AddAdversary(name string, hp, dc int) (core.Adversary, error) {
	var a core.Adversary
	err := s.do(func() error {
		var opts []combat.AdversaryOption
		if hp > 0 {
			opts = append(opts, combat.WithHP(hp))
		}
		if dc > 0 {
			opts = append(opts, combat.WithDC(dc))
		}
		var err error
		a, err = s.engine.AddAdversary(name, opts...)
		return err
	})
	return a, err
}

// RemoveAdversary deletes an adversary and its declarations.
func (s *Session) RemoveAdversary(id core.AdversaryID) error {
	return s.do(func() error { return s.engine.RemoveAdversary(id) })
}

// SetAdversaryHP edits an adversary's hit points.
func (s *Session) SetAdversaryHP(id core.AdversaryID, maxHP, current int) error {
	return s.do(func() error { return s.engine.SetAdversaryHP(id, maxHP, current) })
}

// SetAdversaryDC edits an adversary's difficulty threshold.
func (s *Session) SetAdversaryDC(id core.AdversaryID, dc int) error {
	return s.do(func() error { return s.engine.SetAdversaryDC(id, dc) })
}

// HealAdversary restores an adversary to full hit points.
func (s *Session) HealAdversary(id core.AdversaryID) error {
	return s.do(func() error { return s.engine.HealAdversary(id) })
}

// SetEngaged toggles whether an adversary takes part in defense.
func (s *Session) SetEngaged(id core.AdversaryID, engaged bool) error {
	return s.do(func() error { return s.engine.SetEngaged(id, engaged) })
}

// Combatants

// AddAdHoc creates a DM-controlled combatant.
func (s *Session) AddAdHoc(name string) (core.AdHocCombatant, error) {
	var c core.AdHocCombatant
	err := s.do(func() error {
		var err error
		c, err = s.engine.AddAdHoc(name)
		return err
	})
	return c, err
}

// RemoveAdHoc deletes an ad-hoc combatant.
func (s *Session) RemoveAdHoc(id core.CombatantID) error {
	return s.do(func() error { return s.engine.RemoveAdHoc(id) })
}

// SetAdHocListening routes Say-channel rolls to id.
func (s *Session) SetAdHocListening(id core.CombatantID, listening bool) error {
	return s.do(func() error { return s.engine.SetAdHocListening(id, listening) })
}

// RecordRoll stores a hand-entered roll. Outside a phase it is discarded.
func (s *Session) RecordRoll(id core.CombatantID, roll int) (stored bool, err error) {
	err = s.do(func() error {
		stored, err = s.engine.RecordRoll(id, roll)
		return err
	})
	return stored, err
}

// RollForAdHoc draws a synthetic roll for an ad-hoc combatant.
func (s *Session) RollForAdHoc(id core.CombatantID) (roll int, stored bool, err error) {
	err = s.do(func() error {
		var err error
		roll, stored, err = s.engine.RollForAdHoc(id)
		return err
	})
	return roll, stored, err
}

// SetPlayerHP edits a combatant's hit points.
func (s *Session) SetPlayerHP(id core.CombatantID, maxHP, current int) error {
	return s.do(func() error { return s.engine.SetPlayerHP(id, maxHP, current) })
}

// FullHeal restores a combatant to maximum hit points.
func (s *Session) FullHeal(id core.CombatantID) error {
	return s.do(func() error { return s.engine.FullHeal(id) })
}

// RefreshRoster reloads the party from the roster provider.
func (s *Session) RefreshRoster(ctx context.Context) error {
	return s.do(func() error { return s.engine.RefreshRoster(ctx) })
}

// SetRoster replaces the party roster.
func (s *Session) SetRoster(members []core.RosterMember) {
	_ = s.do(func() error { s.engine.SetRoster(members); return nil })
}

// Roster returns the party roster.
func (s *Session) Roster() []core.RosterMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Roster()
}
