package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmhelper/extension/internal/dispatcher"
	"github.com/dmhelper/extension/internal/parser"
	"github.com/dmhelper/extension/internal/util"
	"github.com/dmhelper/extension/pkg/core"
)

// RegisterHandlers registers all host commands with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Chat runs inline like every other command so rolls and DM commands apply in call order
	d.Register(":CHAT:", m.handleChat, dispatcher.Logged())
	d.Register(":ROLL:", m.handleRoll, dispatcher.Logged())

	// Phase control
	d.Register(":PHASE:", m.handlePhase, dispatcher.Logged())
	d.Register(":RESOLVE:", m.handleResolve, dispatcher.Logged())
	d.Register(":APPLY:DAMAGE:", m.handleApplyDamage, dispatcher.Logged())
	d.Register(":CLEAR:ROLLS:", m.handleClearRolls, dispatcher.Logged())
	d.Register(":CLEAR:TARGETS:", m.handleClearTargets, dispatcher.Logged())
	d.Register(":CLEAR:LOG:", m.handleClearLog, dispatcher.Logged())
	d.Register(":CONFIG:RELOAD:", m.handleConfigReload, dispatcher.Logged())

	// Target declarations
	d.Register(":TARGET:PLAYER:", m.handleTargetPlayer, dispatcher.Logged())
	d.Register(":TARGET:ADVERSARY:", m.handleTargetAdversary, dispatcher.Logged())
	d.Register(":TARGET:ALL:", m.handleTargetAll, dispatcher.Logged())
	d.Register(":UNTARGET:PLAYER:", m.handleUntargetPlayer, dispatcher.Logged())
	d.Register(":UNTARGET:ADVERSARY:", m.handleUntargetAdversary, dispatcher.Logged())
	d.Register(":CLEAR:TARGETS:PLAYER:", m.handleClearPlayerTargets, dispatcher.Logged())
	d.Register(":CLEAR:TARGETS:ADVERSARY:", m.handleClearAdversaryTargets, dispatcher.Logged())

	// Adversaries
	d.Register(":ADVERSARY:ADD:", m.handleAdversaryAdd, dispatcher.Logged())
	d.Register(":ADVERSARY:REMOVE:", m.handleAdversaryRemove, dispatcher.Logged())
	d.Register(":ADVERSARY:ENGAGE:", m.handleAdversaryEngage, dispatcher.Logged())
	d.Register(":ADVERSARY:HP:", m.handleAdversaryHP, dispatcher.Logged())
	d.Register(":ADVERSARY:DC:", m.handleAdversaryDC, dispatcher.Logged())
	d.Register(":ADVERSARY:HEAL:", m.handleAdversaryHeal, dispatcher.Logged())

	// Party and ad-hoc combatants
	d.Register(":ADHOC:ADD:", m.handleAdHocAdd, dispatcher.Logged())
	d.Register(":ADHOC:REMOVE:", m.handleAdHocRemove, dispatcher.Logged())
	d.Register(":ADHOC:LISTEN:", m.handleAdHocListen, dispatcher.Logged())
	d.Register(":ADHOC:ROLL:", m.handleAdHocRoll, dispatcher.Logged())
	d.Register(":PLAYER:HP:", m.handlePlayerHP, dispatcher.Logged())
	d.Register(":PLAYER:HEAL:", m.handlePlayerHeal, dispatcher.Logged())
	d.Register(":ROSTER:REFRESH:", m.handleRosterRefresh, dispatcher.Logged())

	// Queries
	d.Register(":STATUS:", m.handleStatus)
	d.Register(":LOG:", m.handleLog)
	d.Register(":SNAPSHOT:", m.handleSnapshot)

	// Recording
	d.Register(":SESSION:START:", m.handleSessionStart, dispatcher.Logged())
	d.Register(":SESSION:END:", m.handleSessionEnd, dispatcher.Logged())
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func requireArgs(args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("expected %d args, got %d", n, len(args))
	}
	return nil
}

func (m *Manager) handleChat(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParseChatEvent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chat event: %w", err)
	}
	m.deps.Session.HandleChat(ev)
	return nil, nil
}

// handleRoll stores a roll entered by hand: combatantID, value.
func (m *Manager) handleRoll(e dispatcher.Event) (any, error) {
	if err := requireArgs(e.Args, 2); err != nil {
		return nil, err
	}
	id, err := m.combatantArg(e.Args)
	if err != nil {
		return nil, err
	}
	roll, err := parser.ParseInt(e.Args[1])
	if err != nil {
		return nil, fmt.Errorf("error converting roll: %w", err)
	}
	if roll < 1 {
		return nil, fmt.Errorf("roll must be positive, got %d", roll)
	}
	stored, err := m.deps.Session.RecordRoll(id, roll)
	if err != nil {
		return nil, err
	}
	if !stored {
		m.deps.Logger.Warn("Manual roll not stored: no phase selected", "combatant", id, "roll", roll)
	}
	return stored, nil
}

func (m *Manager) handlePhase(e dispatcher.Event) (any, error) {
	if err := requireArgs(e.Args, 1); err != nil {
		return nil, err
	}
	phase, err := core.ParsePhase(util.CleanArgs(e.Args)[0])
	if err != nil {
		return nil, err
	}
	if err := m.deps.Session.SetPhase(phase); err != nil {
		return nil, err
	}
	return phase.String(), nil
}

func (m *Manager) handleResolve(dispatcher.Event) (any, error) {
	return m.render(m.deps.Session.Resolve()), nil
}

func (m *Manager) handleApplyDamage(dispatcher.Event) (any, error) {
	return m.render(m.deps.Session.ApplyPendingDamage()), nil
}

func (m *Manager) handleClearRolls(dispatcher.Event) (any, error) {
	m.deps.Session.ClearRolls()
	return nil, nil
}

func (m *Manager) handleClearTargets(dispatcher.Event) (any, error) {
	m.deps.Session.ClearTargets()
	return nil, nil
}

func (m *Manager) handleClearLog(dispatcher.Event) (any, error) {
	m.deps.Session.ClearLog()
	return nil, nil
}

func (m *Manager) handleConfigReload(dispatcher.Event) (any, error) {
	if m.deps.ReloadConfig == nil {
		return nil, errors.New("config reload not available")
	}
	cfg, err := m.deps.ReloadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to reload config: %w", err)
	}
	m.deps.Session.SetConfig(cfg)
	return nil, nil
}

func (m *Manager) handleTargetPlayer(e dispatcher.Event) (any, error) {
	player, adversary, err := m.deps.Parser.ParseTargetPair(e.Args, true)
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.DeclarePlayerTarget(player, adversary)
}

func (m *Manager) handleTargetAdversary(e dispatcher.Event) (any, error) {
	player, adversary, err := m.deps.Parser.ParseTargetPair(e.Args, false)
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.DeclareAdversaryTarget(adversary, player)
}

func (m *Manager) handleTargetAll(e dispatcher.Event) (any, error) {
	id, err := m.combatantArg(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.DeclareAllPlayerTargets(id)
}

func (m *Manager) handleUntargetPlayer(e dispatcher.Event) (any, error) {
	player, adversary, err := m.deps.Parser.ParseTargetPair(e.Args, true)
	if err != nil {
		return nil, err
	}
	m.deps.Session.UndeclarePlayerTarget(player, adversary)
	return nil, nil
}

func (m *Manager) handleUntargetAdversary(e dispatcher.Event) (any, error) {
	player, adversary, err := m.deps.Parser.ParseTargetPair(e.Args, false)
	if err != nil {
		return nil, err
	}
	m.deps.Session.UndeclareAdversaryTarget(adversary, player)
	return nil, nil
}

func (m *Manager) handleClearPlayerTargets(e dispatcher.Event) (any, error) {
	id, err := m.combatantArg(e.Args)
	if err != nil {
		return nil, err
	}
	m.deps.Session.ClearPlayerTargets(id)
	return nil, nil
}

func (m *Manager) handleClearAdversaryTargets(e dispatcher.Event) (any, error) {
	id, err := m.adversaryArg(e.Args)
	if err != nil {
		return nil, err
	}
	m.deps.Session.ClearAdversaryTargets(id)
	return nil, nil
}

func (m *Manager) adversaryArg(args []string) (core.AdversaryID, error) {
	if err := requireArgs(args, 1); err != nil {
		return core.AdversaryID{}, err
	}
	return parser.ParseAdversaryID(util.CleanArgs(args)[0])
}

func (m *Manager) combatantArg(args []string) (core.CombatantID, error) {
	if err := requireArgs(args, 1); err != nil {
		return 0, err
	}
	return parser.ParseCombatantID(util.CleanArgs(args)[0])
}

func (m *Manager) handleAdversaryAdd(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParseAdversaryAdd(e.Args)
	if err != nil {
		return nil, err
	}
	// Explicit values are clamped to at least 1; omitted values keep the defaults.
	hp, dc := 0, 0
	if req.HP != nil {
		hp = max(*req.HP, 1)
	}
	if req.DC != nil {
		dc = max(*req.DC, 1)
	}
	a, err := m.deps.Session.AddAdversary(req.Name, hp, dc)
	if err != nil {
		return nil, err
	}
	return a.ID.String(), nil
}

func (m *Manager) handleAdversaryRemove(e dispatcher.Event) (any, error) {
	id, err := m.adversaryArg(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.RemoveAdversary(id)
}

func (m *Manager) handleAdversaryEngage(e dispatcher.Event) (any, error) {
	if err := requireArgs(e.Args, 2); err != nil {
		return nil, err
	}
	id, err := m.adversaryArg(e.Args)
	if err != nil {
		return nil, err
	}
	engaged, err := util.ParseToggle(e.Args[1])
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.SetEngaged(id, engaged)
}

func (m *Manager) handleAdversaryHP(e dispatcher.Event) (any, error) {
	if err := requireArgs(e.Args, 3); err != nil {
		return nil, err
	}
	id, err := m.adversaryArg(e.Args)
	if err != nil {
		return nil, err
	}
	maxHP, err := parser.ParseInt(e.Args[1])
	if err != nil {
		return nil, fmt.Errorf("error converting max hp: %w", err)
	}
	current, err := parser.ParseInt(e.Args[2])
	if err != nil {
		return nil, fmt.Errorf("error converting current hp: %w", err)
	}
	return nil, m.deps.Session.SetAdversaryHP(id, maxHP, current)
}

func (m *Manager) handleAdversaryDC(e dispatcher.Event) (any, error) {
	if err := requireArgs(e.Args, 2); err != nil {
		return nil, err
	}
	id, err := m.adversaryArg(e.Args)
	if err != nil {
		return nil, err
	}
	dc, err := parser.ParseInt(e.Args[1])
	if err != nil {
		return nil, fmt.Errorf("error converting dc: %w", err)
	}
	return nil, m.deps.Session.SetAdversaryDC(id, dc)
}

func (m *Manager) handleAdversaryHeal(e dispatcher.Event) (any, error) {
	id, err := m.adversaryArg(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.HealAdversary(id)
}

func (m *Manager) handleAdHocAdd(e dispatcher.Event) (any, error) {
	if err := requireArgs(e.Args, 1); err != nil {
		return nil, err
	}
	c, err := m.deps.Session.AddAdHoc(util.CleanArgs(e.Args)[0])
	if err != nil {
		return nil, err
	}
	return uint32(c.ID), nil
}

func (m *Manager) handleAdHocRemove(e dispatcher.Event) (any, error) {
	id, err := m.combatantArg(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.RemoveAdHoc(id)
}

func (m *Manager) handleAdHocListen(e dispatcher.Event) (any, error) {
	if err := requireArgs(e.Args, 2); err != nil {
		return nil, err
	}
	id, err := m.combatantArg(e.Args)
	if err != nil {
		return nil, err
	}
	listening, err := util.ParseToggle(e.Args[1])
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.SetAdHocListening(id, listening)
}

func (m *Manager) handleAdHocRoll(e dispatcher.Event) (any, error) {
	id, err := m.combatantArg(e.Args)
	if err != nil {
		return nil, err
	}
	roll, stored, err := m.deps.Session.RollForAdHoc(id)
	if err != nil {
		return nil, err
	}
	if !stored {
		m.deps.Logger.Warn("Manual roll not stored: no phase selected", "combatant", id, "roll", roll)
	}
	return roll, nil
}

func (m *Manager) handlePlayerHP(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParsePlayerHP(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.SetPlayerHP(req.ID, req.MaxHP, req.Current)
}

func (m *Manager) handlePlayerHeal(e dispatcher.Event) (any, error) {
	id, err := m.combatantArg(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, m.deps.Session.FullHeal(id)
}

func (m *Manager) handleRosterRefresh(dispatcher.Event) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.deps.RosterTimeout)
	defer cancel()
	if err := m.deps.Session.RefreshRoster(ctx); err != nil {
		return nil, err
	}
	return len(m.deps.Session.Roster()), nil
}

func (m *Manager) handleStatus(dispatcher.Event) (any, error) {
	return m.deps.Session.Summary().String(), nil
}

func (m *Manager) handleLog(dispatcher.Event) (any, error) {
	return m.render(m.deps.Session.Log()), nil
}

func (m *Manager) handleSnapshot(dispatcher.Event) (any, error) {
	return m.deps.Session.Snapshot(), nil
}

func (m *Manager) handleSessionStart(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	rec, err := m.deps.Session.Start(argAt(args, 0), argAt(args, 1), argAt(args, 2))
	if err != nil {
		return nil, err
	}
	return rec.ID, nil
}

func (m *Manager) handleSessionEnd(dispatcher.Event) (any, error) {
	path, meta, exported, err := m.deps.Session.End()
	if err != nil {
		return nil, err
	}
	if m.deps.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.deps.Telemetry.Flush(ctx); err != nil {
			m.deps.Logger.Warn("Telemetry flush failed", "error", err)
		}
		cancel()
	}
	if !exported {
		return nil, nil
	}
	if m.deps.Uploader == nil {
		return path, nil
	}
	if err := m.deps.Uploader.Upload(path, meta); err != nil {
		m.deps.Logger.Error("Failed to upload combat log", "path", path, "error", err)
		return path, nil
	}
	m.deps.Logger.Info("Combat log uploaded", "path", path, "entries", meta.Entries)
	return path, nil
}
