package combat

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/dmhelper/extension/pkg/core"
)

// phaseMachine tracks the current round phase.
// Every phase is reachable from every other one, including itself.
type phaseMachine struct {
	fsm *fsm.FSM
}

func newPhaseMachine(onEnter func(from, to core.Phase)) *phaseMachine {
	all := []string{core.PhaseNone.String(), core.PhaseAttack.String(), core.PhaseDefense.String()}

	events := make(fsm.Events, 0, len(all))
	for _, p := range all {
		events = append(events, fsm.EventDesc{Name: p, Src: all, Dst: p})
	}

	callbacks := fsm.Callbacks{}
	if onEnter != nil {
		callbacks["enter_state"] = func(_ context.Context, e *fsm.Event) {
			from, _ := core.ParsePhase(e.Src)
			to, _ := core.ParsePhase(e.Dst)
			onEnter(from, to)
		}
	}

	return &phaseMachine{fsm: fsm.NewFSM(core.PhaseNone.String(), events, callbacks)}
}

// Current returns the active phase.
func (m *phaseMachine) Current() core.Phase {
	p, err := core.ParsePhase(m.fsm.Current())
	if err != nil {
		return core.PhaseNone
	}
	return p
}

// Enter moves to p. Re-entering the current phase is not an error.
func (m *phaseMachine) Enter(p core.Phase) error {
	err := m.fsm.Event(context.Background(), p.String())
	if err == nil {
		return nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return fmt.Errorf("entering phase %s: %w", p, err)
}
