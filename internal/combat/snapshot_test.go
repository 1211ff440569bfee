package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhelper/extension/pkg/core"
)

func TestSnapshot(t *testing.T) {
	e := newTestEngine(t)
	goblin := addAdversary(t, e, "Goblin", 10, 10)
	shade, err := e.AddAdHoc("Shade")
	require.NoError(t, err)
	require.NoError(t, e.SetAdHocListening(shade.ID, true))

	require.NoError(t, e.SetPhase(core.PhaseAttack))
	e.HandleChat(partyRoll("Bram Stoutheart", 20))
	e.HandleChat(sayRoll(1))
	require.NoError(t, e.DeclarePlayerTarget(bram, goblin.ID))
	require.NoError(t, e.DeclareAdversaryTarget(goblin.ID, aurora))

	snap := e.Snapshot()

	assert.Equal(t, testNow, snap.Taken)
	assert.Equal(t, core.PhaseAttack, snap.Phase)
	require.Len(t, snap.Combatants, 3)

	b := snap.Combatants[0]
	assert.Equal(t, bram, b.ID)
	assert.Equal(t, "BS", b.Initials)
	require.NotNil(t, b.Roll)
	assert.Equal(t, 20, *b.Roll)
	assert.Equal(t, core.HighlightNaturalMax, b.Highlight)
	assert.Equal(t, []core.AdversaryID{goblin.ID}, b.Targets)

	a := snap.Combatants[1]
	assert.Nil(t, a.Roll)
	assert.Equal(t, []core.AdversaryID{goblin.ID}, a.TargetedBy)

	s := snap.Combatants[2]
	assert.True(t, s.AdHoc)
	assert.Equal(t, "S", s.Initials)
	assert.True(t, s.Listening)
	assert.Equal(t, core.HighlightNaturalOne, s.Highlight)

	require.Len(t, snap.Adversaries, 1)
	assert.Equal(t, "Goblin", snap.Adversaries[0].Name)
	assert.Equal(t, 1, snap.Adversaries[0].TargetedByCount)
	assert.Equal(t, []core.CombatantID{aurora}, snap.Adversaries[0].Targets)

	*b.Roll = 3
	again, _ := e.Roll(bram)
	assert.Equal(t, 20, again, "snapshot is a copy")
}

func TestSummary(t *testing.T) {
	e := newTestEngine(t)
	goblin := addAdversary(t, e, "Goblin", 10, 10)
	addAdversary(t, e, "Orc", 10, 10)
	_, err := e.AddAdversary("Sleeping Troll")
	require.NoError(t, err)
	_, err = e.AddAdHoc("Shade")
	require.NoError(t, err)

	assert.Equal(t, "No phase selected", e.Summary().String())

	require.NoError(t, e.SetPhase(core.PhaseAttack))
	e.HandleChat(partyRoll("Bram Stoutheart", 11))
	require.NoError(t, e.DeclarePlayerTarget(bram, goblin.ID))
	require.NoError(t, e.DeclareAdversaryTarget(goblin.ID, aurora))

	s := e.Summary()
	assert.Equal(t, core.Summary{
		Phase:            core.PhaseAttack,
		Rolled:           1,
		Total:            3,
		Engaged:          2,
		TargetedByPlayer: 1,
		WithTargets:      1,
	}, s)
	assert.Equal(t, "Attack phase: 1/3 rolled, 1/2 adversaries targeted", s.String())

	require.NoError(t, e.SetPhase(core.PhaseDefense))
	assert.Equal(t, "Defense phase: 0/3 rolled, 1 adversaries with targets", e.Summary().String())
}
