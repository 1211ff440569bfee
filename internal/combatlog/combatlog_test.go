package combatlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhelper/extension/pkg/core"
)

func entry(actor string) core.CombatLogEntry {
	return core.CombatLogEntry{Actor: actor, Kind: core.KindInfo, Phrase: actor}
}

func TestAppendUnlimited(t *testing.T) {
	l := New(0)
	for _, a := range []string{"a", "b", "c"} {
		l.Append(entry(a))
	}
	require.Equal(t, 3, l.Len())
	assert.Equal(t, "a", l.Entries()[0].Actor)
}

func TestCapDropsOldestFirst(t *testing.T) {
	l := New(2)
	l.Append(entry("a"), entry("b"), entry("c"))

	got := l.Entries()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Actor)
	assert.Equal(t, "c", got[1].Actor)

	l.Append(entry("d"))
	got = l.Entries()
	assert.Equal(t, "c", got[0].Actor)
	assert.Equal(t, "d", got[1].Actor)
}

func TestSetMaxTrims(t *testing.T) {
	l := New(0)
	l.Append(entry("a"), entry("b"), entry("c"))
	l.SetMax(1)
	assert.Equal(t, 1, l.Max())
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "c", l.Entries()[0].Actor)
}

func TestEntriesIsCopy(t *testing.T) {
	l := New(0)
	l.Append(entry("a"))
	got := l.Entries()
	got[0].Actor = "mutated"
	assert.Equal(t, "a", l.Entries()[0].Actor)
}

func TestClear(t *testing.T) {
	l := New(0)
	l.Append(entry("a"))
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Entries())
}

func TestRender(t *testing.T) {
	hit := core.CombatLogEntry{
		Actor: "Bram", Target: "Goblin", Roll: 15, DC: 10, Success: true, Damage: 1,
		Kind: core.KindAttack, Phrase: "Bram strikes Goblin for 1 damage!",
	}
	miss := core.CombatLogEntry{
		Actor: "Goblin", Target: "Bram", Roll: 15, DC: 16, Success: false,
		Kind: core.KindDefense,
	}
	defeated := core.CombatLogEntry{Actor: "Goblin", Target: "Goblin", Kind: core.KindMonsterDefeated, Phrase: "Goblin falls."}

	tests := []struct {
		name      string
		entry     core.CombatLogEntry
		breakdown bool
		want      string
	}{
		{"phrase only", hit, false, "Bram strikes Goblin for 1 damage!"},
		{"breakdown with damage", hit, true, "Bram strikes Goblin for 1 damage! [15 vs 10, 1 dmg]"},
		{"fallback failure", miss, false, "Goblin fails against Bram (15 vs 16)."},
		{"fallback failure breakdown", miss, true, "Goblin fails against Bram (15 vs 16). [15 vs 16]"},
		{"non roll entry ignores breakdown", defeated, true, "Goblin falls."},
		{"fallback defeated", core.CombatLogEntry{Target: "Ogre", Kind: core.KindMonsterDefeated}, false, "Ogre is defeated."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.entry, tt.breakdown))
		})
	}
}
