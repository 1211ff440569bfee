package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCG_RollWithinBounds(t *testing.T) {
	src := NewPCG(42)

	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := src.Roll(20)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 20)
		seen[v] = true
	}
	assert.Len(t, seen, 20, "every face should appear over 2000 rolls")
}

func TestPCG_DeterministicForSeed(t *testing.T) {
	a, b := NewPCG(7), NewPCG(7)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Roll(100), b.Roll(100))
	}
}

func TestPCG_NonPositiveMax(t *testing.T) {
	src := NewPCG(1)
	assert.Equal(t, 1, src.Roll(0))
	assert.Equal(t, 1, src.Roll(-5))
}

func TestNewRandom(t *testing.T) {
	src, err := NewRandom()
	require.NoError(t, err)
	v := src.Roll(6)
	assert.True(t, v >= 1 && v <= 6)
}

func TestFixed(t *testing.T) {
	f := NewFixed(15, 25, 0)
	assert.Equal(t, 15, f.Roll(20))
	assert.Equal(t, 20, f.Roll(20), "clamped to max")
	assert.Equal(t, 1, f.Roll(20), "clamped to 1")
	assert.Equal(t, 15, f.Roll(20), "cycles")
}
