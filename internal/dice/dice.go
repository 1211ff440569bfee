// Package dice produces synthetic rolls for combatants who do not announce
// their own rolls in chat.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source draws a uniform integer in [1, max].
type Source interface {
	Roll(max int) int
}

// PCG is a seeded Source safe for concurrent use.
type PCG struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewPCG creates a deterministic source for the given seed.
func NewPCG(seed uint64) *PCG {
	return &PCG{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandom creates a source seeded from crypto/rand.
func NewRandom() (*PCG, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewPCG(seed), nil
}

// Roll returns a value in [1, max]. A max below 1 is treated as 1.
func (p *PCG) Roll(limit int) int {
	if limit < 1 {
		limit = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(limit) + 1
}

// IntN returns a value in [0, n) so a PCG can also drive phrase selection.
func (p *PCG) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// Fixed replays a sequence of rolls, clamped into [1, max]. Used by tests and replays.
type Fixed struct {
	mu    sync.Mutex
	rolls []int
	next  int
}

// NewFixed creates a Fixed source. It panics when rolls is empty.
func NewFixed(rolls ...int) *Fixed {
	if len(rolls) == 0 {
		panic("dice: NewFixed requires at least one roll")
	}
	return &Fixed{rolls: rolls}
}

// Roll returns the next queued roll, cycling when exhausted.
func (f *Fixed) Roll(limit int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.rolls[f.next%len(f.rolls)]
	f.next++
	if limit < 1 {
		limit = 1
	}
	return min(max(v, 1), limit)
}
