// Package narrative renders combat log phrases from fixed pools without
// repeating the previous phrase of a category.
package narrative

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source draws a uniform index in [0, n).
type Source interface {
	IntN(n int) int
}

// Generator picks phrases per category, remembering the last index of each.
type Generator struct {
	mu    sync.Mutex
	rng   Source
	pools map[Category][]string
	last  map[Category]int
}

// New creates a Generator over the default pools. A nil source uses math/rand/v2.
func New(rng Source) *Generator {
	if rng == nil {
		rng = globalSource{}
	}
	return &Generator{
		rng:   rng,
		pools: defaultPools(),
		last:  make(map[Category]int),
	}
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Phrase returns one phrase of the category with placeholders substituted.
func (g *Generator) Phrase(c Category, actor, target string, damage int) string {
	g.mu.Lock()
	pool := g.pools[c]
	if len(pool) == 0 {
		g.mu.Unlock()
		return ""
	}

	idx := g.rng.IntN(len(pool))
	if last, ok := g.last[c]; ok && len(pool) > 1 {
		for idx == last {
			idx = g.rng.IntN(len(pool))
		}
	}
	g.last[c] = idx
	tmpl := pool[idx]
	g.mu.Unlock()

	return strings.NewReplacer(
		"{actor}", actor,
		"{target}", target,
		"{damage}", strconv.Itoa(damage),
	).Replace(tmpl)
}

// Pool returns a copy of the phrases for a category.
func (g *Generator) Pool(c Category) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.pools[c]...)
}

// LoadPools replaces pools with those found in a YAML document.
// Unknown keys are rejected; missing or empty lists keep the current pool.
func (g *Generator) LoadPools(r io.Reader) error {
	raw := map[string][]string{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return fmt.Errorf("decoding phrase pools: %w", err)
	}

	byName := make(map[string]Category, len(Categories))
	for _, c := range Categories {
		byName[c.String()] = c
	}

	loaded := make(map[Category][]string, len(raw))
	for name, phrases := range raw {
		c, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown phrase category %q", name)
		}
		if len(phrases) > 0 {
			loaded[c] = phrases
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for c, phrases := range loaded {
		g.pools[c] = phrases
		delete(g.last, c)
	}
	return nil
}
