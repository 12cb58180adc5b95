// Package proptest runs seeded property checks.
//
// Each check draws its inputs from a Generator seeded either explicitly,
// from PROPTEST_SEED, or from the clock. A failing check reports the seed
// so the exact inputs can be replayed:
//
//	PROPTEST_SEED=1712345 go test ./schema -run TestUnionProperties
package proptest

import (
	"math/rand"
	"time"
)

// Generator is a seeded source of random test inputs.
type Generator struct {
	rng  *rand.Rand
	seed int64
}

// New returns a Generator for seed; a zero seed is replaced by the clock.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed the generator was built with.
func (g *Generator) Seed() int64 { return g.seed }

// Intn returns an int in [0, n).
func (g *Generator) Intn(n int) int { return g.rng.Intn(n) }

// IntRange returns an int in [lo, hi].
func (g *Generator) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}

// Bool returns true half of the time.
func (g *Generator) Bool() bool { return g.rng.Intn(2) == 1 }

// Chance returns true with probability p.
func (g *Generator) Chance(p float64) bool { return g.rng.Float64() < p }

const (
	identStart = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_"
	identRest  = identStart + "0123456789"
)

// Identifier returns a Python-style identifier of 1..maxLen characters.
func (g *Generator) Identifier(maxLen int) string {
	n := g.IntRange(1, maxLen)
	b := make([]byte, n)
	b[0] = identStart[g.rng.Intn(len(identStart))]
	for i := 1; i < n; i++ {
		b[i] = identRest[g.rng.Intn(len(identRest))]
	}
	return string(b)
}

// TypeName returns a capitalized identifier suitable for a class name.
func (g *Generator) TypeName(maxLen int) string {
	const upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return string(upper[g.rng.Intn(len(upper))]) + g.Identifier(maxLen)
}

// UniqueIdentifiers returns n distinct identifiers.
func (g *Generator) UniqueIdentifiers(n, maxLen int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		id := g.Identifier(maxLen)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
