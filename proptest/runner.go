package proptest

import (
	"os"
	"strconv"
	"testing"
)

// DefaultTrials is the number of trials when Config.NumTrials is unset.
const DefaultTrials = 100

// Config controls a property check.
type Config struct {
	NumTrials int
	Seed      int64 // zero: PROPTEST_SEED or the clock
	Verbose   bool
}

func effectiveSeed(cfg Config) int64 {
	if env := os.Getenv("PROPTEST_SEED"); env != "" {
		if seed, err := strconv.ParseInt(env, 10, 64); err == nil {
			return seed
		}
	}
	return cfg.Seed
}

// Check runs prop NumTrials times, stopping at the first failing trial.
func Check(t testing.TB, name string, cfg Config, prop func(g *Generator) bool) {
	t.Helper()
	if cfg.NumTrials <= 0 {
		cfg.NumTrials = DefaultTrials
	}
	g := New(effectiveSeed(cfg))
	if cfg.Verbose {
		t.Logf("proptest %q: %d trials, seed %d", name, cfg.NumTrials, g.Seed())
	}
	for i := 1; i <= cfg.NumTrials; i++ {
		if !prop(g) {
			t.Errorf("proptest %q failed on trial %d (PROPTEST_SEED=%d reproduces)", name, i, g.Seed())
			return
		}
	}
}

// QuickCheck is Check with the default configuration.
func QuickCheck(t testing.TB, name string, prop func(g *Generator) bool) {
	t.Helper()
	Check(t, name, Config{}, prop)
}
