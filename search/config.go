// Package search implements stage selection and best-first parent
// selection for the generate-execute-evaluate tree search.
package search

import (
	"fmt"

	"github.com/pithecene-io/grove/types"
)

// Default policy values. All of these are configuration, not algorithmic
// constants; the engine never assumes them.
const (
	DefaultInitialDrafts = 3
	DefaultDebugProb     = 0.5
	DefaultMaxDebugDepth = 3
	DefaultExploreProb   = 0.0
	DefaultDeadRootFrac  = 1.0
)

// Config holds stage-selection and parent-selection policy knobs.
type Config struct {
	// InitialDrafts is the number of independent root attempts drafted
	// before debugging or improving begins.
	InitialDrafts int
	// DebugProb is the probability that an iteration attempts a debug
	// action when a debuggable buggy leaf exists. Drawn from the seeded
	// run RNG, so a fixed seed replays the same decisions.
	DebugProb float64
	// MaxDebugDepth bounds consecutive debug attempts on one lineage.
	// A buggy leaf with MaxDebugDepth consecutive debug ancestors is a
	// dead end and no longer eligible for debugging.
	MaxDebugDepth int
	// ExploreProb is the probability of selecting a non-top-ranked
	// eligible parent instead of the best one. Zero means pure
	// best-first. Also drawn from the seeded run RNG.
	ExploreProb float64
	// DeadRootFrac is the fraction of roots that must be dead ends
	// (no good descendant and no debuggable leaf left) before the
	// chooser drafts a replacement attempt instead of extending.
	DeadRootFrac float64
	// Direction is the metric comparison direction for the whole run.
	Direction types.MetricDirection
}

// DefaultConfig returns a Config with default policy values.
func DefaultConfig() Config {
	return Config{
		InitialDrafts: DefaultInitialDrafts,
		DebugProb:     DefaultDebugProb,
		MaxDebugDepth: DefaultMaxDebugDepth,
		ExploreProb:   DefaultExploreProb,
		DeadRootFrac:  DefaultDeadRootFrac,
		Direction:     types.Maximize,
	}
}

// Validate checks configuration bounds.
func (c *Config) Validate() error {
	if c.InitialDrafts < 1 {
		return fmt.Errorf("initial_drafts must be >= 1, got %d", c.InitialDrafts)
	}
	if c.DebugProb < 0 || c.DebugProb > 1 {
		return fmt.Errorf("debug_prob must be in [0, 1], got %v", c.DebugProb)
	}
	if c.MaxDebugDepth < 0 {
		return fmt.Errorf("max_debug_depth must be >= 0, got %d", c.MaxDebugDepth)
	}
	if c.ExploreProb < 0 || c.ExploreProb > 1 {
		return fmt.Errorf("explore_prob must be in [0, 1], got %v", c.ExploreProb)
	}
	if c.DeadRootFrac <= 0 || c.DeadRootFrac > 1 {
		return fmt.Errorf("dead_root_frac must be in (0, 1], got %v", c.DeadRootFrac)
	}
	if _, err := types.ParseDirection(string(c.Direction)); err != nil {
		return err
	}
	return nil
}
