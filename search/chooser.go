package search

import (
	"fmt"
	"math/rand"

	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/types"
)

// Action is the chooser's decision for the next iteration.
type Action struct {
	// Stage is the category of the next search action.
	Stage types.Stage
	// Parent is the node to extend. Nil for drafts.
	Parent *types.Node
}

// Chooser decides the next search action from a journal snapshot.
//
// All randomness (debug coin, exploration draws) comes from a single
// RNG seeded at construction, and decisions consume it in a fixed order,
// so a fixed seed and identical snapshot sequence replay the exact same
// action sequence. Not safe for concurrent use: the driver serializes
// planning.
type Chooser struct {
	cfg    Config
	rng    *rand.Rand
	policy *Policy
}

// NewChooser creates a chooser with the given config and seed.
func NewChooser(cfg Config, seed int64) *Chooser {
	return &Chooser{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		policy: NewPolicy(cfg.Direction, cfg.ExploreProb),
	}
}

// Next decides the next action for the given snapshot:
//
//  1. Fewer than InitialDrafts roots, or at least DeadRootFrac of the
//     roots are dead ends (no good descendant, no debuggable leaf):
//     DRAFT with no parent.
//  2. Otherwise, with probability DebugProb, DEBUG a buggy leaf whose
//     consecutive-debug depth is below MaxDebugDepth, when one exists.
//  3. Otherwise IMPROVE the best good leaf.
//  4. If neither a debuggable buggy leaf nor a good leaf exists, fall
//     back to DRAFT. The engine therefore never stalls on
//     debug-exhausted dead ends.
func (c *Chooser) Next(view *journal.Snapshot) (Action, error) {
	roots := view.Roots()
	if len(roots) < c.cfg.InitialDrafts {
		return Action{Stage: types.StageDraft}, nil
	}
	if c.deadRootsExceeded(view, roots) {
		return Action{Stage: types.StageDraft}, nil
	}

	debuggable := c.debuggableLeaves(view)
	goodLeaves := view.GoodLeaves()

	if len(debuggable) > 0 && c.rng.Float64() < c.cfg.DebugProb {
		parent, err := c.policy.Select(c.rng, debuggable)
		if err != nil {
			return Action{}, fmt.Errorf("debug selection: %w", err)
		}
		return Action{Stage: types.StageDebug, Parent: &parent}, nil
	}

	if len(goodLeaves) > 0 {
		parent, err := c.policy.Select(c.rng, goodLeaves)
		if err != nil {
			return Action{}, fmt.Errorf("improve selection: %w", err)
		}
		return Action{Stage: types.StageImprove, Parent: &parent}, nil
	}

	// No good leaf to improve. Debug if the coin was against it but a
	// candidate exists; otherwise draft a fresh attempt.
	if len(debuggable) > 0 {
		parent, err := c.policy.Select(c.rng, debuggable)
		if err != nil {
			return Action{}, fmt.Errorf("debug fallback selection: %w", err)
		}
		return Action{Stage: types.StageDebug, Parent: &parent}, nil
	}
	return Action{Stage: types.StageDraft}, nil
}

// debuggableLeaves returns buggy leaves whose consecutive-debug depth is
// below the configured bound.
func (c *Chooser) debuggableLeaves(view *journal.Snapshot) []types.Node {
	var out []types.Node
	for _, n := range view.BuggyLeaves() {
		if view.DebugDepth(n.ID) < c.cfg.MaxDebugDepth {
			out = append(out, n)
		}
	}
	return out
}

// deadRootsExceeded reports whether at least DeadRootFrac of the roots
// are dead ends: subtrees with no good node and no buggy leaf still
// within the debug-depth bound. Such subtrees cannot make progress, so
// the chooser drafts a replacement attempt.
func (c *Chooser) deadRootsExceeded(view *journal.Snapshot, roots []types.Node) bool {
	if len(roots) == 0 {
		return false
	}
	dead := 0
	for _, r := range roots {
		if view.GoodDescendantOf(r.ID) {
			continue
		}
		if view.DebuggableLeafIn(r.ID, c.cfg.MaxDebugDepth) {
			continue
		}
		dead++
	}
	return float64(dead) >= c.cfg.DeadRootFrac*float64(len(roots))
}
