package journal

import (
	"github.com/pithecene-io/grove/types"
)

// view holds the arena index and implements all derived, read-only
// projections. Shared by Journal (live, single-writer) and Snapshot
// (immutable copy).
type view struct {
	nodes    map[string]types.Node
	order    []string // ids in creation (commit) order
	children map[string][]string
}

// Len returns the total node count.
func (v *view) Len() int {
	return len(v.order)
}

// Get returns a copy of the node with the given id.
func (v *view) Get(id string) (types.Node, bool) {
	n, ok := v.nodes[id]
	return n, ok
}

// Nodes returns all nodes in creation order.
func (v *view) Nodes() []types.Node {
	out := make([]types.Node, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.nodes[id])
	}
	return out
}

// Roots returns all root nodes (fresh drafts) in creation order.
func (v *view) Roots() []types.Node {
	var out []types.Node
	for _, id := range v.order {
		if n := v.nodes[id]; n.ParentID == nil {
			out = append(out, n)
		}
	}
	return out
}

// Children returns the children of the given node in creation order.
func (v *view) Children(id string) []types.Node {
	ids := v.children[id]
	out := make([]types.Node, 0, len(ids))
	for _, cid := range ids {
		out = append(out, v.nodes[cid])
	}
	return out
}

// IsLeaf reports whether the node has no children.
func (v *view) IsLeaf(id string) bool {
	return len(v.children[id]) == 0
}

// BuggyLeaves returns leaves whose execution failed or produced no valid
// metric, in creation order. These are the debug candidates.
func (v *view) BuggyLeaves() []types.Node {
	var out []types.Node
	for _, id := range v.order {
		n := v.nodes[id]
		if n.IsBuggy && v.IsLeaf(id) {
			out = append(out, n)
		}
	}
	return out
}

// GoodLeaves returns non-buggy leaves in creation order. These are the
// improve candidates.
func (v *view) GoodLeaves() []types.Node {
	var out []types.Node
	for _, id := range v.order {
		n := v.nodes[id]
		if !n.IsBuggy && v.IsLeaf(id) {
			out = append(out, n)
		}
	}
	return out
}

// Best returns the best non-buggy node under the given direction.
// Ties are broken by lower depth, then earlier creation order, so the
// result is deterministic for a given journal state.
func (v *view) Best(direction types.MetricDirection) (types.Node, bool) {
	var best types.Node
	found := false
	for _, id := range v.order {
		n := v.nodes[id]
		if n.IsBuggy || n.Metric == nil {
			continue
		}
		if !found {
			best = n
			found = true
			continue
		}
		if betterNode(direction, n, best) {
			best = n
		}
	}
	return best, found
}

// betterNode reports whether a should be ranked above b: strictly better
// metric, then shallower depth, then earlier creation order.
func betterNode(direction types.MetricDirection, a, b types.Node) bool {
	if direction.Better(*a.Metric, *b.Metric) {
		return true
	}
	if direction.Better(*b.Metric, *a.Metric) {
		return false
	}
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return a.CreationOrder < b.CreationOrder
}

// DebugDepth returns the number of consecutive debug-stage nodes at the
// tail of the lineage ending at (and including) the given node. A buggy
// draft has debug depth 0; its first debug child has depth 1.
//
// Returns -1 when the id is unknown.
func (v *view) DebugDepth(id string) int {
	n, ok := v.nodes[id]
	if !ok {
		return -1
	}
	depth := 0
	for n.Stage == types.StageDebug {
		depth++
		if n.ParentID == nil {
			break
		}
		n = v.nodes[*n.ParentID]
	}
	return depth
}

// GoodDescendantOf reports whether the subtree rooted at id contains any
// non-buggy node (including the root itself).
func (v *view) GoodDescendantOf(id string) bool {
	n, ok := v.nodes[id]
	if !ok {
		return false
	}
	if !n.IsBuggy {
		return true
	}
	for _, cid := range v.children[id] {
		if v.GoodDescendantOf(cid) {
			return true
		}
	}
	return false
}

// DebuggableLeafIn reports whether the subtree rooted at id contains a
// buggy leaf whose debug depth is below maxDebugDepth.
func (v *view) DebuggableLeafIn(id string, maxDebugDepth int) bool {
	if v.IsLeaf(id) {
		n := v.nodes[id]
		return n.IsBuggy && v.DebugDepth(id) < maxDebugDepth
	}
	for _, cid := range v.children[id] {
		if v.DebuggableLeafIn(cid, maxDebugDepth) {
			return true
		}
	}
	return false
}
