// Package journal implements the append-only node arena for a search run.
//
// The journal is the only mutable shared state in the engine. It is NOT
// safe for concurrent use: a single owning goroutine performs all appends
// (see runtime.Driver), and concurrent readers work on immutable snapshots
// obtained via Snapshot().
//
// Nodes are stored in an arena indexed by id, with parent references as
// keys rather than pointers. Snapshotting copies the index, not the graph.
package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/grove/types"
)

// Append invariant violations. These indicate engine bugs or corrupt
// checkpoints, never expected runtime conditions.
var (
	// ErrParentNotFound is returned when a node references a parent id
	// that does not exist in the journal.
	ErrParentNotFound = errors.New("journal: parent node not found")
	// ErrDuplicateNodeID is returned when a node id is already present.
	// IDs are never reused, even conceptually pruned subtrees keep theirs.
	ErrDuplicateNodeID = errors.New("journal: duplicate node id")
)

// Journal is the full set of nodes for one search run.
// Grows monotonically by Append; never shrinks.
type Journal struct {
	view
	meta types.SearchMeta
}

// New creates an empty journal for the given search run.
func New(meta types.SearchMeta) *Journal {
	return &Journal{
		view: view{
			nodes:    make(map[string]types.Node),
			children: make(map[string][]string),
		},
		meta: meta,
	}
}

// Meta returns the search-run metadata.
func (j *Journal) Meta() types.SearchMeta {
	return j.meta
}

// Append validates and appends a node, assigning its Depth and
// CreationOrder. CreationOrder reflects commit order: the order in which
// appends complete, starting at 1. Returns the node as stored.
//
// Cycles are impossible by construction: a node's parent must already
// exist, and ids are unique, so parent chains always reach a root.
func (j *Journal) Append(n types.Node) (types.Node, error) {
	if err := n.Validate(); err != nil {
		return types.Node{}, fmt.Errorf("journal: invalid node: %w", err)
	}
	if _, exists := j.nodes[n.ID]; exists {
		return types.Node{}, fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}

	n.Depth = 0
	if n.ParentID != nil {
		parent, ok := j.nodes[*n.ParentID]
		if !ok {
			return types.Node{}, fmt.Errorf("%w: %s", ErrParentNotFound, *n.ParentID)
		}
		n.Depth = parent.Depth + 1
	}

	n.CreationOrder = int64(len(j.order)) + 1
	if n.CreatedAt == "" {
		n.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	j.nodes[n.ID] = n
	j.order = append(j.order, n.ID)
	if n.ParentID != nil {
		j.children[*n.ParentID] = append(j.children[*n.ParentID], n.ID)
	}

	return n, nil
}

// Snapshot returns an immutable point-in-time view of the journal.
// Safe to read from any goroutine; later appends are not visible.
func (j *Journal) Snapshot() *Snapshot {
	nodes := make(map[string]types.Node, len(j.nodes))
	for id, n := range j.nodes {
		nodes[id] = n
	}
	order := make([]string, len(j.order))
	copy(order, j.order)
	children := make(map[string][]string, len(j.children))
	for id, kids := range j.children {
		c := make([]string, len(kids))
		copy(c, kids)
		children[id] = c
	}
	return &Snapshot{view: view{nodes: nodes, order: order, children: children}}
}

// Verify checks structural invariants over the whole journal:
//   - every non-root parent_id resolves
//   - every parent chain reaches a root within Len() steps
//   - depth(node) == depth(parent) + 1
//   - creation_order is strictly increasing and dense from 1
//
// Used when reconstructing a journal from persisted state. A failure
// means the checkpoint is corrupt or from an incompatible writer.
func (j *Journal) Verify() error {
	for i, id := range j.order {
		n, ok := j.nodes[id]
		if !ok {
			return fmt.Errorf("journal: order entry %q has no node", id)
		}
		if n.CreationOrder != int64(i)+1 {
			return fmt.Errorf("journal: node %s has creation_order %d, want %d", id, n.CreationOrder, i+1)
		}

		steps := 0
		cur := n
		for cur.ParentID != nil {
			parent, ok := j.nodes[*cur.ParentID]
			if !ok {
				return fmt.Errorf("%w: %s (child %s)", ErrParentNotFound, *cur.ParentID, cur.ID)
			}
			if cur.Depth != parent.Depth+1 {
				return fmt.Errorf("journal: node %s has depth %d, parent %s has depth %d", cur.ID, cur.Depth, parent.ID, parent.Depth)
			}
			steps++
			if steps > len(j.nodes) {
				return fmt.Errorf("journal: cycle detected through node %s", n.ID)
			}
			cur = parent
		}
		if cur.Depth != 0 {
			return fmt.Errorf("journal: root %s has nonzero depth %d", cur.ID, cur.Depth)
		}
	}
	return nil
}

// Snapshot is an immutable point-in-time view of a journal.
// All read methods are safe to call concurrently.
type Snapshot struct {
	view
}
