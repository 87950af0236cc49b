package types

import (
	"errors"
	"fmt"
)

// Node represents one candidate solution attempt and its outcome.
//
// Nodes are immutable once appended to a journal. The journal assigns
// Depth and CreationOrder at append time; callers must leave them zero.
type Node struct {
	// ID is the unique node identifier, assigned at creation.
	ID string `msgpack:"id" json:"id"`
	// ParentID references the node this one was derived from.
	// Nil for roots (fresh drafts). Never changes after creation.
	ParentID *string `msgpack:"parent_id,omitempty" json:"parent_id,omitempty"`
	// Stage is the action that produced this node.
	Stage Stage `msgpack:"stage" json:"stage"`
	// Code is the generated candidate. Opaque to the engine.
	Code string `msgpack:"code" json:"code"`
	// Plan is the natural-language rationale behind Code. Opaque to the engine.
	Plan string `msgpack:"plan" json:"plan"`
	// Outcome is the captured execution result.
	Outcome ExecOutcome `msgpack:"outcome" json:"outcome"`
	// IsBuggy is true when execution failed or no valid metric was produced.
	IsBuggy bool `msgpack:"is_buggy" json:"is_buggy"`
	// Metric is the scalar evaluation result. Present only when not buggy.
	Metric *float64 `msgpack:"metric,omitempty" json:"metric,omitempty"`
	// Depth is the distance from this node's root. Assigned at append time.
	Depth int `msgpack:"depth" json:"depth"`
	// CreationOrder is the monotonic append sequence number, starting at 1.
	// It reflects commit order and is the sole tie-break source.
	CreationOrder int64 `msgpack:"creation_order" json:"creation_order"`
	// CreatedAt is the append timestamp in RFC 3339 UTC format.
	CreatedAt string `msgpack:"created_at" json:"created_at"`
}

// IsRoot reports whether the node is a root (fresh draft).
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// Validate checks node construction rules:
//   - id must be non-empty
//   - stage must be valid
//   - roots must be drafts; drafts must be roots
//   - buggy nodes must not carry a metric; good nodes must carry one
func (n *Node) Validate() error {
	if n.ID == "" {
		return errors.New("node id must be non-empty")
	}
	if !n.Stage.Valid() {
		return fmt.Errorf("invalid stage: %q", n.Stage)
	}
	if !n.Outcome.Status.Valid() {
		return fmt.Errorf("invalid execution status: %q", n.Outcome.Status)
	}
	if n.ParentID == nil && n.Stage != StageDraft {
		return fmt.Errorf("root node must have stage %q, got %q", StageDraft, n.Stage)
	}
	if n.ParentID != nil && n.Stage == StageDraft {
		return errors.New("draft node must not have a parent")
	}
	if n.ParentID != nil && *n.ParentID == "" {
		return errors.New("parent_id must be non-empty when present")
	}
	if n.IsBuggy && n.Metric != nil {
		return errors.New("buggy node must not carry a metric")
	}
	if !n.IsBuggy && n.Metric == nil {
		return errors.New("non-buggy node must carry a metric")
	}
	return nil
}
