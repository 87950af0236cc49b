// Package types defines core domain types for the Grove search engine.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// Stage is the category of search action that produced a node.
type Stage string

// Stage constants. Every node records exactly one of these.
const (
	// StageDraft is a fresh, independent attempt with no parent.
	StageDraft Stage = "draft"
	// StageDebug is an attempt to fix a buggy node.
	StageDebug Stage = "debug"
	// StageImprove is a refinement of a working node.
	StageImprove Stage = "improve"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageDraft, StageDebug, StageImprove:
		return true
	}
	return false
}

// ExecStatus classifies the outcome of executing a candidate.
type ExecStatus string

const (
	// ExecSuccess indicates the candidate ran to completion with exit code 0.
	ExecSuccess ExecStatus = "success"
	// ExecRuntimeError indicates the candidate exited abnormally.
	ExecRuntimeError ExecStatus = "runtime_error"
	// ExecTimeout indicates the candidate exceeded the execution timeout.
	// Distinct from ExecRuntimeError: a timed-out candidate may be logically
	// sound but too slow, which matters to downstream debug prompts.
	ExecTimeout ExecStatus = "timeout"
	// ExecGenerationError indicates the code-generation collaborator returned
	// empty or invalid code, so the candidate was never executed.
	ExecGenerationError ExecStatus = "generation_error"
)

// Valid reports whether s is a known execution status.
func (s ExecStatus) Valid() bool {
	switch s {
	case ExecSuccess, ExecRuntimeError, ExecTimeout, ExecGenerationError:
		return true
	}
	return false
}

// ExecOutcome is the captured result of running a candidate in the sandbox.
type ExecOutcome struct {
	// Status is the execution status classification.
	Status ExecStatus `msgpack:"status" json:"status"`
	// Stdout is the captured standard output (possibly truncated).
	Stdout string `msgpack:"stdout" json:"stdout"`
	// Stderr is the captured standard error (possibly truncated).
	Stderr string `msgpack:"stderr" json:"stderr"`
	// ExitCode is the process exit code. Zero for success, -1 when the
	// process was killed or never ran.
	ExitCode int `msgpack:"exit_code" json:"exit_code"`
	// ElapsedMs is the wall-clock execution time in milliseconds.
	ElapsedMs int64 `msgpack:"elapsed_ms" json:"elapsed_ms"`
}

// MetricDirection is the comparison direction for metrics.
// It is a run-level configuration constant, never per-node.
type MetricDirection string

const (
	// Maximize means higher metric values are better.
	Maximize MetricDirection = "maximize"
	// Minimize means lower metric values are better.
	Minimize MetricDirection = "minimize"
)

// ParseDirection parses a direction string.
func ParseDirection(s string) (MetricDirection, error) {
	switch MetricDirection(s) {
	case Maximize:
		return Maximize, nil
	case Minimize:
		return Minimize, nil
	default:
		return "", fmt.Errorf("invalid metric direction: %q (must be maximize or minimize)", s)
	}
}

// Better reports whether candidate is strictly better than incumbent
// under the direction.
func (d MetricDirection) Better(candidate, incumbent float64) bool {
	if d == Minimize {
		return candidate < incumbent
	}
	return candidate > incumbent
}

// SearchMeta contains search-run identity and lineage metadata.
type SearchMeta struct {
	// SearchID is the canonical search-run identifier. Must be globally unique.
	SearchID string `msgpack:"search_id" json:"search_id"`
	// Seed is the deterministic seed for stage and policy randomness.
	Seed int64 `msgpack:"seed" json:"seed"`
	// ResumedFrom is the search ID this run was resumed from. Nil for
	// initial runs.
	ResumedFrom *string `msgpack:"resumed_from,omitempty" json:"resumed_from,omitempty"`
}

// Validate checks search metadata.
func (m *SearchMeta) Validate() error {
	if m.SearchID == "" {
		return errors.New("search_id must be non-empty")
	}
	if m.ResumedFrom != nil && *m.ResumedFrom == "" {
		return errors.New("resumed_from must be non-empty when present")
	}
	return nil
}
