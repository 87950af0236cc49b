// Package metrics provides per-search metrics collection.
//
// The Collector accumulates counters during a single search run. It is a
// leaf package with no internal dependencies. All increment methods are
// nil-receiver safe so optional instrumentation requires no branching at
// call sites.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all search metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Nodes by stage
	NodesDrafted  int64
	NodesDebugged int64
	NodesImproved int64

	// Verdicts
	GoodNodes  int64
	BuggyNodes int64

	// Execution failures
	ExecTimeouts      int64
	ExecRuntimeErrors int64
	SilentFailures    int64

	// Generation
	GenerationFailures int64

	// Search progress
	BestImprovements int64

	// Checkpointing
	CheckpointSaves        int64
	CheckpointSaveFailures int64

	// Dimensions (informational, set at construction)
	SearchID  string
	Direction string
	Workers   int
}

// Collector accumulates metrics during a single search run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	nodesDrafted  int64
	nodesDebugged int64
	nodesImproved int64

	goodNodes  int64
	buggyNodes int64

	execTimeouts      int64
	execRuntimeErrors int64
	silentFailures    int64

	generationFailures int64

	bestImprovements int64

	checkpointSaves        int64
	checkpointSaveFailures int64

	searchID  string
	direction string
	workers   int
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(searchID, direction string, workers int) *Collector {
	return &Collector{
		searchID:  searchID,
		direction: direction,
		workers:   workers,
	}
}

// IncNodeDrafted records an appended draft node.
func (c *Collector) IncNodeDrafted() { c.inc(&c.nodesDrafted) }

// IncNodeDebugged records an appended debug node.
func (c *Collector) IncNodeDebugged() { c.inc(&c.nodesDebugged) }

// IncNodeImproved records an appended improve node.
func (c *Collector) IncNodeImproved() { c.inc(&c.nodesImproved) }

// IncGoodNode records a node with a valid metric.
func (c *Collector) IncGoodNode() { c.inc(&c.goodNodes) }

// IncBuggyNode records a node whose execution failed or produced no
// valid metric.
func (c *Collector) IncBuggyNode() { c.inc(&c.buggyNodes) }

// IncExecTimeout records an execution that exceeded the timeout.
func (c *Collector) IncExecTimeout() { c.inc(&c.execTimeouts) }

// IncExecRuntimeError records an abnormal candidate exit.
func (c *Collector) IncExecRuntimeError() { c.inc(&c.execRuntimeErrors) }

// IncSilentFailure records a successful execution with no parseable metric.
func (c *Collector) IncSilentFailure() { c.inc(&c.silentFailures) }

// IncGenerationFailure records a collaborator returning empty or invalid code.
func (c *Collector) IncGenerationFailure() { c.inc(&c.generationFailures) }

// IncBestImprovement records a new best metric for the run.
func (c *Collector) IncBestImprovement() { c.inc(&c.bestImprovements) }

// IncCheckpointSave records a successful checkpoint write.
func (c *Collector) IncCheckpointSave() { c.inc(&c.checkpointSaves) }

// IncCheckpointSaveFailure records a failed checkpoint write.
func (c *Collector) IncCheckpointSaveFailure() { c.inc(&c.checkpointSaveFailures) }

func (c *Collector) inc(counter *int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}

// Snapshot returns an immutable copy of all counters and dimensions.
// Safe on a nil receiver, returning a zero snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		NodesDrafted:           c.nodesDrafted,
		NodesDebugged:          c.nodesDebugged,
		NodesImproved:          c.nodesImproved,
		GoodNodes:              c.goodNodes,
		BuggyNodes:             c.buggyNodes,
		ExecTimeouts:           c.execTimeouts,
		ExecRuntimeErrors:      c.execRuntimeErrors,
		SilentFailures:         c.silentFailures,
		GenerationFailures:     c.generationFailures,
		BestImprovements:       c.bestImprovements,
		CheckpointSaves:        c.checkpointSaves,
		CheckpointSaveFailures: c.checkpointSaveFailures,
		SearchID:               c.searchID,
		Direction:              c.direction,
		Workers:                c.workers,
	}
}
