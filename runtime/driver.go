package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/grove/checkpoint"
	"github.com/pithecene-io/grove/eval"
	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/log"
	"github.com/pithecene-io/grove/metrics"
	"github.com/pithecene-io/grove/search"
	"github.com/pithecene-io/grove/types"
)

// StopReason records why a search run terminated.
type StopReason string

const (
	// StopMaxNodes means the total-node budget was exhausted.
	StopMaxNodes StopReason = "max_nodes"
	// StopMaxDuration means the wall-clock budget was exhausted.
	StopMaxDuration StopReason = "max_duration"
	// StopEarly means no new best metric was found within the patience window.
	StopEarly StopReason = "early_stop"
	// StopCanceled means the run-level context was canceled externally.
	StopCanceled StopReason = "canceled"
	// StopInfraFailure means the sandbox or checkpoint storage failed; the
	// run pauses with state preserved rather than silently losing nodes.
	StopInfraFailure StopReason = "infra_failure"
	// StopInvariant means an engine invariant was violated. Fatal to the
	// run; the journal up to the violation is preserved in the checkpoint.
	StopInvariant StopReason = "invariant_violation"
)

// DriverConfig configures a search run.
type DriverConfig struct {
	// Search holds stage-selection and parent-selection policy knobs.
	Search search.Config
	// Workers is the bounded worker pool size. Values below 1 mean 1.
	Workers int
	// MaxNodes is the total-node budget, counting nodes already present
	// when resuming. Zero disables the budget.
	MaxNodes int
	// MaxDuration is the wall-clock budget. Zero disables it.
	MaxDuration time.Duration
	// Patience is the early-stop window: terminate after this many
	// consecutive appends without a new best metric. Zero disables it.
	Patience int
	// Generator is the code-generation collaborator (required).
	Generator Generator
	// Executor is the sandbox collaborator (required).
	Executor Executor
	// Evaluator maps execution outcomes to verdicts. Nil means defaults.
	Evaluator *eval.Evaluator
	// Checkpoints persists the journal after appends. Nil disables
	// checkpointing.
	Checkpoints *checkpoint.Writer
	// Collector records search metrics. Nil disables metrics.
	Collector *metrics.Collector
}

// Validate checks driver configuration.
func (c *DriverConfig) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if c.Generator == nil {
		return errors.New("runtime: driver requires a generator")
	}
	if c.Executor == nil {
		return errors.New("runtime: driver requires an executor")
	}
	if c.MaxNodes <= 0 && c.MaxDuration <= 0 && c.Patience <= 0 {
		return errors.New("runtime: at least one budget (max_nodes, max_duration, patience) must be set")
	}
	if c.MaxNodes < 0 || c.Patience < 0 {
		return errors.New("runtime: budgets must be non-negative")
	}
	return nil
}

// Result summarizes a completed (or stopped) search run.
type Result struct {
	// StopReason is why the run terminated.
	StopReason StopReason
	// NodesAppended is the number of nodes added by this run.
	NodesAppended int
	// TotalNodes is the journal size at termination (includes resumed nodes).
	TotalNodes int
	// BestNodeID is the id of the best node, if any good node exists.
	BestNodeID *string
	// BestMetric is the best node's metric, if any.
	BestMetric *float64
	// Duration is the total run duration.
	Duration time.Duration
	// Metrics is the collector snapshot at termination.
	Metrics metrics.Snapshot
}

// Driver runs the draft/debug/improve loop until a budget is exhausted.
//
// Concurrency model: a bounded pool of workers independently runs the
// iteration sequence (decide stage, select parent, generate, execute,
// evaluate) against immutable journal snapshots; completed node records
// are sent to a single committer goroutine that owns the journal. Only
// the committer mutates state, so creation_order is assigned atomically
// at commit time and readers never see a partially-constructed node.
type Driver struct {
	cfg       DriverConfig
	journal   *journal.Journal
	chooser   *search.Chooser
	evaluator *eval.Evaluator
	logger    *log.Logger

	snap   atomic.Pointer[journal.Snapshot]
	planMu sync.Mutex

	// planned is the total node count this run is committed to reach,
	// including preexisting nodes. Guards the MaxNodes budget at
	// planning time so workers stop scheduling past it.
	planned atomic.Int64

	stopMu     sync.Mutex
	stopReason StopReason
	fatalErr   error
}

// NewDriver creates a driver over the given journal.
// The journal may be freshly created or reconstructed from a checkpoint;
// in the latter case the run continues where the checkpoint left off.
func NewDriver(cfg DriverConfig, j *journal.Journal, logger *log.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: invalid driver config: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	evaluator := cfg.Evaluator
	if evaluator == nil {
		evaluator = &eval.Evaluator{}
	}
	if logger == nil {
		logger = log.NewLogger(j.Meta())
	}
	return &Driver{
		cfg:       cfg,
		journal:   j,
		chooser:   search.NewChooser(cfg.Search, j.Meta().Seed),
		evaluator: evaluator,
		logger:    logger,
	}, nil
}

// Run executes the search loop until a budget is exhausted or ctx is
// canceled. Cancellation terminates in-flight executions and leaves the
// journal checkpoint-consistent: the final state is flushed before Run
// returns.
//
// Returns an error only for fatal conditions (infrastructure failure,
// invariant violation); budget exhaustion and external cancellation are
// normal terminations reported through Result.StopReason.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	initialLen := d.journal.Len()
	d.planned.Store(int64(initialLen))
	d.snap.Store(d.journal.Snapshot())

	runCtx := ctx
	var cancelTimeout context.CancelFunc
	if d.cfg.MaxDuration > 0 {
		runCtx, cancelTimeout = context.WithTimeout(ctx, d.cfg.MaxDuration)
		defer cancelTimeout()
	}
	runCtx, cancel := context.WithCancel(runCtx)
	defer cancel()

	d.logger.Info("starting search", map[string]any{
		"workers":        d.cfg.Workers,
		"max_nodes":      d.cfg.MaxNodes,
		"max_duration":   d.cfg.MaxDuration.String(),
		"patience":       d.cfg.Patience,
		"existing_nodes": initialLen,
	})

	commits := make(chan types.Node, d.cfg.Workers)
	committerDone := make(chan struct{})
	go d.commitLoop(runCtx, cancel, commits, committerDone)

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.workerLoop(runCtx, cancel, commits)
		}()
	}
	wg.Wait()
	close(commits)
	<-committerDone

	// Flush the final journal state regardless of how the run ended.
	// WithoutCancel preserves context values while ignoring cancellation.
	flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	if err := d.cfg.Checkpoints.Flush(flushCtx, d.journal.Meta(), d.journal.Snapshot()); err != nil {
		d.logger.Warn("final checkpoint flush failed", map[string]any{"error": err.Error()})
	}
	flushCancel()

	result := d.buildResult(ctx, start, initialLen)
	d.logger.Info("search finished", map[string]any{
		"stop_reason":    string(result.StopReason),
		"nodes_appended": result.NodesAppended,
		"total_nodes":    result.TotalNodes,
		"duration":       result.Duration.String(),
	})

	d.stopMu.Lock()
	fatal := d.fatalErr
	d.stopMu.Unlock()
	return result, fatal
}

// commitLoop is the single writer: it owns the journal, assigns commit
// order by append, publishes fresh snapshots, tracks the best metric and
// the early-stop window, and enforces the node budget.
func (d *Driver) commitLoop(ctx context.Context, cancel context.CancelFunc, commits <-chan types.Node, done chan<- struct{}) {
	defer close(done)

	best, haveBest := d.journal.Best(d.cfg.Search.Direction)
	sinceImprove := 0

	for n := range commits {
		if d.stopRequested() {
			// A stop reason is already set; in-flight results from other
			// workers are discarded so the budget decision stays exact.
			continue
		}
		stored, err := d.journal.Append(n)
		if err != nil {
			// Parent not found or duplicate id at commit time is an
			// engine invariant violation, not a user-facing error.
			d.fail(StopInvariant, fmt.Errorf("append failed: %w", err), cancel)
			continue
		}
		d.snap.Store(d.journal.Snapshot())
		d.recordNode(stored)

		if err := d.cfg.Checkpoints.AfterAppend(ctx, d.journal.Meta(), d.snap.Load()); err != nil {
			// Storage failure pauses the run; the previous checkpoint
			// still holds a consistent prefix of the journal.
			d.fail(StopInfraFailure, fmt.Errorf("checkpoint save failed: %w", err), cancel)
			continue
		}

		improved := false
		if !stored.IsBuggy && stored.Metric != nil {
			if !haveBest || d.cfg.Search.Direction.Better(*stored.Metric, *best.Metric) {
				best, haveBest = stored, true
				improved = true
			}
		}
		if improved {
			sinceImprove = 0
			d.cfg.Collector.IncBestImprovement()
			d.logger.Info("new best node", map[string]any{
				"node_id": stored.ID,
				"metric":  *stored.Metric,
				"depth":   stored.Depth,
			})
		} else {
			sinceImprove++
		}

		if d.cfg.Patience > 0 && sinceImprove >= d.cfg.Patience {
			d.stop(StopEarly, cancel)
		}
		if d.cfg.MaxNodes > 0 && d.journal.Len() >= d.cfg.MaxNodes {
			d.stop(StopMaxNodes, cancel)
		}
	}
}

// workerLoop runs iterations until the budget is exhausted or the run
// is canceled. Each iteration is atomic from the journal's perspective:
// a node record is only sent for commit once fully constructed.
func (d *Driver) workerLoop(ctx context.Context, cancel context.CancelFunc, commits chan<- types.Node) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !d.reserve() {
			return
		}

		action, err := d.plan()
		if err != nil {
			// The chooser guarantees eligibility for the action it picks;
			// a selection failure here is an invariant violation.
			d.release()
			d.fail(StopInvariant, err, cancel)
			return
		}

		node, err := d.iterate(ctx, action)
		if err != nil {
			d.release()
			if ctx.Err() != nil {
				// Canceled mid-iteration: abandon without a partial append.
				return
			}
			d.fail(StopInfraFailure, err, cancel)
			return
		}

		select {
		case commits <- node:
		case <-ctx.Done():
			d.release()
			return
		}
	}
}

// plan serializes stage selection: decisions consume the seeded RNG in
// commit-adjacent order against the latest published snapshot.
func (d *Driver) plan() (search.Action, error) {
	d.planMu.Lock()
	defer d.planMu.Unlock()
	return d.chooser.Next(d.snap.Load())
}

// iterate runs one generate-execute-evaluate sequence and returns the
// completed node record. Generation failures become buggy nodes;
// infrastructure failures are returned as errors.
func (d *Driver) iterate(ctx context.Context, action search.Action) (types.Node, error) {
	node := types.Node{
		ID:    uuid.New().String(),
		Stage: action.Stage,
	}
	req := &GenerateRequest{Stage: action.Stage}
	if action.Parent != nil {
		parentID := action.Parent.ID
		node.ParentID = &parentID
		req.Parent = &ParentContext{
			Code:    action.Parent.Code,
			Plan:    action.Parent.Plan,
			Stdout:  action.Parent.Outcome.Stdout,
			Stderr:  action.Parent.Outcome.Stderr,
			Status:  string(action.Parent.Outcome.Status),
			Metric:  action.Parent.Metric,
			IsBuggy: action.Parent.IsBuggy,
		}
	}

	var outcome types.ExecOutcome
	gen, genErr := d.cfg.Generator.Generate(ctx, req)
	switch {
	case ctx.Err() != nil:
		return types.Node{}, fmt.Errorf("generation canceled: %w", ctx.Err())

	case genErr != nil || gen == nil || strings.TrimSpace(gen.Code) == "":
		// Recoverable: record a buggy node so the failure is part of the
		// auditable attempt history.
		d.cfg.Collector.IncGenerationFailure()
		msg := "generator returned empty code"
		if genErr != nil {
			msg = genErr.Error()
		}
		d.logger.Warn("generation failed", map[string]any{
			"stage": string(action.Stage),
			"error": msg,
		})
		if gen != nil {
			node.Code, node.Plan = gen.Code, gen.Plan
		}
		outcome = types.ExecOutcome{
			Status:   types.ExecGenerationError,
			Stderr:   msg,
			ExitCode: -1,
		}

	default:
		node.Code, node.Plan = gen.Code, gen.Plan
		out, execErr := d.cfg.Executor.Execute(ctx, gen.Code)
		if execErr != nil {
			if ctx.Err() != nil {
				return types.Node{}, fmt.Errorf("execution canceled: %w", ctx.Err())
			}
			return types.Node{}, fmt.Errorf("sandbox failure: %w", execErr)
		}
		outcome = *out
	}

	verdict := d.evaluator.Evaluate(outcome)
	node.Outcome = outcome
	node.IsBuggy = verdict.IsBuggy
	node.Metric = verdict.Metric
	return node, nil
}

// recordNode updates the metrics collector for an appended node.
func (d *Driver) recordNode(n types.Node) {
	switch n.Stage {
	case types.StageDraft:
		d.cfg.Collector.IncNodeDrafted()
	case types.StageDebug:
		d.cfg.Collector.IncNodeDebugged()
	case types.StageImprove:
		d.cfg.Collector.IncNodeImproved()
	}
	if n.IsBuggy {
		d.cfg.Collector.IncBuggyNode()
	} else {
		d.cfg.Collector.IncGoodNode()
	}
	switch n.Outcome.Status {
	case types.ExecTimeout:
		d.cfg.Collector.IncExecTimeout()
	case types.ExecRuntimeError:
		d.cfg.Collector.IncExecRuntimeError()
	case types.ExecSuccess:
		if n.IsBuggy {
			d.cfg.Collector.IncSilentFailure()
		}
	}
	d.logger.Debug("node appended", map[string]any{
		"node_id":        n.ID,
		"stage":          string(n.Stage),
		"is_buggy":       n.IsBuggy,
		"depth":          n.Depth,
		"creation_order": n.CreationOrder,
	})
}

// reserve claims one slot of the node budget at planning time.
func (d *Driver) reserve() bool {
	if d.cfg.MaxNodes <= 0 {
		d.planned.Add(1)
		return true
	}
	for {
		cur := d.planned.Load()
		if cur >= int64(d.cfg.MaxNodes) {
			return false
		}
		if d.planned.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// release returns an abandoned reservation.
func (d *Driver) release() {
	d.planned.Add(-1)
}

// stopRequested reports whether a termination reason has been recorded.
func (d *Driver) stopRequested() bool {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	return d.stopReason != ""
}

// stop records a normal termination reason. The first reason wins.
func (d *Driver) stop(reason StopReason, cancel context.CancelFunc) {
	d.stopMu.Lock()
	if d.stopReason == "" {
		d.stopReason = reason
	}
	d.stopMu.Unlock()
	cancel()
}

// fail records a fatal termination. The first error wins.
func (d *Driver) fail(reason StopReason, err error, cancel context.CancelFunc) {
	d.stopMu.Lock()
	if d.stopReason == "" {
		d.stopReason = reason
		d.fatalErr = err
	}
	d.stopMu.Unlock()
	d.logger.Error("fatal search failure", map[string]any{
		"reason": string(reason),
		"error":  err.Error(),
	})
	cancel()
}

// buildResult assembles the final result after all goroutines are done.
func (d *Driver) buildResult(ctx context.Context, start time.Time, initialLen int) *Result {
	d.stopMu.Lock()
	reason := d.stopReason
	d.stopMu.Unlock()

	if reason == "" {
		switch {
		case ctx.Err() != nil:
			reason = StopCanceled
		case d.cfg.MaxNodes > 0 && d.journal.Len() >= d.cfg.MaxNodes:
			reason = StopMaxNodes
		default:
			// Workers exited on the wall-clock deadline before the
			// committer observed a budget breach.
			reason = StopMaxDuration
		}
	}

	result := &Result{
		StopReason:    reason,
		NodesAppended: d.journal.Len() - initialLen,
		TotalNodes:    d.journal.Len(),
		Duration:      time.Since(start),
		Metrics:       d.cfg.Collector.Snapshot(),
	}
	if best, ok := d.journal.Best(d.cfg.Search.Direction); ok {
		id := best.ID
		result.BestNodeID = &id
		result.BestMetric = best.Metric
	}
	return result
}
