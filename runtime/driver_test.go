package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/pithecene-io/grove/checkpoint"
	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/log"
	"github.com/pithecene-io/grove/runtime"
	"github.com/pithecene-io/grove/search"
	"github.com/pithecene-io/grove/types"
)

func testMeta() types.SearchMeta {
	return types.SearchMeta{SearchID: "search-test", Seed: 42}
}

func quietLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.NewLogger(testMeta()).WithOutput(io.Discard)
}

// sequenceGenerator produces a distinct code string per call so executor
// stubs can key outcomes off specific iterations.
type sequenceGenerator struct {
	inner *runtime.StubGenerator
}

func newSequenceGenerator(n int) (*sequenceGenerator, []string) {
	codes := make([]string, 0, n)
	gens := make([]runtime.StubGeneration, 0, n)
	for i := 0; i < n; i++ {
		code := fmt.Sprintf("candidate-%d", i+1)
		codes = append(codes, code)
		gens = append(gens, runtime.StubGeneration{Code: code, Plan: "plan"})
	}
	g := runtime.NewStubGenerator(gens...)
	g.Fallback = runtime.StubGeneration{Code: "candidate-overflow", Plan: "plan"}
	return &sequenceGenerator{inner: g}, codes
}

func (g *sequenceGenerator) Generate(ctx context.Context, req *runtime.GenerateRequest) (*runtime.GenerateResult, error) {
	return g.inner.Generate(ctx, req)
}

func goodOutcome(metric float64) types.ExecOutcome {
	return types.ExecOutcome{
		Status: types.ExecSuccess,
		Stdout: fmt.Sprintf("METRIC: %g\n", metric),
	}
}

func buggyOutcome() types.ExecOutcome {
	return types.ExecOutcome{Status: types.ExecRuntimeError, ExitCode: 1}
}

func TestDriverStopsAtMaxNodes(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	exec.Default = goodOutcome(0.5)

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   1,
		MaxNodes:  5,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.StopReason != runtime.StopMaxNodes {
		t.Errorf("stop reason = %q, want %q", result.StopReason, runtime.StopMaxNodes)
	}
	if result.TotalNodes != 5 {
		t.Errorf("total nodes = %d, want 5", result.TotalNodes)
	}
	if result.NodesAppended != 5 {
		t.Errorf("nodes appended = %d, want 5", result.NodesAppended)
	}
	if result.BestNodeID == nil || result.BestMetric == nil {
		t.Fatal("expected a best node")
	}
	if *result.BestMetric != 0.5 {
		t.Errorf("best metric = %g, want 0.5", *result.BestMetric)
	}

	// Creation order must be dense and strictly increasing from 1.
	for i, n := range j.Nodes() {
		if n.CreationOrder != int64(i)+1 {
			t.Errorf("node %d has creation_order %d, want %d", i, n.CreationOrder, i+1)
		}
	}
	if err := j.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestDriverEarlyStopsOnPatience(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	// Constant metric: only the first good node is an improvement.
	exec.Default = goodOutcome(0.5)

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   1,
		MaxNodes:  50,
		Patience:  3,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.StopReason != runtime.StopEarly {
		t.Errorf("stop reason = %q, want %q", result.StopReason, runtime.StopEarly)
	}
	// One improving node plus the patience window of stagnant ones.
	if result.TotalNodes != 4 {
		t.Errorf("total nodes = %d, want 4", result.TotalNodes)
	}
	if result.Metrics.BestImprovements != 1 {
		t.Errorf("best improvements = %d, want 1", result.Metrics.BestImprovements)
	}
}

func TestDriverTracksImprovingBest(t *testing.T) {
	gen, codes := newSequenceGenerator(4)
	exec := runtime.NewStubExecutor()
	exec.On(codes[0], goodOutcome(0.2)).
		On(codes[1], goodOutcome(0.4)).
		On(codes[2], goodOutcome(0.3)).
		On(codes[3], goodOutcome(0.9))

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   1,
		MaxNodes:  4,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.BestMetric == nil || *result.BestMetric != 0.9 {
		t.Fatalf("best metric = %v, want 0.9", result.BestMetric)
	}
	// 0.2, 0.4 and 0.9 each set a new best; 0.3 does not.
	if result.Metrics.BestImprovements != 3 {
		t.Errorf("best improvements = %d, want 3", result.Metrics.BestImprovements)
	}
}

func TestDriverRecordsGenerationFailureAsBuggyNode(t *testing.T) {
	gen := runtime.NewStubGenerator(
		runtime.StubGeneration{Err: errors.New("model unavailable")},
		runtime.StubGeneration{Code: "ok-code", Plan: "plan"},
	)
	exec := runtime.NewStubExecutor()
	exec.Default = goodOutcome(0.5)

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   1,
		MaxNodes:  2,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TotalNodes != 2 {
		t.Fatalf("total nodes = %d, want 2", result.TotalNodes)
	}

	nodes := j.Nodes()
	failed := nodes[0]
	if !failed.IsBuggy {
		t.Error("generation-failure node should be buggy")
	}
	if failed.Metric != nil {
		t.Error("generation-failure node should have no metric")
	}
	if failed.Outcome.Status != types.ExecGenerationError {
		t.Errorf("status = %q, want %q", failed.Outcome.Status, types.ExecGenerationError)
	}
	if result.Metrics.GenerationFailures != 1 {
		t.Errorf("generation failures = %d, want 1", result.Metrics.GenerationFailures)
	}
	// The failed code was never executed.
	if got := exec.Executed(); len(got) != 1 || got[0] != "ok-code" {
		t.Errorf("executed = %v, want [ok-code]", got)
	}
}

func TestDriverTreatsEmptyCodeAsGenerationFailure(t *testing.T) {
	gen := runtime.NewStubGenerator(
		runtime.StubGeneration{Code: "   \n", Plan: "plan"},
	)
	gen.Fallback = runtime.StubGeneration{Code: "ok", Plan: "plan"}
	exec := runtime.NewStubExecutor()
	exec.Default = goodOutcome(0.5)

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   1,
		MaxNodes:  1,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	if _, err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	n := j.Nodes()[0]
	if !n.IsBuggy || n.Outcome.Status != types.ExecGenerationError {
		t.Errorf("node = {buggy: %v, status: %q}, want buggy generation_error", n.IsBuggy, n.Outcome.Status)
	}
}

func TestDriverStopsOnExecutorInfraFailure(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	exec.Err = errors.New("sandbox unreachable")

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   1,
		MaxNodes:  10,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	result, err := driver.Run(context.Background())
	if err == nil {
		t.Fatal("expected a fatal error")
	}
	if result.StopReason != runtime.StopInfraFailure {
		t.Errorf("stop reason = %q, want %q", result.StopReason, runtime.StopInfraFailure)
	}
	if result.TotalNodes != 0 {
		t.Errorf("total nodes = %d, want 0", result.TotalNodes)
	}
}

func TestDriverStopsOnCheckpointSaveFailure(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	exec.Default = goodOutcome(0.5)

	store := checkpoint.NewStubStore()
	store.ErrorOnSave = errors.New("bucket gone")

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:      search.DefaultConfig(),
		Workers:     1,
		MaxNodes:    10,
		Generator:   gen,
		Executor:    exec,
		Checkpoints: checkpoint.NewWriter(store, 1),
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	result, err := driver.Run(context.Background())
	if err == nil {
		t.Fatal("expected a fatal error")
	}
	if result.StopReason != runtime.StopInfraFailure {
		t.Errorf("stop reason = %q, want %q", result.StopReason, runtime.StopInfraFailure)
	}
}

func TestDriverFlushesConsistentCheckpoint(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	exec.Default = goodOutcome(0.5)

	store := checkpoint.NewStubStore()

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:      search.DefaultConfig(),
		Workers:     2,
		MaxNodes:    6,
		Generator:   gen,
		Executor:    exec,
		Checkpoints: checkpoint.NewWriter(store, 3),
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	if _, err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restored, err := checkpoint.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if restored.Len() != j.Len() {
		t.Errorf("restored %d nodes, journal has %d", restored.Len(), j.Len())
	}
	if err := restored.Verify(); err != nil {
		t.Errorf("restored journal fails verification: %v", err)
	}
}

func TestDriverCancellation(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	exec.Default = goodOutcome(0.5)

	store := checkpoint.NewStubStore()

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:      search.DefaultConfig(),
		Workers:     2,
		MaxNodes:    100000,
		Generator:   gen,
		Executor:    exec,
		Checkpoints: checkpoint.NewWriter(store, 1000),
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := driver.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.StopReason != runtime.StopCanceled {
		t.Errorf("stop reason = %q, want %q", result.StopReason, runtime.StopCanceled)
	}

	// The final flush runs even though the context is canceled.
	data, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load after cancel: %v", err)
	}
	restored, err := checkpoint.Decode(data)
	if err != nil {
		t.Fatalf("Decode after cancel: %v", err)
	}
	if restored.Len() != j.Len() {
		t.Errorf("checkpoint has %d nodes, journal has %d", restored.Len(), j.Len())
	}
}

func TestDriverStopsAtMaxDuration(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := &slowExecutor{delay: 20 * time.Millisecond, outcome: goodOutcome(0.5)}

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:      search.DefaultConfig(),
		Workers:     1,
		MaxDuration: 60 * time.Millisecond,
		Generator:   gen,
		Executor:    exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.StopReason != runtime.StopMaxDuration {
		t.Errorf("stop reason = %q, want %q", result.StopReason, runtime.StopMaxDuration)
	}
}

// slowExecutor returns a fixed outcome after a delay, respecting
// cancellation.
type slowExecutor struct {
	delay   time.Duration
	outcome types.ExecOutcome
}

func (e *slowExecutor) Execute(ctx context.Context, _ string) (*types.ExecOutcome, error) {
	select {
	case <-time.After(e.delay):
		out := e.outcome
		return &out, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("execution canceled: %w", ctx.Err())
	}
}

func TestDriverRespectsDebugDepthBound(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	exec.Default = buggyOutcome()

	cfg := search.DefaultConfig()
	cfg.InitialDrafts = 1
	cfg.DebugProb = 1.0
	cfg.MaxDebugDepth = 2

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    cfg,
		Workers:   1,
		MaxNodes:  9,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	if _, err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, n := range j.Nodes() {
		if d := j.DebugDepth(n.ID); d > cfg.MaxDebugDepth {
			t.Errorf("node %s has debug depth %d, bound is %d", n.ID, d, cfg.MaxDebugDepth)
		}
	}
	// Exhausted subtrees force fresh drafts, so multiple roots exist.
	if roots := j.Roots(); len(roots) < 2 {
		t.Errorf("got %d roots, want at least 2 after debug exhaustion", len(roots))
	}
}

func TestDriverParallelWorkersKeepJournalConsistent(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	exec.Default = goodOutcome(0.5)

	j := journal.New(testMeta())
	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   4,
		MaxNodes:  20,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TotalNodes != 20 {
		t.Errorf("total nodes = %d, want 20", result.TotalNodes)
	}
	if err := j.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestDriverConfigValidation(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()

	cases := []struct {
		name string
		cfg  runtime.DriverConfig
	}{
		{"missing generator", runtime.DriverConfig{Search: search.DefaultConfig(), MaxNodes: 1, Executor: exec}},
		{"missing executor", runtime.DriverConfig{Search: search.DefaultConfig(), MaxNodes: 1, Generator: gen}},
		{"no budget", runtime.DriverConfig{Search: search.DefaultConfig(), Generator: gen, Executor: exec}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := runtime.NewDriver(tc.cfg, journal.New(testMeta()), quietLogger(t)); err == nil {
				t.Error("expected config error")
			}
		})
	}
}

func TestDriverResumeContinuesCounting(t *testing.T) {
	gen, _ := newSequenceGenerator(0)
	exec := runtime.NewStubExecutor()
	exec.Default = goodOutcome(0.5)

	j := journal.New(testMeta())
	first, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   1,
		MaxNodes:  3,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Resuming with a larger budget counts existing nodes toward it.
	second, err := runtime.NewDriver(runtime.DriverConfig{
		Search:    search.DefaultConfig(),
		Workers:   1,
		MaxNodes:  5,
		Generator: gen,
		Executor:  exec,
	}, j, quietLogger(t))
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	result, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if result.TotalNodes != 5 {
		t.Errorf("total nodes = %d, want 5", result.TotalNodes)
	}
	if result.NodesAppended != 2 {
		t.Errorf("nodes appended = %d, want 2", result.NodesAppended)
	}
}
