package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/grove/cli/config"
	"github.com/pithecene-io/grove/cli/render"
	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/log"
	"github.com/pithecene-io/grove/metrics"
	"github.com/pithecene-io/grove/runtime"
	"github.com/pithecene-io/grove/search"
	"github.com/pithecene-io/grove/types"
)

// Exit codes for run and resume.
const (
	exitSuccess      = 0
	exitUsageError   = 1
	exitInfraFailure = 2
	exitInvariant    = 3
)

// RunCommand returns the run command, the entrypoint that starts a
// fresh search.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Start a new experiment search",
		Flags:  runFlags(),
		Action: runAction,
	}
}

func runFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to grove.yaml config file",
		},
		&cli.StringFlag{
			Name:  "search-id",
			Usage: "Search run identifier (default: generated UUID)",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "RNG seed for reproducible stage decisions (default: time-based)",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent search workers",
			Value: 1,
		},
		// Search policy flags
		&cli.IntFlag{
			Name:  "initial-drafts",
			Usage: "Independent root attempts before branching",
		},
		&cli.Float64Flag{
			Name:  "debug-prob",
			Usage: "Probability of debugging a buggy leaf when one exists",
		},
		&cli.IntFlag{
			Name:  "max-debug-depth",
			Usage: "Max consecutive debug attempts in a lineage",
		},
		&cli.Float64Flag{
			Name:  "explore-prob",
			Usage: "Probability of exploring a non-best parent on improve",
		},
		// Budget flags
		&cli.IntFlag{
			Name:  "max-nodes",
			Usage: "Total node budget (0 disables)",
		},
		&cli.DurationFlag{
			Name:  "max-duration",
			Usage: "Wall-clock budget (0 disables)",
		},
		&cli.IntFlag{
			Name:  "patience",
			Usage: "Stop after this many appends without a new best (0 disables)",
		},
		// Collaborator flags
		&cli.StringFlag{
			Name:  "generator",
			Usage: "Code-generation collaborator command",
		},
		&cli.StringFlag{
			Name:  "executor",
			Usage: "Sandbox interpreter command",
			Value: "python3",
		},
		&cli.StringFlag{
			Name:  "exec-filename",
			Usage: "Candidate filename inside the scratch workspace",
		},
		&cli.StringFlag{
			Name:  "exec-workdir",
			Usage: "Parent directory for scratch workspaces",
		},
		&cli.DurationFlag{
			Name:  "exec-timeout",
			Usage: "Per-execution timeout",
		},
		&cli.IntFlag{
			Name:  "checkpoint-every",
			Usage: "Save a checkpoint every N appends",
			Value: 1,
		},
		// Notification flags
		&cli.StringFlag{
			Name:  "notify",
			Usage: "Completion notification: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "notify-url",
			Usage: "Webhook URL or Redis connection URL",
		},
		&cli.StringFlag{
			Name:  "notify-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.IntFlag{
			Name:  "notify-retries",
			Usage: "Notification retry attempts",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress result output",
		},
	}
	flags = append(flags, DirectionFlag)
	flags = append(flags, CheckpointFlags(false)...)
	flags = append(flags, FormatFlag)
	return flags
}

func runAction(c *cli.Context) error {
	fileCfg, err := loadConfigFile(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	searchCfg, err := resolveSearchConfig(c, fileCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid search config: %v", err), exitUsageError)
	}

	searchID := c.String("search-id")
	if searchID == "" {
		searchID = uuid.New().String()
	}
	seed := resolveInt64(c, "seed", fileCfg.Seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	meta := types.SearchMeta{SearchID: searchID, Seed: seed}
	if err := meta.Validate(); err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	return executeSearch(c, fileCfg, searchCfg, journal.New(meta), nil)
}

// executeSearch runs the driver against the given journal. Shared by
// run (fresh journal) and resume (reconstructed journal).
func executeSearch(c *cli.Context, fileCfg *config.Config, searchCfg search.Config, j *journal.Journal, resumedFrom *string) error {
	meta := j.Meta()
	logMeta := meta
	logMeta.ResumedFrom = resumedFrom
	logger := log.NewLogger(logMeta)

	workers := resolveInt(c, "workers", fileCfg.Workers)
	collector := metrics.NewCollector(meta.SearchID, string(searchCfg.Direction), workers)

	generatorCmd := resolveCommand(c, "generator", fileCfg.Generator.Command)
	if len(generatorCmd) == 0 {
		return cli.Exit("a generator command is required (--generator or config file)", exitUsageError)
	}
	generator, err := runtime.NewProcessGenerator(generatorCmd)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	executor, err := runtime.NewSandboxExecutor(runtime.SandboxConfig{
		Command:         resolveCommand(c, "executor", fileCfg.Executor.Command),
		Filename:        resolveString(c, "exec-filename", fileCfg.Executor.Filename),
		WorkDir:         resolveString(c, "exec-workdir", fileCfg.Executor.WorkDir),
		Timeout:         resolveDuration(c, "exec-timeout", fileCfg.Executor.Timeout.Duration),
		MaxCaptureBytes: fileCfg.Executor.MaxCaptureBytes,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	// Signal handling: first SIGINT/SIGTERM cancels the run; the driver
	// flushes a final checkpoint before returning.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer, err := buildCheckpointWriter(ctx, c, fileCfg, collector)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}
	defer func() { _ = writer.Close() }()

	publisher, err := buildPublisher(c, fileCfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	driver, err := runtime.NewDriver(runtime.DriverConfig{
		Search:      searchCfg,
		Workers:     workers,
		MaxNodes:    resolveInt(c, "max-nodes", fileCfg.Budgets.MaxNodes),
		MaxDuration: resolveDuration(c, "max-duration", fileCfg.Budgets.MaxDuration.Duration),
		Patience:    resolveInt(c, "patience", fileCfg.Budgets.Patience),
		Generator:   generator,
		Executor:    executor,
		Checkpoints: writer,
		Collector:   collector,
	}, j, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	result, runErr := driver.Run(ctx)

	publishCompletion(ctx, publisher, logger, meta, searchCfg.Direction, result)

	if !c.Bool("quiet") {
		printResult(c, meta, result)
	}

	if runErr != nil {
		code := exitInfraFailure
		if result.StopReason == runtime.StopInvariant {
			code = exitInvariant
		}
		return cli.Exit(fmt.Sprintf("search failed: %v", runErr), code)
	}
	return cli.Exit("", exitSuccess)
}

// RunResponse is the result payload printed after run and resume.
type RunResponse struct {
	SearchID      string   `json:"search_id"`
	Seed          int64    `json:"seed"`
	StopReason    string   `json:"stop_reason"`
	NodesAppended int      `json:"nodes_appended"`
	TotalNodes    int      `json:"total_nodes"`
	BestNodeID    *string  `json:"best_node_id,omitempty"`
	BestMetric    *float64 `json:"best_metric,omitempty"`
	Duration      string   `json:"duration"`
	GoodNodes     int64    `json:"good_nodes"`
	BuggyNodes    int64    `json:"buggy_nodes"`
	Timeouts      int64    `json:"timeouts"`
	GenFailures   int64    `json:"generation_failures"`
	Checkpoints   int64    `json:"checkpoints_saved"`
}

func printResult(c *cli.Context, meta types.SearchMeta, result *runtime.Result) {
	r, err := render.NewRenderer(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		return
	}
	resp := RunResponse{
		SearchID:      meta.SearchID,
		Seed:          meta.Seed,
		StopReason:    string(result.StopReason),
		NodesAppended: result.NodesAppended,
		TotalNodes:    result.TotalNodes,
		BestNodeID:    result.BestNodeID,
		BestMetric:    result.BestMetric,
		Duration:      result.Duration.Round(time.Millisecond).String(),
		GoodNodes:     result.Metrics.GoodNodes,
		BuggyNodes:    result.Metrics.BuggyNodes,
		Timeouts:      result.Metrics.ExecTimeouts,
		GenFailures:   result.Metrics.GenerationFailures,
		Checkpoints:   result.Metrics.CheckpointSaves,
	}
	if err := r.Render(resp); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
	}
}
