package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/grove/adapter"
	redisadapter "github.com/pithecene-io/grove/adapter/redis"
	"github.com/pithecene-io/grove/adapter/webhook"
	"github.com/pithecene-io/grove/checkpoint"
	"github.com/pithecene-io/grove/cli/config"
	"github.com/pithecene-io/grove/cli/reader"
	"github.com/pithecene-io/grove/log"
	"github.com/pithecene-io/grove/metrics"
	"github.com/pithecene-io/grove/runtime"
	"github.com/pithecene-io/grove/search"
	"github.com/pithecene-io/grove/types"
)

// loadConfigFile loads the --config file when given, or returns an
// empty config so flag resolution can proceed uniformly.
func loadConfigFile(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// Flag-over-file resolution. A flag explicitly set on the command line
// always wins; otherwise a non-zero config file value; otherwise the
// flag's default.

func resolveString(c *cli.Context, name, fileValue string) string {
	if c.IsSet(name) || fileValue == "" {
		return c.String(name)
	}
	return fileValue
}

func resolveInt(c *cli.Context, name string, fileValue int) int {
	if c.IsSet(name) || fileValue == 0 {
		return c.Int(name)
	}
	return fileValue
}

func resolveInt64(c *cli.Context, name string, fileValue int64) int64 {
	if c.IsSet(name) || fileValue == 0 {
		return c.Int64(name)
	}
	return fileValue
}

func resolveFloat(c *cli.Context, name string, fileValue *float64) float64 {
	if c.IsSet(name) || fileValue == nil {
		return c.Float64(name)
	}
	return *fileValue
}

func resolveDuration(c *cli.Context, name string, fileValue time.Duration) time.Duration {
	if c.IsSet(name) || fileValue == 0 {
		return c.Duration(name)
	}
	return fileValue
}

func resolveCommand(c *cli.Context, name string, fileValue []string) []string {
	if c.IsSet(name) || len(fileValue) == 0 {
		s := c.String(name)
		if s == "" {
			return nil
		}
		return strings.Fields(s)
	}
	return fileValue
}

// resolveSearchConfig merges search flags over config file values onto
// the engine defaults.
func resolveSearchConfig(c *cli.Context, fileCfg *config.Config) (search.Config, error) {
	cfg := search.DefaultConfig()

	directionStr := resolveString(c, "direction", fileCfg.Search.Direction)
	if directionStr != "" {
		direction, err := types.ParseDirection(directionStr)
		if err != nil {
			return search.Config{}, err
		}
		cfg.Direction = direction
	}
	if v := resolveInt(c, "initial-drafts", fileCfg.Search.InitialDrafts); v > 0 {
		cfg.InitialDrafts = v
	}
	if c.IsSet("debug-prob") {
		cfg.DebugProb = c.Float64("debug-prob")
	} else if fileCfg.Search.DebugProb != nil {
		cfg.DebugProb = *fileCfg.Search.DebugProb
	}
	if v := resolveInt(c, "max-debug-depth", fileCfg.Search.MaxDebugDepth); v > 0 {
		cfg.MaxDebugDepth = v
	}
	if c.IsSet("explore-prob") {
		cfg.ExploreProb = c.Float64("explore-prob")
	} else if fileCfg.Search.ExploreProb != nil {
		cfg.ExploreProb = *fileCfg.Search.ExploreProb
	}

	if err := cfg.Validate(); err != nil {
		return search.Config{}, err
	}
	return cfg, nil
}

// s3OptionsFromFlags reads the shared S3 flags.
func s3OptionsFromFlags(c *cli.Context, fileCfg *config.Config) reader.S3Options {
	return reader.S3Options{
		Region:       resolveString(c, "s3-region", fileCfg.Checkpoint.Region),
		Endpoint:     resolveString(c, "s3-endpoint", fileCfg.Checkpoint.Endpoint),
		UsePathStyle: c.Bool("s3-path-style") || fileCfg.Checkpoint.S3PathStyle,
	}
}

// buildCheckpointWriter opens the checkpoint store and wraps it in a
// cadenced writer with metrics instrumentation. Returns nil when no
// checkpoint path is configured (checkpointing disabled).
func buildCheckpointWriter(ctx context.Context, c *cli.Context, fileCfg *config.Config, collector *metrics.Collector) (*checkpoint.Writer, error) {
	path := resolveString(c, "checkpoint", fileCfg.Checkpoint.Path)
	if path == "" {
		return nil, nil
	}
	store, err := reader.OpenStore(ctx, path, s3OptionsFromFlags(c, fileCfg))
	if err != nil {
		return nil, err
	}
	every := resolveInt(c, "checkpoint-every", fileCfg.Checkpoint.Every)
	return checkpoint.NewWriter(checkpoint.NewInstrumentedStore(store, collector), every), nil
}

// buildPublisher creates the completion-notification publisher, or nil
// when none is configured.
func buildPublisher(c *cli.Context, fileCfg *config.Config) (adapter.Publisher, error) {
	kind := resolveString(c, "notify", fileCfg.Adapter.Type)
	if kind == "" {
		return nil, nil
	}
	url := resolveString(c, "notify-url", fileCfg.Adapter.URL)
	retries := -1
	if c.IsSet("notify-retries") {
		retries = c.Int("notify-retries")
	} else if fileCfg.Adapter.Retries != nil {
		retries = *fileCfg.Adapter.Retries
	}

	switch kind {
	case "webhook":
		cfg := webhook.Config{
			URL:     url,
			Headers: fileCfg.Adapter.Headers,
			Timeout: fileCfg.Adapter.Timeout.Duration,
			Retries: webhook.DefaultRetries,
		}
		if retries >= 0 {
			cfg.Retries = retries
		}
		return webhook.New(cfg)
	case "redis":
		cfg := redisadapter.Config{
			URL:     url,
			Channel: resolveString(c, "notify-channel", fileCfg.Adapter.Channel),
			Timeout: fileCfg.Adapter.Timeout.Duration,
			Retries: redisadapter.DefaultRetries,
		}
		if retries >= 0 {
			cfg.Retries = retries
		}
		return redisadapter.New(cfg)
	default:
		return nil, fmt.Errorf("unknown notify type: %q (must be webhook or redis)", kind)
	}
}

// publishCompletion sends the completion event. Publish failures are
// logged and swallowed: notification is best effort, never fatal.
func publishCompletion(ctx context.Context, pub adapter.Publisher, logger *log.Logger, meta types.SearchMeta, direction types.MetricDirection, result *runtime.Result) {
	if pub == nil {
		return
	}
	defer func() { _ = pub.Close() }()

	event := adapter.NewSearchCompletedEvent(meta, direction)
	event.StopReason = string(result.StopReason)
	event.NodeCount = result.TotalNodes
	event.BestNodeID = result.BestNodeID
	event.BestMetric = result.BestMetric
	event.DurationMs = result.Duration.Milliseconds()

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := pub.Publish(publishCtx, event); err != nil {
		logger.Warn("completion notification failed", map[string]any{"error": err.Error()})
	}
}
