package config

import (
	"fmt"
	"time"
)

// Config represents a grove.yaml configuration file.
// All values are optional and act as defaults for grove run flags.
// CLI flags always override config values.
type Config struct {
	Seed       int64            `yaml:"seed"`
	Workers    int              `yaml:"workers"`
	Search     SearchConfig     `yaml:"search"`
	Budgets    BudgetConfig     `yaml:"budgets"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Adapter    AdapterConfig    `yaml:"adapter"`
}

// SearchConfig holds stage- and parent-selection defaults.
type SearchConfig struct {
	Direction     string   `yaml:"direction"`
	InitialDrafts int      `yaml:"initial_drafts"`
	DebugProb     *float64 `yaml:"debug_prob,omitempty"`
	MaxDebugDepth int      `yaml:"max_debug_depth"`
	ExploreProb   *float64 `yaml:"explore_prob,omitempty"`
}

// BudgetConfig holds run termination defaults.
type BudgetConfig struct {
	MaxNodes    int      `yaml:"max_nodes"`
	MaxDuration Duration `yaml:"max_duration"`
	Patience    int      `yaml:"patience"`
}

// GeneratorConfig holds the code-generation collaborator command.
type GeneratorConfig struct {
	Command []string `yaml:"command"`
}

// ExecutorConfig holds execution sandbox defaults.
type ExecutorConfig struct {
	Command         []string `yaml:"command"`
	Filename        string   `yaml:"filename"`
	WorkDir         string   `yaml:"workdir"`
	Timeout         Duration `yaml:"timeout"`
	MaxCaptureBytes int      `yaml:"max_capture_bytes"`
}

// CheckpointConfig holds checkpoint storage defaults.
// Path accepts a local file path or an s3://bucket/key URL.
type CheckpointConfig struct {
	Path        string `yaml:"path"`
	Every       int    `yaml:"every"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds completion-notification defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"` // webhook or redis
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "2h").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
