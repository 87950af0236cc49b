package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grove.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
seed: 42
workers: 4
search:
  direction: maximize
  initial_drafts: 5
  debug_prob: 0.7
  max_debug_depth: 2
  explore_prob: 0.1
budgets:
  max_nodes: 200
  max_duration: 2h
  patience: 20
generator:
  command: ["grove-codegen", "--model", "large"]
executor:
  command: ["python3"]
  filename: experiment.py
  timeout: 15m
  max_capture_bytes: 65536
checkpoint:
  path: /var/lib/grove/search.ckpt
  every: 5
adapter:
  type: webhook
  url: https://hooks.example.com/grove
  headers:
    Authorization: Bearer secret
  timeout: 30s
  retries: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Seed != 42 || cfg.Workers != 4 {
		t.Errorf("seed/workers = %d/%d, want 42/4", cfg.Seed, cfg.Workers)
	}
	if cfg.Search.Direction != "maximize" || cfg.Search.InitialDrafts != 5 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Search.DebugProb == nil || *cfg.Search.DebugProb != 0.7 {
		t.Errorf("debug_prob = %v, want 0.7", cfg.Search.DebugProb)
	}
	if cfg.Budgets.MaxNodes != 200 || cfg.Budgets.Patience != 20 {
		t.Errorf("budgets = %+v", cfg.Budgets)
	}
	if cfg.Budgets.MaxDuration.Duration != 2*time.Hour {
		t.Errorf("max_duration = %v, want 2h", cfg.Budgets.MaxDuration.Duration)
	}
	if len(cfg.Generator.Command) != 3 || cfg.Generator.Command[0] != "grove-codegen" {
		t.Errorf("generator command = %v", cfg.Generator.Command)
	}
	if cfg.Executor.Timeout.Duration != 15*time.Minute {
		t.Errorf("executor timeout = %v, want 15m", cfg.Executor.Timeout.Duration)
	}
	if cfg.Checkpoint.Path != "/var/lib/grove/search.ckpt" || cfg.Checkpoint.Every != 5 {
		t.Errorf("checkpoint = %+v", cfg.Checkpoint)
	}
	if cfg.Adapter.Type != "webhook" || cfg.Adapter.Headers["Authorization"] != "Bearer secret" {
		t.Errorf("adapter = %+v", cfg.Adapter)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 2 {
		t.Errorf("retries = %v, want 2", cfg.Adapter.Retries)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workers != 0 || cfg.Budgets.MaxNodes != 0 {
		t.Errorf("empty config should yield zero values, got %+v", cfg)
	}
	if cfg.Search.DebugProb != nil {
		t.Error("unset debug_prob should stay nil to distinguish from explicit 0")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "search: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "budgets:\n  max_duration: tomorrow\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("GROVE_TEST_BUCKET", "results-bucket")
	path := writeConfig(t, `
checkpoint:
  path: s3://${GROVE_TEST_BUCKET}/search.ckpt
  region: ${GROVE_TEST_REGION:-us-east-1}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Checkpoint.Path != "s3://results-bucket/search.ckpt" {
		t.Errorf("path = %q", cfg.Checkpoint.Path)
	}
	if cfg.Checkpoint.Region != "us-east-1" {
		t.Errorf("region = %q, want default us-east-1", cfg.Checkpoint.Region)
	}
}
