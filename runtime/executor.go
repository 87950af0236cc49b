// Package runtime orchestrates the generate-execute-evaluate search loop.
//
// The engine consumes two external collaborators: a Generator producing
// candidate code from a stage and ancestor context, and an Executor
// running candidates in isolation. Both are interfaces so tests inject
// scripted stubs; the process-backed implementations here are the
// production defaults.
package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pithecene-io/grove/types"
)

// DefaultExecTimeout bounds candidate execution when none is configured.
const DefaultExecTimeout = 10 * time.Minute

// DefaultMaxCaptureBytes caps captured stdout/stderr per stream.
const DefaultMaxCaptureBytes = 1 << 20 // 1 MiB

// DefaultCodeFilename is the filename candidates are written to inside
// their scratch workspace.
const DefaultCodeFilename = "experiment.py"

// Executor runs candidate code in isolation and reports the outcome.
//
// Execution failures (runtime error, timeout) are reported in the
// outcome, not as an error; the error return is reserved for
// infrastructure failures (sandbox unreachable, workspace unusable)
// that must pause the run. The engine never retries an execution:
// failed candidates become buggy nodes and recovery happens through
// debug children in the tree.
type Executor interface {
	Execute(ctx context.Context, code string) (*types.ExecOutcome, error)
}

// SandboxConfig configures the process sandbox executor.
type SandboxConfig struct {
	// Command is the interpreter argv prefix; the candidate file path is
	// appended. Example: ["python3"].
	Command []string
	// Filename is the name the candidate is written under inside its
	// scratch directory. Empty means DefaultCodeFilename.
	Filename string
	// WorkDir is the parent directory for per-execution scratch
	// directories. Empty means the OS temp directory.
	WorkDir string
	// Timeout bounds a single execution. Zero means DefaultExecTimeout.
	Timeout time.Duration
	// MaxCaptureBytes caps captured output per stream. Zero means
	// DefaultMaxCaptureBytes.
	MaxCaptureBytes int
}

// SandboxExecutor executes candidates as subprocesses in throwaway
// scratch directories. Each execution gets a fresh directory, a bounded
// timeout, and capped output capture; the process is killed when the
// timeout or a run-level cancellation fires.
type SandboxExecutor struct {
	config SandboxConfig
}

// NewSandboxExecutor creates a sandbox executor.
func NewSandboxExecutor(config SandboxConfig) (*SandboxExecutor, error) {
	if len(config.Command) == 0 {
		return nil, errors.New("runtime: sandbox executor requires a command")
	}
	if config.Filename == "" {
		config.Filename = DefaultCodeFilename
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultExecTimeout
	}
	if config.MaxCaptureBytes <= 0 {
		config.MaxCaptureBytes = DefaultMaxCaptureBytes
	}
	return &SandboxExecutor{config: config}, nil
}

// Execute implements Executor.
func (e *SandboxExecutor) Execute(ctx context.Context, code string) (*types.ExecOutcome, error) {
	dir, err := os.MkdirTemp(e.config.WorkDir, "grove-exec-*")
	if err != nil {
		return nil, fmt.Errorf("runtime: create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	codePath := filepath.Join(dir, e.config.Filename)
	if err := os.WriteFile(codePath, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("runtime: write candidate file: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	argv := append(append([]string{}, e.config.Command...), codePath)
	cmd := exec.CommandContext(execCtx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr boundedBuffer
	stdout.limit = e.config.MaxCaptureBytes
	stderr.limit = e.config.MaxCaptureBytes
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	outcome := &types.ExecOutcome{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ElapsedMs: elapsed.Milliseconds(),
	}

	switch {
	case execCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		// Killed by the per-execution timeout, not the run-level context.
		// Reported as a distinct status, never conflated with a runtime error.
		outcome.Status = types.ExecTimeout
		outcome.ExitCode = -1
		return outcome, nil

	case ctx.Err() != nil:
		// Run-level cancellation killed the process mid-flight. Surface
		// the cancellation so the caller abandons the iteration.
		return nil, fmt.Errorf("runtime: execution canceled: %w", ctx.Err())

	case runErr == nil:
		outcome.Status = types.ExecSuccess
		return outcome, nil

	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			outcome.Status = types.ExecRuntimeError
			outcome.ExitCode = exitCodeOf(exitErr)
			return outcome, nil
		}
		// Could not start the process at all: infrastructure failure.
		return nil, fmt.Errorf("runtime: start candidate: %w", runErr)
	}
}

// exitCodeOf extracts the process exit code from an ExitError.
func exitCodeOf(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		return status.ExitStatus()
	}
	return -1
}

// boundedBuffer captures up to limit bytes and silently discards the rest.
type boundedBuffer struct {
	buf   bytes.Buffer
	limit int
}

// Write implements io.Writer. Never returns an error: overflow is
// truncation, not failure.
func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string { return b.buf.String() }

var _ io.Writer = (*boundedBuffer)(nil)
