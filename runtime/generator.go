package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/pithecene-io/grove/types"
)

// GenerateRequest is the context handed to the code-generation
// collaborator. On draft there is no parent; on debug and improve the
// parent's code, plan, and captured output are included so the
// collaborator can react to what actually happened.
type GenerateRequest struct {
	// Stage is the action being attempted.
	Stage types.Stage `json:"stage"`
	// Parent is the ancestor context. Nil for drafts.
	Parent *ParentContext `json:"parent,omitempty"`
}

// ParentContext is the slice of a parent node the collaborator sees.
type ParentContext struct {
	Code    string   `json:"code"`
	Plan    string   `json:"plan"`
	Stdout  string   `json:"stdout"`
	Stderr  string   `json:"stderr"`
	Status  string   `json:"status"`
	Metric  *float64 `json:"metric,omitempty"`
	IsBuggy bool     `json:"is_buggy"`
}

// GenerateResult is the collaborator's response. Both fields are opaque
// to the engine.
type GenerateResult struct {
	Code string `json:"code"`
	Plan string `json:"plan"`
}

// Generator produces candidate code for a search action.
//
// An error return or empty code is a generation failure: recoverable,
// recorded as a buggy node with no metric, and counted toward early
// stopping. The engine never retries a generation in place.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)
}

// ProcessGenerator invokes an external collaborator binary per request.
// The request is written to the child's stdin as a single JSON document
// and the response is read from its stdout, also a single JSON document.
// Stderr passes through to the parent's stderr for diagnostics.
type ProcessGenerator struct {
	// Command is the collaborator argv. Example: ["grove-codegen", "--model", "..."].
	Command []string
}

// NewProcessGenerator creates a process-backed generator.
func NewProcessGenerator(command []string) (*ProcessGenerator, error) {
	if len(command) == 0 {
		return nil, errors.New("runtime: process generator requires a command")
	}
	return &ProcessGenerator{Command: command}, nil
}

// Generate implements Generator.
func (g *ProcessGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	cmd := exec.CommandContext(ctx, g.Command[0], g.Command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("runtime: generator stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("runtime: generator stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("runtime: start generator: %w", err)
	}

	if err := json.NewEncoder(stdin).Encode(req); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("runtime: write generator request: %w", err)
	}
	// Close stdin to signal the request is complete.
	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("runtime: close generator stdin: %w", err)
	}

	var result GenerateResult
	decodeErr := json.NewDecoder(stdout).Decode(&result)
	// Drain remaining output so Wait does not block on the pipe.
	_, _ = io.Copy(io.Discard, stdout)

	if waitErr := cmd.Wait(); waitErr != nil {
		return nil, fmt.Errorf("runtime: generator exited abnormally: %w", waitErr)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("runtime: decode generator response: %w", decodeErr)
	}
	return &result, nil
}
