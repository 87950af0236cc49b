package runtime

import (
	"context"
	"sync"

	"github.com/pithecene-io/grove/types"
)

// StubGenerator is a scripted Generator for testing.
// Responses are served in order; when exhausted, Fallback (or an empty
// result) is returned. Thread-safe.
type StubGenerator struct {
	mu        sync.Mutex
	responses []StubGeneration
	calls     []GenerateRequest

	// Fallback is served after scripted responses run out.
	Fallback StubGeneration
}

// StubGeneration is one scripted generator response.
type StubGeneration struct {
	Code string
	Plan string
	Err  error
}

// NewStubGenerator creates a stub serving the given responses in order.
func NewStubGenerator(responses ...StubGeneration) *StubGenerator {
	return &StubGenerator{responses: responses}
}

// Generate implements Generator.
func (g *StubGenerator) Generate(_ context.Context, req *GenerateRequest) (*GenerateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, *req)

	r := g.Fallback
	if len(g.responses) > 0 {
		r = g.responses[0]
		g.responses = g.responses[1:]
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &GenerateResult{Code: r.Code, Plan: r.Plan}, nil
}

// Calls returns a copy of the recorded requests.
func (g *StubGenerator) Calls() []GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GenerateRequest, len(g.calls))
	copy(out, g.calls)
	return out
}

// StubExecutor is a scripted Executor for testing.
// Outcomes are keyed by candidate code; unmatched code falls back to
// Default. Thread-safe.
type StubExecutor struct {
	mu       sync.Mutex
	outcomes map[string]types.ExecOutcome
	executed []string

	// Default is returned for code with no scripted outcome.
	Default types.ExecOutcome
	// Err, when set, is returned for every call (infrastructure failure).
	Err error
}

// NewStubExecutor creates a stub with success-and-no-output as default.
func NewStubExecutor() *StubExecutor {
	return &StubExecutor{
		outcomes: make(map[string]types.ExecOutcome),
		Default:  types.ExecOutcome{Status: types.ExecSuccess},
	}
}

// On scripts the outcome for a specific candidate code.
func (e *StubExecutor) On(code string, outcome types.ExecOutcome) *StubExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes[code] = outcome
	return e
}

// Execute implements Executor.
func (e *StubExecutor) Execute(_ context.Context, code string) (*types.ExecOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.executed = append(e.executed, code)
	if e.Err != nil {
		return nil, e.Err
	}
	outcome, ok := e.outcomes[code]
	if !ok {
		outcome = e.Default
	}
	return &outcome, nil
}

// Executed returns a copy of the executed candidate codes, in call order.
func (e *StubExecutor) Executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.executed))
	copy(out, e.executed)
	return out
}
