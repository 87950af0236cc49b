// Package main provides the grove CLI entrypoint.
//
// grove runs tree-structured experiment searches: a generator proposes
// candidate solutions, a sandbox executes them, and an evaluator scores
// the outcomes. All commands except `run` and `resume` are read-only.
//
// Usage:
//
//	grove <command> [options]
//
// Exit codes for `run` and `resume`:
//   - 0: search completed within budget
//   - 1: usage error
//   - 2: infrastructure failure
//   - 3: invariant violation
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/grove/cli/cmd"
	"github.com/pithecene-io/grove/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "grove",
		Usage:          "Experiment tree-search CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.ResumeCommand(),
			cmd.InspectCommand(),
			cmd.BestCommand(),
			cmd.ExportCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit() so run and resume
// report budget and failure outcomes faithfully to shells and CI.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
