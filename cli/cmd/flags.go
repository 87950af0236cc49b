// Package cmd provides CLI commands for the grove binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (inspect, best).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, best only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error
// messages instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		TUIFlag,
	}
}

// CheckpointFlags returns the flags for locating a checkpoint.
// The path accepts a local file or an s3://bucket/key URL.
func CheckpointFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "checkpoint",
			Usage:    "Checkpoint path (local file or s3://bucket/key)",
			Required: required,
		},
		&cli.StringFlag{
			Name:  "s3-region",
			Usage: "AWS region for s3:// checkpoints (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "Custom S3 endpoint URL (S3-compatible providers)",
		},
		&cli.BoolFlag{
			Name:  "s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}

// DirectionFlag selects the metric comparison direction.
var DirectionFlag = &cli.StringFlag{
	Name:  "direction",
	Usage: "Metric direction: maximize or minimize",
	Value: "maximize",
}
