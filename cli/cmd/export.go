package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/grove/cli/config"
	"github.com/pithecene-io/grove/cli/reader"
	"github.com/pithecene-io/grove/export"
	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/types"
)

// ExportCommand returns the export command: a deterministic graph
// document from a checkpoint, safe to run mid-search from a separate
// process.
func ExportCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to grove.yaml config file",
		},
		&cli.StringFlag{
			Name:    "graph-format",
			Aliases: []string{"g"},
			Usage:   "Graph format: json or dot",
			Value:   "json",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file (default: stdout)",
		},
		DirectionFlag,
	}
	flags = append(flags, CheckpointFlags(false)...)
	return &cli.Command{
		Name:   "export",
		Usage:  "Export the search tree as a graph document",
		Flags:  flags,
		Action: exportAction,
	}
}

func exportAction(c *cli.Context) error {
	fileCfg, err := loadConfigFile(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	j, direction, err := openJournal(c, fileCfg)
	if err != nil {
		return err
	}

	graph := export.Build(j.Meta(), j.Snapshot(), direction)

	var out []byte
	switch c.String("graph-format") {
	case "json":
		out, err = graph.JSON()
		if err != nil {
			return cli.Exit(err.Error(), exitInfraFailure)
		}
	case "dot":
		out = graph.DOT()
	default:
		return cli.Exit(fmt.Sprintf("invalid graph format: %q (must be json or dot)", c.String("graph-format")), exitUsageError)
	}

	if path := c.String("output"); path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return cli.Exit(fmt.Sprintf("write %s: %v", path, err), exitInfraFailure)
		}
		return nil
	}
	_, err = os.Stdout.Write(out)
	return err
}

// openJournal loads the journal named by the checkpoint flags.
// Shared by the read-only commands.
func openJournal(c *cli.Context, fileCfg *config.Config) (j *journal.Journal, direction types.MetricDirection, err error) {
	path := resolveString(c, "checkpoint", fileCfg.Checkpoint.Path)
	if path == "" {
		return nil, "", cli.Exit("a checkpoint path is required (--checkpoint or config file)", exitUsageError)
	}

	directionStr := resolveString(c, "direction", fileCfg.Search.Direction)
	direction, err = types.ParseDirection(directionStr)
	if err != nil {
		return nil, "", cli.Exit(err.Error(), exitUsageError)
	}

	store, err := reader.OpenStore(c.Context, path, s3OptionsFromFlags(c, fileCfg))
	if err != nil {
		return nil, "", cli.Exit(err.Error(), exitUsageError)
	}
	defer func() { _ = store.Close() }()

	loaded, err := reader.LoadJournal(c.Context, store)
	if err != nil {
		return nil, "", cli.Exit(err.Error(), exitInfraFailure)
	}
	return loaded, direction, nil
}
