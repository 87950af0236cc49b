package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/grove/cli/reader"
	"github.com/pithecene-io/grove/cli/render"
)

// InspectCommand returns the inspect command: a read-only view of a
// checkpointed search, or of a single node when an ID is given.
func InspectCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to grove.yaml config file",
		},
		DirectionFlag,
	}
	flags = append(flags, CheckpointFlags(false)...)
	flags = append(flags, ReadOnlyFlags()...)
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a checkpointed search, or a node by ID",
		ArgsUsage: "[node-id]",
		Flags:     flags,
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	fileCfg, err := loadConfigFile(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	j, direction, err := openJournal(c, fileCfg)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	if c.NArg() >= 1 {
		node, err := reader.Node(j, c.Args().First())
		if err != nil {
			return cli.Exit(err.Error(), exitUsageError)
		}
		if c.Bool("tui") {
			return r.RenderTUI("inspect_node", node)
		}
		return r.Render(node)
	}

	summary := reader.Summarize(j, direction)
	if c.Bool("tui") {
		return r.RenderTUI("inspect_search", summary)
	}
	return r.Render(summary)
}
