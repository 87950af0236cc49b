package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/grove/cli/reader"
	"github.com/pithecene-io/grove/cli/render"
)

// BestCommand returns the best command: the highest-scoring good node
// of a checkpointed search.
func BestCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to grove.yaml config file",
		},
		&cli.BoolFlag{
			Name:  "code-only",
			Usage: "Print only the winning candidate's code",
		},
		DirectionFlag,
	}
	flags = append(flags, CheckpointFlags(false)...)
	flags = append(flags, ReadOnlyFlags()...)
	return &cli.Command{
		Name:   "best",
		Usage:  "Show the best node of a checkpointed search",
		Flags:  flags,
		Action: bestAction,
	}
}

func bestAction(c *cli.Context) error {
	fileCfg, err := loadConfigFile(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	j, direction, err := openJournal(c, fileCfg)
	if err != nil {
		return err
	}

	node, err := reader.Best(j, direction)
	if err != nil {
		if errors.Is(err, reader.ErrNoGoodNode) {
			return cli.Exit("no good node yet", exitUsageError)
		}
		return cli.Exit(err.Error(), exitInfraFailure)
	}

	if c.Bool("code-only") {
		fmt.Fprint(os.Stdout, node.Code)
		return nil
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}
	if c.Bool("tui") {
		return r.RenderTUI("best_node", node)
	}
	return r.Render(node)
}
