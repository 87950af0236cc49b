package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/grove/cli/reader"
)

// ResumeCommand returns the resume command: continue a search from its
// last checkpoint with the remaining budgets.
func ResumeCommand() *cli.Command {
	return &cli.Command{
		Name:   "resume",
		Usage:  "Resume a search from a checkpoint",
		Flags:  runFlags(),
		Action: resumeAction,
	}
}

func resumeAction(c *cli.Context) error {
	fileCfg, err := loadConfigFile(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	path := resolveString(c, "checkpoint", fileCfg.Checkpoint.Path)
	if path == "" {
		return cli.Exit("resume requires --checkpoint (or a config file checkpoint path)", exitUsageError)
	}

	searchCfg, err := resolveSearchConfig(c, fileCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid search config: %v", err), exitUsageError)
	}

	store, err := reader.OpenStore(c.Context, path, s3OptionsFromFlags(c, fileCfg))
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}
	j, err := reader.LoadJournal(c.Context, store)
	closeErr := store.Close()
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot resume: %v", err), exitInfraFailure)
	}
	if closeErr != nil {
		return cli.Exit(closeErr.Error(), exitInfraFailure)
	}

	// The reconstructed journal carries the original search identity and
	// seed, so stage decisions continue the same deterministic stream
	// relative to the restored tree state.
	return executeSearch(c, fileCfg, searchCfg, j, &path)
}
