package main

import (
	"livecode/internal/runner"

	"github.com/spf13/cobra"
)

// runCmd executes a file through the runner service
var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a source file through the execution service",
	Args:  cobra.ExactArgs(1),
	RunE:  runFile,
}

func runFile(cmd *cobra.Command, args []string) error {
	snapshot, err := readSnapshot(args[0], language)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := runner.NewClient(cfg.Runner.BaseURL, cfg.GetRunnerTimeout(), nil).Run(ctx, snapshot)
	if err != nil {
		return err
	}
	printRunResult(cmd, res)
	return nil
}
