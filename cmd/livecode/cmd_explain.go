package main

import (
	"context"
	"errors"
	"fmt"

	"livecode/internal/livecode"
	"livecode/internal/retry"

	"github.com/spf13/cobra"
)

// explainCmd analyzes a file once
var explainCmd = &cobra.Command{
	Use:   "explain [file]",
	Short: "Print the step-by-step explanation of a source file once",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	snapshot, err := readSnapshot(args[0], language)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if snapshot.IsEmpty() {
		fmt.Fprintln(out, mutedStyle.Render("no steps to show"))
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	st := openStore(cfg)
	if st != nil {
		defer st.Close()
	}
	client, err := buildExplainClient(ctx, cfg, st)
	if err != nil {
		return err
	}

	res, err := client.Execute(ctx, snapshot)
	if errors.Is(err, retry.ErrExhausted) {
		fmt.Fprintln(out, warningStyle.Render(livecode.UnavailableMessage))
		return nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if len(res.Steps) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no steps to show"))
		return nil
	}
	for i, step := range res.Steps {
		fmt.Fprintln(out, renderStep(step, i, len(res.Steps)))
	}
	return nil
}
