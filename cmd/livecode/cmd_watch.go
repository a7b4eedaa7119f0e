package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"livecode/internal/livecode"
	"livecode/internal/logging"
	"livecode/internal/runner"
	"livecode/internal/types"
	"livecode/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// watchCmd explains a file live as it is edited
var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Explain a source file live while you edit it",
	Long: `Watches a source file and keeps an animated step-by-step explanation
of it on screen. Saves are debounced; only the newest analysis is shown.

With --run the file is also executed on every change. Animation pauses while
the code runs and while a new analysis is in flight.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	flag := &livecode.StatusFlag{}
	printer := &viewPrinter{w: cmd.OutOrStdout()}
	opts := livecode.Options{
		Quiescence:   cfg.GetQuiescence(),
		TickInterval: cfg.GetTickInterval(),
		Gate:         flag,
		Observer:     printer.print,
	}
	if st != nil {
		opts.Tracer = st
	}
	session := livecode.NewSession(client, opts)
	logger.Info("watch session", zap.String("session", session.ID()), zap.String("file", args[0]))

	var runs chan types.SourceSnapshot
	if runOnSave {
		runs = make(chan types.SourceSnapshot, 1)
	}

	w, err := watch.New(args[0], language, func(s types.SourceSnapshot) {
		session.Edit(s)
		if runs != nil {
			// Keep only the newest pending run.
			select {
			case <-runs:
			default:
			}
			runs <- s
		}
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(gctx) })
	g.Go(func() error { return w.Run(gctx) })
	if runs != nil {
		rc := runner.NewClient(cfg.Runner.BaseURL, cfg.GetRunnerTimeout(), flag)
		g.Go(func() error { return runLoop(gctx, rc, runs, cmd) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if st != nil {
		traces, err := st.SessionTraces(context.Background(), session.ID())
		if err == nil {
			fmt.Fprintf(os.Stderr, "session %s: %d analyses\n", session.ID(), len(traces))
		}
	}
	return nil
}

// runLoop executes snapshots one at a time until ctx ends.
func runLoop(ctx context.Context, rc *runner.Client, runs <-chan types.SourceSnapshot, cmd *cobra.Command) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-runs:
			if s.IsEmpty() {
				continue
			}
			res, err := rc.Run(ctx, s)
			if errors.Is(err, runner.ErrBusy) {
				logging.RunnerDebug("run skipped: %v", err)
				continue
			}
			printRunResult(cmd, res)
		}
	}
}

func printRunResult(cmd *cobra.Command, res runner.Result) {
	out := cmd.OutOrStdout()
	if res.IsError {
		fmt.Fprintln(out, warningStyle.Render(res.Output))
	} else {
		fmt.Fprint(out, res.Output)
		if len(res.Output) > 0 && res.Output[len(res.Output)-1] != '\n' {
			fmt.Fprintln(out)
		}
	}
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("finished in %v", res.Duration.Round(time.Millisecond))))
}
