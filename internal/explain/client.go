// Package explain turns a source snapshot into an ordered sequence of
// explanation steps by calling a reasoning service with bounded retries.
package explain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"livecode/internal/clock"
	"livecode/internal/logging"
	"livecode/internal/retry"
	"livecode/internal/types"
)

// Result is the outcome of one logical analysis call.
type Result struct {
	Steps    []types.Step
	Attempts int
	// Unparseable is set when the service answered with something other
	// than a step array. Steps is empty in that case.
	Unparseable bool
}

// Client is the backoff request client for analysis. It knows nothing about
// generations; each Execute call owns its own retry state.
type Client struct {
	analyzer Analyzer
	clock    clock.Clock
	policy   retry.Policy
	// attemptTimeout bounds each attempt on its own; zero means no bound.
	attemptTimeout time.Duration
}

// NewClient creates a client over analyzer.
func NewClient(analyzer Analyzer, clk clock.Clock, policy retry.Policy) *Client {
	if clk == nil {
		clk = clock.Real()
	}
	return &Client{analyzer: analyzer, clock: clk, policy: policy}
}

// WithAttemptTimeout bounds every attempt separately. An attempt that runs
// out of time is transient and retried like any other failure.
func (c *Client) WithAttemptTimeout(d time.Duration) *Client {
	c.attemptTimeout = d
	return c
}

// Execute analyzes snapshot. An unparseable response is a successful, empty
// Result. When every attempt fails the error wraps retry.ErrExhausted (or is
// ctx's error if ctx ended first). The Result is never nil, so Attempts is
// available on failure too.
func (c *Client) Execute(ctx context.Context, snapshot types.SourceSnapshot) (*Result, error) {
	start := time.Now()
	steps, attempts, err := retry.Do(ctx, c.clock, c.policy, "analyze", func(ctx context.Context, attempt int) ([]types.Step, error) {
		return c.attempt(ctx, snapshot)
	})

	if errors.Is(err, ErrUnparseable) {
		logging.AnalysisWarn("analysis response unparseable after %d attempt(s), treating as empty: %v", attempts, err)
		return &Result{Attempts: attempts, Unparseable: true}, nil
	}
	if err != nil {
		logging.AnalysisWarn("analysis failed after %d attempt(s): %v", attempts, err)
		return &Result{Attempts: attempts}, err
	}

	logging.AnalysisDebug("analysis returned %d steps in %v (%d attempt(s))", len(steps), time.Since(start), attempts)
	return &Result{Steps: steps, Attempts: attempts}, nil
}

// attempt runs one Analyze call under the per-attempt deadline.
func (c *Client) attempt(ctx context.Context, snapshot types.SourceSnapshot) ([]types.Step, error) {
	attemptCtx := ctx
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	steps, err := c.analyzer.Analyze(attemptCtx, snapshot)
	switch {
	case err == nil:
		return steps, nil
	case errors.Is(err, ErrUnparseable):
		return nil, retry.Permanent(err)
	case ctx.Err() == nil && attemptCtx.Err() != nil:
		return nil, fmt.Errorf("attempt timed out after %v: %w", c.attemptTimeout, err)
	default:
		return nil, err
	}
}
