// Package runner proxies one-shot code execution to a remote runner service
// and drives the shared execution status while a run is in progress.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"livecode/internal/logging"
	"livecode/internal/types"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("code is already running")

// StatusSink receives execution start/stop notifications.
type StatusSink interface {
	Set(executing bool)
}

// Result is what the user sees after a run.
type Result struct {
	Output   string
	IsError  bool
	Duration time.Duration
}

type runRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type runResponse struct {
	Output string `json:"output"`
	Error  string `json:"error"`
}

// Client runs code through the runner service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	status     StatusSink
	running    atomic.Bool
}

// NewClient creates a runner client. status may be nil.
func NewClient(baseURL string, timeout time.Duration, status StatusSink) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		status:     status,
	}
}

// NormalizeCode converts CRLF line endings and literal "\n" escapes into
// newlines.
func NormalizeCode(code string) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	return strings.ReplaceAll(code, `\n`, "\n")
}

// Running reports whether a run is in progress.
func (c *Client) Running() bool { return c.running.Load() }

// Run executes snapshot. Service and transport failures are reported in the
// Result, not as errors; the only error is ErrBusy.
func (c *Client) Run(ctx context.Context, snapshot types.SourceSnapshot) (Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer c.running.Store(false)

	if c.status != nil {
		c.status.Set(true)
		defer c.status.Set(false)
	}

	start := time.Now()
	res, err := c.do(ctx, snapshot)
	if err != nil {
		logging.RunnerError("run failed (%s): %v", snapshot.Language, err)
		res = Result{
			Output:  fmt.Sprintf("Failed to connect to backend: %s. Please check if the server is running.", err.Error()),
			IsError: true,
		}
	}
	res.Duration = time.Since(start)
	logging.Runner("run finished in %v (%s, error=%v)", res.Duration, snapshot.Language, res.IsError)
	return res, nil
}

func (c *Client) do(ctx context.Context, snapshot types.SourceSnapshot) (Result, error) {
	payload, err := json.Marshal(runRequest{
		Language: snapshot.Language,
		Code:     NormalizeCode(snapshot.Code),
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, fmt.Errorf("HTTP error! Status: %d", resp.StatusCode)
	}

	var body runResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("invalid response: %w", err)
	}
	if body.Error != "" {
		return Result{Output: "Error: " + body.Error, IsError: true}, nil
	}
	logging.RunnerDebug("run output %d bytes", len(body.Output))
	return Result{Output: body.Output}, nil
}
