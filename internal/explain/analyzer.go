package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"livecode/internal/logging"
	"livecode/internal/perception"
	"livecode/internal/types"
)

// Analyzer performs exactly one analysis attempt. Errors wrapping
// ErrUnparseable mean the service answered with something other than a step
// array; every other error is treated as transient.
type Analyzer interface {
	Analyze(ctx context.Context, snapshot types.SourceSnapshot) ([]types.Step, error)
}

// HTTPAnalyzer posts {code, language} to a reasoning endpoint that answers
// with a step array directly.
type HTTPAnalyzer struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPAnalyzer creates an analyzer for endpoint.
func NewHTTPAnalyzer(endpoint string, timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyze issues one POST.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, snapshot types.SourceSnapshot) ([]types.Step, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, perception.NewStatusError(perception.ProviderHTTP, resp.StatusCode, body)
	}

	return ParseSteps(string(body))
}

const systemPrompt = `You explain programs by simulating their execution.
Given source code and its language, reply with ONLY a JSON array. Each element describes one point in execution:
{"explanation": "<one sentence>", "lineHighlight": <1-based line number or null>, "variables": [{"name": "<name>", "value": "<value as text>"}]}
List steps in execution order. Keep variables to those in scope at that point.
If the input is not a runnable program, reply with [].`

// LLMAnalyzer asks a general-purpose model for a step array.
type LLMAnalyzer struct {
	client types.LLMClient
}

// NewLLMAnalyzer wraps client.
func NewLLMAnalyzer(client types.LLMClient) *LLMAnalyzer {
	return &LLMAnalyzer{client: client}
}

// Analyze issues one completion and parses the reply.
func (a *LLMAnalyzer) Analyze(ctx context.Context, snapshot types.SourceSnapshot) ([]types.Step, error) {
	user := fmt.Sprintf("Language: %s\n\n```%s\n%s\n```", snapshot.Language, snapshot.Language, numberLines(snapshot.Code))

	reply, err := a.client.CompleteWithSystem(ctx, systemPrompt, user)
	if err != nil {
		return nil, err
	}
	steps, err := ParseSteps(reply)
	if err != nil {
		logging.AnalysisDebug("unparseable model reply (%d bytes): %v", len(reply), err)
		return nil, err
	}
	return steps, nil
}

func numberLines(code string) string {
	var b bytes.Buffer
	line := 1
	start := 0
	for i := 0; i <= len(code); i++ {
		if i == len(code) || code[i] == '\n' {
			fmt.Fprintf(&b, "%d| %s\n", line, code[start:i])
			line++
			start = i + 1
		}
	}
	return b.String()
}

// Cache stores step arrays for snapshots already analyzed.
type Cache interface {
	LookupSteps(ctx context.Context, snapshot types.SourceSnapshot) ([]types.Step, bool, error)
	StoreSteps(ctx context.Context, snapshot types.SourceSnapshot, steps []types.Step) error
}

// CachingAnalyzer answers from cache when it can. Cache failures are logged
// and never fail the analysis.
type CachingAnalyzer struct {
	next  Analyzer
	cache Cache
}

// NewCachingAnalyzer wraps next with cache.
func NewCachingAnalyzer(next Analyzer, cache Cache) *CachingAnalyzer {
	return &CachingAnalyzer{next: next, cache: cache}
}

// Analyze checks the cache, then falls through to the wrapped analyzer.
// Only non-empty results are stored.
func (a *CachingAnalyzer) Analyze(ctx context.Context, snapshot types.SourceSnapshot) ([]types.Step, error) {
	steps, ok, err := a.cache.LookupSteps(ctx, snapshot)
	if err != nil {
		logging.AnalysisWarn("cache lookup failed: %v", err)
	} else if ok {
		logging.AnalysisDebug("cache hit: %d steps (%s)", len(steps), snapshot.Language)
		return steps, nil
	}

	steps, err = a.next.Analyze(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	if len(steps) > 0 {
		if err := a.cache.StoreSteps(ctx, snapshot, steps); err != nil {
			logging.AnalysisWarn("cache store failed: %v", err)
		}
	}
	return steps, nil
}
