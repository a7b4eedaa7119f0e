package explain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"livecode/internal/clock"
	"livecode/internal/perception"
	"livecode/internal/retry"
	"livecode/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeSteps = `[
	{"explanation":"declare x","lineHighlight":1,"variables":[{"name":"x","value":"1"}]},
	{"explanation":"declare y","lineHighlight":2,"variables":[{"name":"x","value":"1"},{"name":"y","value":"2"}]},
	{"explanation":"print sum","lineHighlight":3,"variables":[]}
]`

var snap = types.SourceSnapshot{Code: "let x = 1\nlet y = 2\nconsole.log(x + y)", Language: "javascript"}

func newClock() *clock.Manual {
	return clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

// scriptedServer answers each request with the next status/body pair.
func scriptedServer(t *testing.T, script ...func(w http.ResponseWriter)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got types.SourceSnapshot
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, snap, got)

		n := atomic.AddInt32(&calls, 1)
		if int(n) > len(script) {
			t.Errorf("unexpected attempt %d", n)
			w.WriteHeader(http.StatusTeapot)
			return
		}
		script[n-1](w)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func status(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { http.Error(w, "boom", code) }
}

func body(s string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { _, _ = w.Write([]byte(s)) }
}

func TestExecute_RecoversAfterServerErrors(t *testing.T) {
	server, calls := scriptedServer(t,
		status(http.StatusInternalServerError),
		status(http.StatusInternalServerError),
		body(threeSteps),
	)
	clk := newClock()
	client := NewClient(NewHTTPAnalyzer(server.URL, time.Second), clk, retry.Policy{MaxAttempts: 3, BaseDelay: time.Second})

	res, err := client.Execute(context.Background(), snap)
	require.NoError(t, err)
	assert.Len(t, res.Steps, 3)
	assert.Equal(t, 3, res.Attempts)
	assert.False(t, res.Unparseable)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second}, clk.Sleeps())
}

func TestExecute_Exhausted(t *testing.T) {
	server, calls := scriptedServer(t,
		status(http.StatusBadGateway),
		status(http.StatusServiceUnavailable),
		status(http.StatusInternalServerError),
	)
	client := NewClient(NewHTTPAnalyzer(server.URL, time.Second), newClock(), retry.DefaultPolicy())

	res, err := client.Execute(context.Background(), snap)
	require.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.Steps)
	assert.True(t, perception.IsStatus(err, http.StatusInternalServerError), "last failure kept")
	assert.Equal(t, int32(3), atomic.LoadInt32(calls), "no attempts beyond the bound")
}

func TestExecute_UnparseableIsNotRetried(t *testing.T) {
	server, calls := scriptedServer(t, body(`<html>oops</html>`))
	clk := newClock()
	client := NewClient(NewHTTPAnalyzer(server.URL, time.Second), clk, retry.DefaultPolicy())

	res, err := client.Execute(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, res.Unparseable)
	assert.Empty(t, res.Steps)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Empty(t, clk.Sleeps())
}

func TestExecute_EmptyArrayIsValid(t *testing.T) {
	server, _ := scriptedServer(t, body(`[]`))
	client := NewClient(NewHTTPAnalyzer(server.URL, time.Second), newClock(), retry.DefaultPolicy())

	res, err := client.Execute(context.Background(), snap)
	require.NoError(t, err)
	assert.False(t, res.Unparseable)
	assert.Empty(t, res.Steps)
}

func TestExecute_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(analyzerFunc(func(ctx context.Context, s types.SourceSnapshot) ([]types.Step, error) {
		t.Fatal("no attempt expected")
		return nil, nil
	}), newClock(), retry.DefaultPolicy())

	_, err := client.Execute(ctx, snap)
	assert.ErrorIs(t, err, context.Canceled)
}

type analyzerFunc func(ctx context.Context, s types.SourceSnapshot) ([]types.Step, error)

func (f analyzerFunc) Analyze(ctx context.Context, s types.SourceSnapshot) ([]types.Step, error) {
	return f(ctx, s)
}

type fakeLLM struct {
	system, user string
	reply        string
	err          error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeLLM) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestLLMAnalyzer(t *testing.T) {
	llm := &fakeLLM{reply: "```json\n" + threeSteps + "\n```"}
	steps, err := NewLLMAnalyzer(llm).Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Len(t, steps, 3)
	assert.Contains(t, llm.user, "3| console.log(x + y)")
	assert.Contains(t, llm.system, "JSON array")

	llm = &fakeLLM{reply: "Sorry, no."}
	_, err = NewLLMAnalyzer(llm).Analyze(context.Background(), snap)
	assert.ErrorIs(t, err, ErrUnparseable)

	llm = &fakeLLM{err: errors.New("connection reset")}
	_, err = NewLLMAnalyzer(llm).Analyze(context.Background(), snap)
	assert.EqualError(t, err, "connection reset")
}

type memCache struct {
	entries map[types.SourceSnapshot][]types.Step
	failGet bool
	stores  int
}

func (m *memCache) LookupSteps(ctx context.Context, s types.SourceSnapshot) ([]types.Step, bool, error) {
	if m.failGet {
		return nil, false, errors.New("disk full")
	}
	steps, ok := m.entries[s]
	return steps, ok, nil
}

func (m *memCache) StoreSteps(ctx context.Context, s types.SourceSnapshot, steps []types.Step) error {
	m.stores++
	m.entries[s] = steps
	return nil
}

func TestCachingAnalyzer(t *testing.T) {
	calls := 0
	next := analyzerFunc(func(ctx context.Context, s types.SourceSnapshot) ([]types.Step, error) {
		calls++
		if s.Code == "" {
			return []types.Step{}, nil
		}
		return []types.Step{{Explanation: "step"}}, nil
	})
	cache := &memCache{entries: map[types.SourceSnapshot][]types.Step{}}
	a := NewCachingAnalyzer(next, cache)

	for i := 0; i < 2; i++ {
		steps, err := a.Analyze(context.Background(), snap)
		require.NoError(t, err)
		assert.Len(t, steps, 1)
	}
	assert.Equal(t, 1, calls, "second call served from cache")
	assert.Equal(t, 1, cache.stores)

	_, err := a.Analyze(context.Background(), types.SourceSnapshot{Language: "python"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.stores, "empty results are not cached")

	cache.failGet = true
	_, err = a.Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "lookup failure falls through")
}
