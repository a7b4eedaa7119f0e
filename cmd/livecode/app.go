package main

import (
	"context"
	"fmt"
	"os"

	"livecode/internal/clock"
	"livecode/internal/config"
	"livecode/internal/explain"
	"livecode/internal/languages"
	"livecode/internal/logging"
	"livecode/internal/perception"
	"livecode/internal/retry"
	"livecode/internal/store"
	"livecode/internal/types"
)

var (
	language     string
	runOnSave    bool
	maxFileBytes int64
)

// analysisPolicy returns the retry policy from config.
func analysisPolicy(c *config.Config) retry.Policy {
	return retry.Policy{MaxAttempts: c.GetMaxAttempts(), BaseDelay: c.GetBackoffBase()}
}

// buildAnalyzer returns the single-attempt analyzer for the configured
// provider, wrapped with the cache when one is open.
func buildAnalyzer(ctx context.Context, c *config.Config, st *store.AnalysisStore) (explain.Analyzer, error) {
	var analyzer explain.Analyzer
	if perception.Provider(c.LLM.Provider) == perception.ProviderHTTP {
		analyzer = explain.NewHTTPAnalyzer(c.Analysis.Endpoint, c.GetLLMTimeout())
	} else {
		client, err := perception.NewClientFromConfig(ctx, c.LLM, true)
		if err != nil {
			return nil, err
		}
		analyzer = explain.NewLLMAnalyzer(client)
	}

	if st != nil && c.Analysis.CacheEnabled {
		analyzer = explain.NewCachingAnalyzer(analyzer, st)
	}
	return analyzer, nil
}

// buildExplainClient wires the analyzer into a retrying client.
func buildExplainClient(ctx context.Context, c *config.Config, st *store.AnalysisStore) (*explain.Client, error) {
	analyzer, err := buildAnalyzer(ctx, c, st)
	if err != nil {
		return nil, err
	}
	return explain.NewClient(analyzer, clock.Real(), analysisPolicy(c)).WithAttemptTimeout(c.GetRequestTimeout()), nil
}

// openStore opens the SQLite store. A failure is logged and the caller runs
// without cache and traces.
func openStore(c *config.Config) *store.AnalysisStore {
	if c.Store.DatabasePath == "" {
		return nil
	}
	st, err := store.NewAnalysisStore(c.Store.DatabasePath)
	if err != nil {
		logging.StoreError("store disabled: %v", err)
		return nil
	}
	return st
}

// readSnapshot loads a source file, resolving its language from the flag or
// the extension.
func readSnapshot(path, lang string) (types.SourceSnapshot, error) {
	if lang == "" {
		detected, ok := languages.ForPath(path)
		if !ok {
			return types.SourceSnapshot{}, fmt.Errorf("cannot detect language of %s; use --language", path)
		}
		lang = detected.ID
	} else if _, ok := languages.Lookup(lang); !ok {
		return types.SourceSnapshot{}, fmt.Errorf("unknown language %q", lang)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.SourceSnapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return types.SourceSnapshot{Code: string(data), Language: lang}, nil
}
