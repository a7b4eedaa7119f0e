package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "LIVECODE_API_KEY", "LIVECODE_ANALYZE_URL", "LIVECODE_RUNNER_URL", "LIVECODE_DB"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LLM.Provider != "http" {
		t.Errorf("expected Provider=http, got %s", cfg.LLM.Provider)
	}
	if cfg.GetQuiescence() != 1500*time.Millisecond {
		t.Errorf("expected quiescence 1.5s, got %v", cfg.GetQuiescence())
	}
	if cfg.GetTickInterval() != 2500*time.Millisecond {
		t.Errorf("expected tick 2.5s, got %v", cfg.GetTickInterval())
	}
	if cfg.GetMaxAttempts() != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.GetMaxAttempts())
	}
	if cfg.GetBackoffBase() != time.Second {
		t.Errorf("expected backoff base 1s, got %v", cfg.GetBackoffBase())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "livecode.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "gemini"
	cfg.LLM.APIKey = "g-test"
	cfg.Analysis.Quiescence = "500ms"
	cfg.Logging.Categories = map[string]bool{"store": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.Provider != "gemini" {
		t.Errorf("expected Provider=gemini, got %s", loaded.LLM.Provider)
	}
	if loaded.LLM.APIKey != "g-test" {
		t.Errorf("expected APIKey=g-test, got %s", loaded.LLM.APIKey)
	}
	if loaded.GetQuiescence() != 500*time.Millisecond {
		t.Errorf("expected quiescence 500ms, got %v", loaded.GetQuiescence())
	}
	if enabled, ok := loaded.Logging.Categories["store"]; !ok || enabled {
		t.Errorf("expected store category disabled, got %v", loaded.Logging.Categories)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.Endpoint != DefaultConfig().Analysis.Endpoint {
		t.Errorf("expected default endpoint, got %s", cfg.Analysis.Endpoint)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("llm: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.Quiescence = "soon"
	cfg.Analysis.TickInterval = "-1s"
	cfg.Analysis.MaxAttempts = 0

	if cfg.GetQuiescence() != 1500*time.Millisecond {
		t.Errorf("expected fallback quiescence, got %v", cfg.GetQuiescence())
	}
	if cfg.GetTickInterval() != 2500*time.Millisecond {
		t.Errorf("expected fallback tick, got %v", cfg.GetTickInterval())
	}
	if cfg.GetMaxAttempts() != 3 {
		t.Errorf("expected fallback attempts, got %d", cfg.GetMaxAttempts())
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Provider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing API key")
	}

	cfg.LLM.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.LLM.Provider = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown provider")
	}

	cfg = DefaultConfig()
	cfg.Analysis.BackoffBase = "fast"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad duration")
	}
}
