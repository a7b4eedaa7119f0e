package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_LLM(t *testing.T) {
	t.Run("OPENAI_API_KEY selects openai", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "oa-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "oa-key", cfg.LLM.APIKey)
		assert.Equal(t, "openai", cfg.LLM.Provider)
	})

	t.Run("Precedence: GEMINI overrides OPENAI", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "g-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("LIVECODE_API_KEY keeps provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LIVECODE_API_KEY", "lc-key")

		cfg := &Config{LLM: LLMConfig{Provider: "openai"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "lc-key", cfg.LLM.APIKey)
		assert.Equal(t, "openai", cfg.LLM.Provider)
	})
}

func TestEnvOverrides_Endpoints(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIVECODE_ANALYZE_URL", "http://reasoner:9000/analyze")
	t.Setenv("LIVECODE_RUNNER_URL", "http://runner:9001")
	t.Setenv("LIVECODE_DB", "/tmp/lc.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "http://reasoner:9000/analyze", cfg.Analysis.Endpoint)
	assert.Equal(t, "http://runner:9001", cfg.Runner.BaseURL)
	assert.Equal(t, "/tmp/lc.db", cfg.Store.DatabasePath)
}
