package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "livecode.yaml"

// Config holds all livecode configuration.
type Config struct {
	// Reasoning service provider
	LLM LLMConfig `yaml:"llm"`

	// Debounce, animation and retry settings
	Analysis AnalysisConfig `yaml:"analysis"`

	// Execution proxy
	Runner RunnerConfig `yaml:"runner"`

	// SQLite cache and traces
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig selects and configures the reasoning service.
type LLMConfig struct {
	Provider string `yaml:"provider"` // http, openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// AnalysisConfig configures the analysis pipeline.
type AnalysisConfig struct {
	// Endpoint receives {code, language} and answers with a step array
	// when the provider is "http".
	Endpoint       string `yaml:"endpoint"`
	Quiescence     string `yaml:"quiescence"`    // Q
	TickInterval   string `yaml:"tick_interval"` // T
	MaxAttempts    int    `yaml:"max_attempts"`  // M
	BackoffBase    string `yaml:"backoff_base"`
	RequestTimeout string `yaml:"request_timeout"`
	CacheEnabled   bool   `yaml:"cache_enabled"`
}

// RunnerConfig configures the execution proxy collaborator.
type RunnerConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, console
	File       string          `yaml:"file"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "http",
			Timeout:  "60s",
		},

		Analysis: AnalysisConfig{
			Endpoint:       "http://localhost:8080/analyze",
			Quiescence:     "1500ms",
			TickInterval:   "2500ms",
			MaxAttempts:    3,
			BackoffBase:    "1000ms",
			RequestTimeout: "60s",
			CacheEnabled:   true,
		},

		Runner: RunnerConfig{
			BaseURL: "http://localhost:8080",
			Timeout: "30s",
		},

		Store: StoreConfig{
			DatabasePath: filepath.Join(".livecode", "livecode.db"),
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Provider keys in increasing priority
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	// Explicit key keeps whatever provider is configured
	if key := os.Getenv("LIVECODE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	if url := os.Getenv("LIVECODE_ANALYZE_URL"); url != "" {
		c.Analysis.Endpoint = url
	}
	if url := os.Getenv("LIVECODE_RUNNER_URL"); url != "" {
		c.Runner.BaseURL = url
	}
	if path := os.Getenv("LIVECODE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetLLMTimeout returns the provider HTTP timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// GetQuiescence returns the debounce window Q.
func (c *Config) GetQuiescence() time.Duration {
	return parseDuration(c.Analysis.Quiescence, 1500*time.Millisecond)
}

// GetTickInterval returns the animation tick interval T.
func (c *Config) GetTickInterval() time.Duration {
	return parseDuration(c.Analysis.TickInterval, 2500*time.Millisecond)
}

// GetBackoffBase returns the backoff unit.
func (c *Config) GetBackoffBase() time.Duration {
	return parseDuration(c.Analysis.BackoffBase, time.Second)
}

// GetMaxAttempts returns M, defaulting to 3.
func (c *Config) GetMaxAttempts() int {
	if c.Analysis.MaxAttempts < 1 {
		return 3
	}
	return c.Analysis.MaxAttempts
}

// GetRequestTimeout bounds a single analysis attempt. Each retry gets a
// fresh budget.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Analysis.RequestTimeout, 60*time.Second)
}

// GetRunnerTimeout returns the execution proxy timeout.
func (c *Config) GetRunnerTimeout() time.Duration {
	return parseDuration(c.Runner.Timeout, 30*time.Second)
}

// ValidProviders lists all supported reasoning providers.
var ValidProviders = []string{"http", "openai", "gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.LLM.Provider == "http" && c.Analysis.Endpoint == "" {
		return fmt.Errorf("analysis endpoint required for http provider")
	}
	if c.LLM.Provider != "http" && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set LIVECODE_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY)")
	}
	if c.Analysis.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must not be negative")
	}

	for name, value := range map[string]string{
		"analysis.quiescence":    c.Analysis.Quiescence,
		"analysis.tick_interval": c.Analysis.TickInterval,
		"analysis.backoff_base":  c.Analysis.BackoffBase,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	return nil
}
