// Package perception holds the reasoning-service provider clients. Each call
// is a single attempt; retry policy lives with the caller.
package perception

import (
	"errors"
	"fmt"
	"time"

	"livecode/internal/types"
)

// LLMClient is an alias to types.LLMClient for package compatibility.
type LLMClient = types.LLMClient

// Provider represents a reasoning-service provider.
type Provider string

const (
	ProviderHTTP   Provider = "http"   // Direct {code, language} -> steps endpoint
	ProviderOpenAI Provider = "openai" // OpenAI-compatible chat completions
	ProviderGemini Provider = "gemini" // Google Gemini via genai
)

// ErrNotConfigured is returned when a provider is missing its API key.
var ErrNotConfigured = errors.New("API key not configured")

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 512

// StatusError is a non-success HTTP response from a provider.
type StatusError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NewStatusError truncates body and builds a StatusError.
func NewStatusError(provider Provider, status int, body []byte) *StatusError {
	b := string(body)
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody] + "..."
	}
	return &StatusError{Provider: provider, StatusCode: status, Body: b}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:      apiKey,
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		Timeout:     60 * time.Second,
		Temperature: 0.1,
	}
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int32
	// StructuredSteps constrains output to the step-array JSON schema.
	StructuredSteps bool
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		Model:           "gemini-2.5-flash",
		Timeout:         60 * time.Second,
		MaxOutputTokens: 8192,
	}
}
