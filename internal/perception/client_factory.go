package perception

import (
	"context"
	"fmt"

	"livecode/internal/config"
	"livecode/internal/logging"
)

// NewClientFromConfig builds the chat-capable client for the configured
// provider. structured asks providers that support it to constrain output to
// the step-array schema. The "http" provider talks to a dedicated analysis
// endpoint and has no chat client.
func NewClientFromConfig(ctx context.Context, cfg config.LLMConfig, structured bool) (LLMClient, error) {
	c := &config.Config{LLM: cfg}

	switch Provider(cfg.Provider) {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
		}
		oc := DefaultOpenAIConfig(cfg.APIKey)
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		oc.Timeout = c.GetLLMTimeout()
		logging.BootDebug("Using OpenAI-compatible client model=%s", oc.Model)
		return NewOpenAIClientWithConfig(oc), nil

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
		}
		gc := DefaultGeminiConfig(cfg.APIKey)
		if cfg.Model != "" {
			gc.Model = cfg.Model
		}
		gc.BaseURL = cfg.BaseURL
		gc.Timeout = c.GetLLMTimeout()
		gc.StructuredSteps = structured
		logging.BootDebug("Using Gemini client model=%s structured=%v", gc.Model, structured)
		return NewGeminiClient(ctx, gc)

	case ProviderHTTP:
		return nil, fmt.Errorf("provider %q serves analysis only; configure openai or gemini for chat", cfg.Provider)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
