package perception

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"livecode/internal/logging"

	"google.golang.org/genai"
)

// GeminiClient implements LLMClient on top of the Google genai SDK.
type GeminiClient struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	structuredSteps bool
}

// NewGeminiClient creates a Gemini client. The SDK client is built eagerly so
// configuration errors surface at startup.
func NewGeminiClient(ctx context.Context, config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if config.Model == "" {
		config.Model = DefaultGeminiConfig("").Model
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	if config.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:          client,
		model:           config.Model,
		maxOutputTokens: config.MaxOutputTokens,
		structuredSteps: config.StructuredSteps,
	}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem issues one GenerateContent call.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	startTime := time.Now()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), c.generateConfig(systemPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	logging.APIDebug("[Gemini] completed in %v model=%s response_len=%d", time.Since(startTime), c.model, len(text))
	return text, nil
}

func (c *GeminiClient) generateConfig(systemPrompt string) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	if c.maxOutputTokens > 0 {
		gc.MaxOutputTokens = c.maxOutputTokens
	}
	if systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if c.structuredSteps {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = StepArraySchema()
	}
	return gc
}

// StepArraySchema is the response schema for an ordered array of steps.
func StepArraySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"explanation":   {Type: genai.TypeString},
				"lineHighlight": {Type: genai.TypeInteger, Nullable: genai.Ptr(true)},
				"variables": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"name":  {Type: genai.TypeString},
							"value": {Type: genai.TypeString},
						},
						Required: []string{"name", "value"},
					},
				},
			},
			Required:         []string{"explanation", "variables"},
			PropertyOrdering: []string{"explanation", "lineHighlight", "variables"},
		},
	}
}
