package perception

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"livecode/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewOpenAIClient("sk-test")
	client.baseURL = server.URL
	return client
}

func TestOpenAIClient_CompleteWithSystem(t *testing.T) {
	var got openAIRequest
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  [] \n"}}]}`))
	})

	out, err := client.CompleteWithSystem(context.Background(), "explain", "x = 1")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "x = 1", got.Messages[1].Content)
	assert.Equal(t, "gpt-4o-mini", got.Model)
}

func TestOpenAIClient_CompleteOmitsEmptySystem(t *testing.T) {
	var got openAIRequest
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	})

	_, err := client.Complete(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestOpenAIClient_StatusError(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 2000), http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ProviderOpenAI, se.Provider)
	assert.LessOrEqual(t, len(se.Body), maxErrorBody+3)
}

func TestOpenAIClient_APIErrorAndEmptyChoices(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	})
	_, err := client.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")

	client = newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err = client.Complete(context.Background(), "hello")
	require.Error(t, err)
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	client := NewOpenAIClient("")
	_, err := client.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewGeminiClient_NotConfigured(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeminiClient_GenerateConfig(t *testing.T) {
	c := &GeminiClient{model: "m", maxOutputTokens: 128, structuredSteps: true}
	gc := c.generateConfig("system prompt")

	assert.Equal(t, int32(128), gc.MaxOutputTokens)
	assert.Equal(t, "application/json", gc.ResponseMIMEType)
	require.NotNil(t, gc.SystemInstruction)
	require.NotNil(t, gc.ResponseSchema)

	plain := (&GeminiClient{model: "m"}).generateConfig("")
	assert.Nil(t, plain.SystemInstruction)
	assert.Nil(t, plain.ResponseSchema)
}

func TestStepArraySchema(t *testing.T) {
	schema := StepArraySchema()
	assert.Equal(t, genai.TypeArray, schema.Type)
	require.NotNil(t, schema.Items)
	assert.Contains(t, schema.Items.Properties, "explanation")
	assert.Contains(t, schema.Items.Properties, "lineHighlight")
	assert.Contains(t, schema.Items.Properties, "variables")
	assert.Equal(t, []string{"explanation", "variables"}, schema.Items.Required)
}

func TestNewClientFromConfig(t *testing.T) {
	ctx := context.Background()

	client, err := NewClientFromConfig(ctx, config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-x", Timeout: "5s"}, false)
	require.NoError(t, err)
	oc, ok := client.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "gpt-x", oc.Model())

	_, err = NewClientFromConfig(ctx, config.LLMConfig{Provider: "openai"}, false)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClientFromConfig(ctx, config.LLMConfig{Provider: "gemini"}, true)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClientFromConfig(ctx, config.LLMConfig{Provider: "http"}, false)
	assert.Error(t, err)

	_, err = NewClientFromConfig(ctx, config.LLMConfig{Provider: "smoke-signal"}, false)
	assert.Error(t, err)
}
