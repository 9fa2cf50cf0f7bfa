package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/paperpod/internal/retry"
)

func TestGeminiClient_Complete(t *testing.T) {
	var got geminiTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", "gemini-flash", srv.URL)
	text, err := c.Complete(context.Background(), Request{
		System:      "sys",
		User:        "usr",
		MaxTokens:   300,
		Temperature: 0.7,
		TopP:        0.9,
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "sys", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "usr", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 300, got.GenerationConfig.MaxOutputTokens)
	require.NotNil(t, got.GenerationConfig.TopP)
	assert.InDelta(t, 0.9, *got.GenerationConfig.TopP, 1e-9)
}

func TestGeminiClient_RetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := NewGeminiClient("k", "", srv.URL)
	_, err := c.Complete(context.Background(), Request{User: "x"})

	require.Error(t, err)
	assert.True(t, retry.IsRetryable(err))
}

func TestGeminiClient_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad"))
	}))
	defer srv.Close()

	_, err := NewGeminiClient("k", "", srv.URL).Complete(context.Background(), Request{User: "x"})

	require.Error(t, err)
	assert.False(t, retry.IsRetryable(err))
	assert.Contains(t, err.Error(), "status 400")
}

func TestOpenAIClient_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "I'm Vic, hi!"}}]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "", srv.URL)
	text, err := c.Complete(context.Background(), Request{
		System: "sys", User: "usr", MaxTokens: 3000, Temperature: 0.7, TopP: 0.9,
	})

	require.NoError(t, err)
	assert.Equal(t, "I'm Vic, hi!", text)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 3000, body["max_tokens"])
	assert.InDelta(t, 0.9, body["top_p"], 1e-9)
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "parrot"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider")
}

func TestNew_SelectsProvider(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: "claude", APIKey: "x"})
	require.NoError(t, err)
	assert.Equal(t, "claude", c.Name())

	c, err = New(context.Background(), Config{APIKey: "x"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
}

func TestAPIKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnv("openai"))
	assert.Equal(t, "ANTHROPIC_API_KEY", APIKeyEnv("claude"))
	assert.Equal(t, "GEMINI_API_KEY", APIKeyEnv("gemini"))
	assert.Empty(t, APIKeyEnv("nova"))
}

func TestClaudeModelAlias(t *testing.T) {
	assert.Equal(t, claudeModels["sonnet"], NewClaudeClient("k", "sonnet", "").model)
	assert.Equal(t, "claude-custom", NewClaudeClient("k", "claude-custom", "").model)
	assert.Equal(t, claudeModels["haiku"], NewClaudeClient("k", "", "").model)
}
