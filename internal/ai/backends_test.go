package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicInfer(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5-20250929",
			"content": [{"type": "text", "text": "{\"category\":\"login\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(Config{
		APIKey:    "test-key",
		BaseURL:   server.URL,
		MaxTokens: 128,
	})
	require.NoError(t, err)
	defer client.Close()

	out, err := client.Infer(context.Background(), "prompt text")
	require.NoError(t, err)

	assert.Equal(t, `{"category":"login"}`, out)
	assert.Equal(t, defaultAnthropicModel, body["model"])
	assert.EqualValues(t, 128, body["max_tokens"])
	require.Contains(t, body, "temperature")
	assert.EqualValues(t, 0, body["temperature"])
	assert.NotContains(t, body, "top_p")
}

func TestGeminiInfer(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "{\"category\":\"shipping\"}"}]},
				"finishReason": "STOP"
			}]
		}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), Config{
		APIKey:    "test-key",
		BaseURL:   server.URL,
		Model:     "gemini-test",
		TopP:      0.9,
		MaxTokens: 64,
	})
	require.NoError(t, err)
	defer client.Close()

	out, err := client.Infer(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, `{"category":"shipping"}`, out)

	genCfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "request carries generationConfig")
	assert.EqualValues(t, 64, genCfg["maxOutputTokens"])
	require.Contains(t, genCfg, "temperature")
	assert.EqualValues(t, 0, genCfg["temperature"])
}
