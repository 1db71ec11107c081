package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

func TestAnthropicGenerator_GenerateAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))

		var req struct {
			Model  string `json:"model"`
			System []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages    []json.RawMessage `json:"messages"`
			Temperature *float64          `json:"temperature"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultAnthropicModel, req.Model)
		require.Len(t, req.System, 1)
		assert.Contains(t, req.System[0].Text, "### Relevant Information:\nctx")
		assert.Len(t, req.Messages, 3)
		require.NotNil(t, req.Temperature)
		assert.Equal(t, 0.0, *req.Temperature)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Grounded answer."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 3}
		}`))
	}))
	defer server.Close()

	g := NewAnthropicGenerator("key", "", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	answer, err := g.GenerateAnswer(context.Background(), testTurns, "ctx")

	require.NoError(t, err)
	assert.Equal(t, "Grounded answer.", answer)
}

func TestAnthropicGenerator_Overloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	g := NewAnthropicGenerator("key", "", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	_, err := g.GenerateAnswer(context.Background(), testTurns, "")

	assert.ErrorIs(t, err, entities.ErrBackendUnavailable)
}
