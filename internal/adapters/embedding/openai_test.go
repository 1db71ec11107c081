package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embed-model", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)

		// Returned out of order; the adapter sorts by index.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "embed-model",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer server.Close()

	e := NewOpenAIEmbedder("sk-test", server.URL+"/v1", "embed-model")
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{0.5, 0.5}},
			},
		})
	}))
	defer server.Close()

	vec, err := NewOpenAIEmbedder("k", server.URL+"/v1", "").Embed(context.Background(), "query")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	t.Run("Server error is backend unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		}))
		defer server.Close()

		_, err := NewOpenAIEmbedder("k", server.URL+"/v1", "").Embed(context.Background(), "q")

		assert.ErrorIs(t, err, entities.ErrBackendUnavailable)
	})

	t.Run("Bad request is not", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		_, err := NewOpenAIEmbedder("k", server.URL+"/v1", "").Embed(context.Background(), "q")

		require.Error(t, err)
		assert.NotErrorIs(t, err, entities.ErrBackendUnavailable)
	})

	t.Run("Empty batch makes no request", func(t *testing.T) {
		out, err := NewOpenAIEmbedder("k", "http://127.0.0.1:1/v1", "").EmbedBatch(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, out)
	})
}
