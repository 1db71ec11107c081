// Package embedding provides EmbeddingService adapters: Ollama, OpenAI-compatible
// APIs and local ONNX models, plus a query cache decorator.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

const (
	defaultOllamaURL        = "http://localhost:11434"
	defaultOllamaEmbedModel = "nomic-embed-text"

	// ollamaBatchSize bounds the inputs sent in one /api/embed call.
	ollamaBatchSize = 64
)

// OllamaEmbedder implements ports.EmbeddingService with the batched /api/embed
// endpoint of a local Ollama server.
type OllamaEmbedder struct {
	endpoint string
	model    string
	client   *http.Client
	log      *zap.Logger
}

// NewOllamaEmbedder creates an embedder for model served at baseURL.
func NewOllamaEmbedder(baseURL, model string, log *zap.Logger) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaEmbedModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OllamaEmbedder{
		endpoint: baseURL + "/api/embed",
		model:    model,
		client:   &http.Client{Timeout: 2 * time.Minute},
		log:      log.Named("ollama-embed"),
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the embedding of a single text.
func (a *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := a.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in input order, ollamaBatchSize per request.
func (a *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ollamaBatchSize {
		end := min(start+ollamaBatchSize, len(texts))
		vecs, err := a.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (a *OllamaEmbedder) embed(ctx context.Context, input []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: a.model, Input: input})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("ollama unreachable", zap.String("endpoint", a.endpoint), zap.Error(err))
		return nil, fmt.Errorf("calling Ollama: %w: %w", entities.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("Ollama returned %d for model %s: %s", resp.StatusCode, a.model, bytes.TrimSpace(msg))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", entities.ErrBackendUnavailable, err)
		}
		return nil, err
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding Ollama response: %w", err)
	}
	if len(parsed.Embeddings) != len(input) {
		return nil, fmt.Errorf("Ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(input))
	}
	for i, v := range parsed.Embeddings {
		if len(v) == 0 {
			return nil, fmt.Errorf("Ollama returned an empty embedding for input %d", i)
		}
	}
	a.log.Debug("embedded batch", zap.Int("inputs", len(input)), zap.Int("dims", len(parsed.Embeddings[0])))
	return parsed.Embeddings, nil
}
