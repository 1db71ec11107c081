package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// OllamaGenerator implements ports.AnswerGenerator using the Ollama chat API.
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
	log     *zap.Logger
}

// NewOllamaGenerator creates a new Ollama answer generator.
func NewOllamaGenerator(baseURL, model string, log *zap.Logger) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
		log: log.Named("ollama-chat"),
	}
}

// ollamaChatRequest is the Ollama chat API request.
type ollamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []message          `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  map[string]float64 `json:"options,omitempty"`
}

// ollamaChatResponse is the Ollama chat API response.
type ollamaChatResponse struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

// GenerateAnswer sends the system prompt, trailing turns and context to the model.
func (a *OllamaGenerator) GenerateAnswer(ctx context.Context, turns []entities.ChatTurn, context string) (string, error) {
	jsonData, err := json.Marshal(ollamaChatRequest{
		Model:    a.model,
		Messages: buildMessages(turns, context),
		Stream:   false,
		Options:  map[string]float64{"temperature": 0},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w: %w", entities.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: Ollama returned status %d", entities.ErrBackendUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	a.log.Debug("answer generated", zap.String("model", a.model), zap.Duration("latency", time.Since(start)))
	return chatResp.Message.Content, nil
}
