package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// GeminiOpenAIBaseURL is Google's OpenAI-compatible endpoint.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultOpenAIModel is the chat model used when none is configured.
const DefaultOpenAIModel = "gemini-2.0-flash"

// OpenAIGenerator implements ports.AnswerGenerator against any
// OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator. An empty baseURL targets api.openai.com.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// GenerateAnswer runs one non-streaming chat completion.
func (p *OpenAIGenerator) GenerateAnswer(ctx context.Context, turns []entities.ChatTurn, context string) (string, error) {
	base := buildMessages(turns, context)
	msgs := make([]openai.ChatCompletionMessage, len(base))
	for i, m := range base {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: msgs,
		// Zero is dropped by omitempty; the smallest float keeps decoding greedy.
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", classifyOpenAI(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return fmt.Errorf("%w: %w", entities.ErrBackendUnavailable, err)
	}
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", entities.ErrBackendUnavailable, err)
	}
	return err
}
