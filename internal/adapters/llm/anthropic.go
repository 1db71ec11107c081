package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// DefaultAnthropicModel is the Claude model used when none is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicGenerator implements ports.AnswerGenerator using the Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator creates a generator. Extra options are passed to the client.
func NewAnthropicGenerator(apiKey, model string, opts ...option.RequestOption) *AnthropicGenerator {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicGenerator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: 1024,
	}
}

// GenerateAnswer sends the conversation with the context in the system prompt.
func (p *AnthropicGenerator) GenerateAnswer(ctx context.Context, turns []entities.ChatTurn, context string) (string, error) {
	var msgs []anthropic.MessageParam
	for _, t := range turns {
		switch t.Role {
		case entities.RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		case entities.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		}
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    msgs,
		System:      []anthropic.TextBlockParam{{Text: SystemPrompt(context)}},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", classifyAnthropic(err))
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

func classifyAnthropic(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", entities.ErrBackendUnavailable, err)
		}
		return err
	}
	return fmt.Errorf("%w: %w", entities.ErrBackendUnavailable, err)
}
