// Package llm provides AnswerGenerator adapters for Ollama, OpenAI-compatible
// chat APIs and Anthropic.
package llm

import (
	"fmt"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

const systemTemplate = `You are a knowledgeable and reliable RAG assistant.
Answer the user's question accurately and concisely using the given information.
Maintain the original language of the question without explicitly stating that your response is based on provided knowledge.

### Relevant Information:
%s`

// SystemPrompt renders the system instruction around the retrieved context.
func SystemPrompt(context string) string {
	return fmt.Sprintf(systemTemplate, context)
}

// message is the role/content pair shared by the chat APIs.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildMessages prepends the system prompt to the conversation turns.
func buildMessages(turns []entities.ChatTurn, context string) []message {
	msgs := make([]message, 0, len(turns)+1)
	msgs = append(msgs, message{Role: "system", Content: SystemPrompt(context)})
	for _, t := range turns {
		msgs = append(msgs, message{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}
