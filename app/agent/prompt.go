package agent

import (
	"fmt"
	"log"
	"strings"

	"ragchat/types"

	"github.com/pkoukk/tiktoken-go"
)

const defaultInstruction = `You are an assistant answering questions using the supplied context.
- Use only the provided context; if the answer is not there, say you don't know.
- Respond in 1-2 sentences, natural wording, no bullet lists.`

// BuildPrompt assembles the generation prompt from the retrieved context,
// the prior turns of this exchange and the current question. Conversation
// state is passed in explicitly; nothing is shared across requests.
func BuildPrompt(instruction, context, question string, history []types.Turn) string {
	if instruction == "" {
		instruction = defaultInstruction
	}
	if strings.TrimSpace(context) == "" {
		context = "No relevant context found."
	}

	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\n")

	for _, turn := range history {
		role := "User"
		if turn.Role == types.RoleAssistant {
			role = "Assistant"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", role, turn.Message))
	}

	sb.WriteString(fmt.Sprintf("\nContext:\n%s\n\nQuestion: %s\nAnswer:", context, question))

	prompt := sb.String()
	if count, err := CountTokens(prompt); err == nil {
		log.Printf("[PROMPT] size: %d tokens, %d chars", count, len(prompt))
	}
	return prompt
}

// CountTokens approximates the prompt budget with the gpt-3.5-turbo
// encoding; close enough for logging against any compatible model.
func CountTokens(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
