package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"supportbot/types"
)

const promptHeader = `<s>[INST]
You are a helpful, friendly Twitter customer support agent tasked with responding to user tweets using ONLY the context provided. Users may ask about various topics, such as:

- Customer service and support issues
- Mobile phone and internet issues
- Vehicle-related questions
- Music streaming problems
- Delivery and shipping concerns
- Flight or airport issues
- Wi-Fi and connectivity problems
- Gaming and software support

Strictly rely on the provided context. If the context is insufficient or irrelevant, do NOT guess or fabricate answers. Instead, politely ask a follow-up clarifying question.
`

const promptFooter = `
## Instructions:
Use the provided context to synthesize and rephrase relevant answers into a concise and friendly tweet. If the context is irrelevant or insufficient, politely ask a clarifying question.

Always maintain an engaging, empathetic, and natural conversational tone suitable for Twitter. DO NOT use hashtags and emojis.

## Output Format:
- **Response:** A concise, empathetic tweet response based strictly on the provided context.

[/INST]`

// BuildPrompt renders the fixed chat template: role framing, prior
// turns, retrieved context with the associated answers, the new query,
// then output instructions. Pure: same inputs give the same string.
func BuildPrompt(query string, context []types.ScoredDocument, history []types.Turn) string {
	var sb strings.Builder
	sb.WriteString(promptHeader)

	sb.WriteString("\n## Chat History:\n")
	if len(history) == 0 {
		sb.WriteString("No previous conversation.\n")
	} else {
		for _, turn := range history {
			fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", turn.UserInput, turn.AIResponse)
		}
	}

	sb.WriteString("\n## Relevant Context:\n")
	for _, doc := range context {
		fmt.Fprintf(&sb, "- Similar question: %q\n  Provided answer: %q\n",
			doc.Document.Content, doc.Document.Answer())
	}

	fmt.Fprintf(&sb, "\n## User Query:\n%s\n", query)
	sb.WriteString(promptFooter)
	return sb.String()
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// PromptTokens counts the prompt's tokens. Used for logging only; the
// encoding may need a one-time download, so callers treat errors as
// "count unavailable" rather than failures. The encoder is loaded at
// most once per process.
func PromptTokens(prompt string) (int, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.EncodingForModel("gpt-3.5-turbo")
	})
	if encErr != nil {
		return 0, encErr
	}
	return len(enc.Encode(prompt, nil, nil)), nil
}
