// Package agent assembles the final prompt sent to the chat model from the
// retrieved context, the conversation history and the user question.
package agent

import (
	"fmt"
	"strings"

	"ragchat/types"

	"github.com/pkoukk/tiktoken-go"
)

const systemInstructions = `You are the assistant for a digital agency website. Answer using only the information in the context documents below. Be concise and factual. If the context does not contain the answer, say that you do not have that information. Do not invent services, prices or project details.`

// tokenCounter reports how many tokens a string costs against the budget.
type tokenCounter func(string) int

type Assembler struct {
	budget int
	count  tokenCounter
}

// NewAssembler builds an assembler with a cl100k_base token counter, the
// encoding used by the configured chat and embedding models.
func NewAssembler(budget int) (*Assembler, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get tiktoken encoder: %w", err)
	}
	counter := func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}
	return newAssembler(budget, counter), nil
}

func newAssembler(budget int, count tokenCounter) *Assembler {
	return &Assembler{
		budget: budget,
		count:  count,
	}
}

// Assemble renders the static template. Output is byte-identical for
// identical inputs. When the rendered prompt exceeds the token budget, the
// oldest history turns are dropped first, then the lowest-scoring retrieval
// results; results arrive sorted by descending score so the lowest is last.
func (a *Assembler) Assemble(question string, results []types.RetrievalResult, history []types.ConversationTurn) (string, error) {
	for {
		prompt := render(question, results, history)
		if a.budget <= 0 || a.count(prompt) <= a.budget {
			return prompt, nil
		}

		switch {
		case len(history) > 0:
			history = history[1:]
		case len(results) > 0:
			results = results[:len(results)-1]
		default:
			// Nothing left to trim. The question alone overflows the
			// budget; send it and let the provider enforce its limit.
			return prompt, nil
		}
	}
}

func render(question string, results []types.RetrievalResult, history []types.ConversationTurn) string {
	var sb strings.Builder
	sb.WriteString(systemInstructions)
	sb.WriteString("\n\nContext:\n")
	if len(results) == 0 {
		sb.WriteString("(no documents matched this question)\n")
	}
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("[Document %d] (%s)\n%s\n\n", i+1, r.Chunk.Source, r.Chunk.Content))
	}

	// An empty history omits the whole section, not an empty block.
	if len(history) > 0 {
		sb.WriteString("\nConversation so far:\n")
		sb.WriteString(serializeHistory(history))
		sb.WriteString("\n")
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

func serializeHistory(history []types.ConversationTurn) string {
	lines := make([]string, len(history))
	for i, turn := range history {
		lines[i] = roleLabel(turn.Role) + ": " + turn.Content
	}
	return strings.Join(lines, "\n")
}

func roleLabel(role string) string {
	if role == types.RoleAssistant {
		return "Assistant"
	}
	return "User"
}
