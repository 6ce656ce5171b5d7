package agent

import (
	"regexp"
	"strings"
	"testing"

	"ragchat/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charCounter(s string) int { return len(s) }

func testAssembler(budget int) *Assembler {
	return newAssembler(budget, charCounter)
}

func sampleResults() []types.RetrievalResult {
	return []types.RetrievalResult{
		{Chunk: types.Chunk{Source: "services.md", Index: 0, Content: "We offer Web Development, Digital Marketing and Branding."}, Score: 0.91},
		{Chunk: types.Chunk{Source: "pricing.md", Index: 2, Content: "Projects start at a fixed monthly retainer."}, Score: 0.74},
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	a := testAssembler(0)
	history := []types.ConversationTurn{
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello, how can I help?"},
	}

	first, err := a.Assemble("What services do you offer?", sampleResults(), history)
	require.NoError(t, err)
	second, err := a.Assemble("What services do you offer?", sampleResults(), history)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssemble_DocumentLabels(t *testing.T) {
	a := testAssembler(0)

	prompt, err := a.Assemble("what do you do?", sampleResults(), nil)

	require.NoError(t, err)
	assert.Contains(t, prompt, "[Document 1]")
	assert.Contains(t, prompt, "[Document 2]")
	assert.Contains(t, prompt, "We offer Web Development, Digital Marketing and Branding.")
	assert.Contains(t, prompt, "Question: what do you do?")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestAssemble_EmptyHistoryOmitsSection(t *testing.T) {
	a := testAssembler(0)

	prompt, err := a.Assemble("hello", sampleResults(), nil)

	require.NoError(t, err)
	assert.NotContains(t, prompt, "Conversation so far")
}

func TestAssemble_EmptyResultsUsePlaceholder(t *testing.T) {
	a := testAssembler(0)

	prompt, err := a.Assemble("hello", nil, nil)

	require.NoError(t, err)
	assert.Contains(t, prompt, "(no documents matched this question)")
}

func TestSerializeHistory_RoundTrip(t *testing.T) {
	history := []types.ConversationTurn{
		{Role: types.RoleUser, Content: "what services do you offer?"},
		{Role: types.RoleAssistant, Content: "web development and branding"},
		{Role: types.RoleUser, Content: "how much does it cost?"},
	}

	block := serializeHistory(history)

	// Re-parsing the block must reproduce the original sequence.
	linePattern := regexp.MustCompile(`^(User|Assistant): (.*)$`)
	lines := strings.Split(block, "\n")
	require.Len(t, lines, len(history))

	for i, line := range lines {
		m := linePattern.FindStringSubmatch(line)
		require.NotNil(t, m, "line %d did not match: %q", i, line)

		role := types.RoleUser
		if m[1] == "Assistant" {
			role = types.RoleAssistant
		}
		assert.Equal(t, history[i].Role, role)
		assert.Equal(t, history[i].Content, m[2])
	}
}

func TestAssemble_DropsOldestHistoryFirst(t *testing.T) {
	history := []types.ConversationTurn{
		{Role: types.RoleUser, Content: strings.Repeat("old question ", 50)},
		{Role: types.RoleAssistant, Content: "recent answer"},
	}

	// Budget fits the prompt only once the oldest turn is gone.
	want := render("next?", nil, history[1:])
	a := testAssembler(charCounter(want))

	prompt, err := a.Assemble("next?", nil, history)

	require.NoError(t, err)
	assert.Equal(t, want, prompt)
	assert.NotContains(t, prompt, "old question")
	assert.Contains(t, prompt, "recent answer")
}

func TestAssemble_DropsLowestScoringResultAfterHistory(t *testing.T) {
	results := sampleResults()

	want := render("what do you do?", results[:1], nil)
	a := testAssembler(charCounter(want))

	prompt, err := a.Assemble("what do you do?", results, nil)

	require.NoError(t, err)
	assert.Equal(t, want, prompt)
	assert.Contains(t, prompt, "[Document 1]")
	assert.NotContains(t, prompt, "pricing.md")
}

func TestAssemble_QuestionAloneOverBudget(t *testing.T) {
	a := testAssembler(10)

	prompt, err := a.Assemble("a question that cannot fit any budget", nil, nil)

	require.NoError(t, err)
	assert.Contains(t, prompt, "a question that cannot fit any budget")
}
