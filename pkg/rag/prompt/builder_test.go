package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag/intent"
)

func TestRender_EmbedsCleanedContext(t *testing.T) {
	b := NewBuilder(0, 0)

	out, err := b.Render(intent.CategoryDocumentQA, "What is the fee?", []string{"The fee is $ 1 0 . 9 0 today"})
	require.NoError(t, err)

	assert.Contains(t, out, "Question: What is the fee?")
	assert.Contains(t, out, "<documents>\nThe fee is $10.90 today\n</documents>")
	assert.Contains(t, out, "I cannot find this information")
}

func TestRender_TemplatesPerCategory(t *testing.T) {
	b := NewBuilder(0, 0)

	tests := []struct {
		category intent.Category
		contains string
	}{
		{intent.CategorySummarization, "Summary (based STRICTLY"},
		{intent.CategoryDocumentQA, "Answer (based STRICTLY"},
		{intent.CategoryGeneralQuestion, "general question"},
		{intent.CategoryChitChat, "Reply:"},
		{intent.CategoryOther, "Response:"},
		{intent.Category("UNKNOWN"), "Answer (based STRICTLY"},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			out, err := b.Render(tt.category, "q", []string{"chunk"})
			require.NoError(t, err)
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestRender_OtherWithoutChunksOmitsDocuments(t *testing.T) {
	out, err := NewBuilder(0, 0).Render(intent.CategoryOther, "hello", nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "<documents>")
}

func TestMessages_AppendsPromptAfterTruncatedHistory(t *testing.T) {
	b := NewBuilder(100, 2)
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleAssistant, Content: "b"},
		{Role: llm.RoleUser, Content: "c"},
	}

	msgs, err := b.Messages(intent.CategorySummarization, "sum up", []string{"x"}, history)
	require.NoError(t, err)

	require.Len(t, msgs, 3)
	assert.Equal(t, "b", msgs[0].Content)
	assert.Equal(t, "c", msgs[1].Content)
	assert.Equal(t, llm.RoleUser, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "User's request: sum up")
	assert.Len(t, history, 3)
}
