package intent

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/metrics"
)

type fixedCompleter struct {
	output string
	prompt string
}

func (f *fixedCompleter) Complete(ctx context.Context, prompt string) string {
	f.prompt = prompt
	return f.output
}

func TestMatchCategory(t *testing.T) {
	tests := []struct {
		name   string
		mode   Mode
		output string
		want   Category
		ok     bool
	}{
		{"exact summarization", ModeDocuments, "SUMMARIZATION", CategorySummarization, true},
		{"quoted and lower case", ModeDocuments, "'question from documents'", CategoryDocumentQA, true},
		{"wrapped in a sentence", ModeDocuments, "The category is: SUMMARIZATION.", CategorySummarization, true},
		{"enum spelling", ModeMultiIntent, "chit_chat", CategoryChitChat, true},
		{"general before document question", ModeMultiIntent, "GENERAL QUESTION (not a QUESTION FROM DOCUMENTS)", CategoryGeneralQuestion, true},
		{"general question outside documents mode", ModeDocuments, "GENERAL QUESTION", CategoryDocumentQA, false},
		{"disallowed label before an allowed one", ModeDocuments, "This is not a GENERAL QUESTION; it is a SUMMARIZATION request.", CategorySummarization, true},
		{"gibberish", ModeMultiIntent, "banana", CategoryDocumentQA, false},
		{"empty", ModeDocuments, "", CategoryDocumentQA, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchCategory(tt.mode, tt.output)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestResolve_UnknownOutputFallsBackAndCounts(t *testing.T) {
	m := metrics.New()
	r := NewResolver(&fixedCompleter{output: "I am not sure"}, ModeMultiIntent, 0, logger.NewNopLogger(), m)

	got := r.Resolve(t.Context(), nil, "what is the fee?")

	assert.Equal(t, CategoryDocumentQA, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassificationFallbacks))
}

func TestResolve_PromptCarriesWindowAndChoices(t *testing.T) {
	c := &fixedCompleter{output: "SUMMARIZATION"}
	r := NewResolver(c, ModeDocuments, 40, logger.NewNopLogger(), nil)

	conversation := []llm.Message{
		{Role: llm.RoleUser, Content: strings.Repeat("old ", 50)},
		{Role: llm.RoleAssistant, Content: "latest reply"},
	}
	got := r.Resolve(t.Context(), conversation, "summarize it")

	require.Equal(t, CategorySummarization, got)
	assert.Contains(t, c.prompt, "assistant: latest reply")
	assert.NotContains(t, c.prompt, "user: old")
	assert.Contains(t, c.prompt, "User's final message: summarize it")
	assert.Contains(t, c.prompt, "'SUMMARIZATION' or 'QUESTION FROM DOCUMENTS'")
	assert.NotContains(t, c.prompt, "CHIT CHAT")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Multi_Intent")
	require.NoError(t, err)
	assert.Equal(t, ModeMultiIntent, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeDocuments, m)

	_, err = ParseMode("gradio")
	assert.Error(t, err)
}
