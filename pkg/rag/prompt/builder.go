package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag/intent"
)

const DefaultHistoryTurns = 3

const groundingRules = `Answer using ONLY the information inside <documents>. ` +
	`If the text contains oddly spaced characters like '$ 1 0 . 9 0', read it as the properly formatted value '$10.90'. ` +
	`If the answer is not contained in the documents, explicitly state: 'I cannot find this information in the provided documents.' ` +
	`NEVER make up information that is not found in the documents.`

var templates = map[intent.Category]*template.Template{
	intent.CategorySummarization: template.Must(template.New("summarization").Parse(
		`<task>
You are a precise document summarization assistant. Summarize ONLY the information provided in the documents below.
If the documents do not contain information related to the user's request, state this clearly.
` + groundingRules + `
</task>

User's request: {{.Query}}

<documents>
{{.Context}}
</documents>

Summary (based STRICTLY on the provided document content):`)),

	intent.CategoryDocumentQA: template.Must(template.New("document_qa").Parse(
		`<task>
You are a precise document question-answering assistant. The documents come from PDF extraction and may contain artifacts.
` + groundingRules + `
Be concise and direct. Do not mention which chunk the answer came from.
</task>

Question: {{.Query}}

<documents>
{{.Context}}
</documents>

Answer (based STRICTLY on the provided content):`)),

	intent.CategoryOther: template.Must(template.New("other").Parse(
		`<task>
You are a helpful assistant. Use the documents below when they are relevant to the user's message.
{{- if .Context}} Do not invent facts about the documents.{{end}}
</task>

Message: {{.Query}}
{{if .Context}}
<documents>
{{.Context}}
</documents>
{{end}}
Response:`)),

	intent.CategoryGeneralQuestion: template.Must(template.New("general_question").Parse(
		`<task>
You are a knowledgeable assistant. Answer the user's general question clearly and briefly.
If you do not know the answer, say so instead of guessing.
</task>

Question: {{.Query}}

Answer:`)),

	intent.CategoryChitChat: template.Must(template.New("chit_chat").Parse(
		`<task>
You are a friendly assistant for a document question-answering service. Reply to the user's message in one or two sentences
and, when it fits, remind them they can ask about their uploaded documents.
</task>

Message: {{.Query}}

Reply:`)),
}

// Builder renders the answer prompt for a category and places it after the recent conversation.
type Builder struct {
	contextBudget int
	historyTurns  int
}

func NewBuilder(contextBudget, historyTurns int) *Builder {
	if contextBudget <= 0 {
		contextBudget = DefaultContextBudget
	}
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	return &Builder{contextBudget: contextBudget, historyTurns: historyTurns}
}

// Render fills the category's template. Unknown categories use the document question template.
func (b *Builder) Render(category intent.Category, query string, chunks []string) (string, error) {
	tmpl, ok := templates[category]
	if !ok {
		tmpl = templates[intent.CategoryDocumentQA]
	}

	var sb strings.Builder
	err := tmpl.Execute(&sb, struct {
		Query   string
		Context string
	}{
		Query:   query,
		Context: BuildContext(chunks, b.contextBudget),
	})
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", category, err)
	}
	return sb.String(), nil
}

// Messages returns the last historyTurns turns of history followed by the rendered prompt as a user turn.
// history itself is left untouched.
func (b *Builder) Messages(category intent.Category, query string, chunks []string, history []llm.Message) ([]llm.Message, error) {
	rendered, err := b.Render(category, query, chunks)
	if err != nil {
		return nil, err
	}
	messages := llm.LastTurns(history, b.historyTurns)
	return append(messages, llm.Message{Role: llm.RoleUser, Content: rendered}), nil
}
