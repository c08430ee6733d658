// Package intent decides which kind of answer a question needs.
package intent

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/metrics"
)

type Category string

const (
	CategorySummarization   Category = "SUMMARIZATION"
	CategoryDocumentQA      Category = "DOCUMENT_QA"
	CategoryGeneralQuestion Category = "GENERAL_QUESTION"
	CategoryChitChat        Category = "CHIT_CHAT"
	CategoryOther           Category = "OTHER"
)

// Label is the wording the model is asked to answer with.
func (c Category) Label() string {
	switch c {
	case CategoryDocumentQA:
		return "QUESTION FROM DOCUMENTS"
	case CategoryGeneralQuestion:
		return "GENERAL QUESTION"
	case CategoryChitChat:
		return "CHIT CHAT"
	default:
		return string(c)
	}
}

// UsesDocuments reports whether answering needs retrieved chunks.
func (c Category) UsesDocuments() bool {
	return c == CategorySummarization || c == CategoryDocumentQA || c == CategoryOther
}

type Mode string

const (
	// ModeDocuments only tells summaries from document questions.
	ModeDocuments Mode = "documents"
	// ModeMultiIntent also recognises general questions, chit chat and everything else.
	ModeMultiIntent Mode = "multi_intent"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDocuments, "":
		return ModeDocuments, nil
	case ModeMultiIntent:
		return ModeMultiIntent, nil
	}
	return "", fmt.Errorf("unknown router mode %q", s)
}

// Categories lists what a mode can classify into.
func (m Mode) Categories() []Category {
	if m == ModeMultiIntent {
		return []Category{CategoryGeneralQuestion, CategorySummarization, CategoryDocumentQA, CategoryChitChat, CategoryOther}
	}
	return []Category{CategorySummarization, CategoryDocumentQA}
}

// matchOrder is the containment check order. "GENERAL QUESTION" goes before "QUESTION FROM DOCUMENTS"
// so a label mentioning both words is not read as a document question.
var matchOrder = []Category{
	CategoryGeneralQuestion,
	CategorySummarization,
	CategoryDocumentQA,
	CategoryChitChat,
	CategoryOther,
}

// MatchCategory finds the first label allowed in mode that the model output contains. Labels outside
// the mode are skipped; an output naming no allowed label gives DOCUMENT_QA with ok=false.
func MatchCategory(mode Mode, output string) (Category, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(output, "_", " "))
	allowed := make(map[Category]bool)
	for _, c := range mode.Categories() {
		allowed[c] = true
	}
	for _, c := range matchOrder {
		if !strings.Contains(normalized, c.Label()) && !strings.Contains(normalized, strings.ReplaceAll(string(c), "_", " ")) {
			continue
		}
		if !allowed[c] {
			continue
		}
		return c, true
	}
	return CategoryDocumentQA, false
}

// Completer is the single-prompt side of the generation client.
type Completer interface {
	Complete(ctx context.Context, prompt string) string
}

const DefaultWindowChars = 1000

var classifyTemplate = template.Must(template.New("classify").Parse(
	`You are an AI assistant tasked with analyzing the following conversation between a user and an assistant. ` +
		`Your goal is to decide which kind of request the user's final message is. ` +
		`Choose exactly one of these categories: {{.Choices}}.
{{- range .Hints}}
- {{.}}{{end}}

Here is the conversation:

{{.Conversation}}

User's final message: {{.Query}}

Respond only with the category name: {{.Choices}}.`))

var categoryHints = map[Category]string{
	CategorySummarization:   "'SUMMARIZATION': the user wants a summary or overview of the uploaded documents",
	CategoryDocumentQA:      "'QUESTION FROM DOCUMENTS': the user asks something the uploaded documents should answer",
	CategoryGeneralQuestion: "'GENERAL QUESTION': a general knowledge question unrelated to the documents",
	CategoryChitChat:        "'CHIT CHAT': greetings, thanks or small talk",
	CategoryOther:           "'OTHER': anything else",
}

// Resolver classifies a question through the completion endpoint.
type Resolver struct {
	completer   Completer
	mode        Mode
	windowChars int
	logger      logger.ILogger
	metrics     *metrics.Metrics
}

func NewResolver(completer Completer, mode Mode, windowChars int, log logger.ILogger, m *metrics.Metrics) *Resolver {
	if windowChars <= 0 {
		windowChars = DefaultWindowChars
	}
	if mode == "" {
		mode = ModeDocuments
	}
	return &Resolver{
		completer:   completer,
		mode:        mode,
		windowChars: windowChars,
		logger:      log,
		metrics:     m,
	}
}

func (r *Resolver) Mode() Mode {
	return r.mode
}

// Resolve never fails: anything it cannot place is DOCUMENT_QA.
func (r *Resolver) Resolve(ctx context.Context, conversation []llm.Message, query string) Category {
	prompt, err := r.BuildPrompt(conversation, query)
	if err != nil {
		r.logger.Error("TaskRouter", "Failed to build classification prompt", map[string]interface{}{"error": err.Error()})
		r.metrics.ClassificationFallback()
		return CategoryDocumentQA
	}

	output := r.completer.Complete(ctx, prompt)
	category, ok := MatchCategory(r.mode, output)
	if !ok {
		r.logger.Warn("TaskRouter", "Unrecognised classification, defaulting to document QA", map[string]interface{}{
			"output": output,
			"mode":   string(r.mode),
		})
		r.metrics.ClassificationFallback()
		return category
	}

	r.logger.Debug("TaskRouter", "Detected task category", map[string]interface{}{"category": string(category)})
	return category
}

// BuildPrompt renders the classification request with the last windowChars characters of the conversation.
func (r *Resolver) BuildPrompt(conversation []llm.Message, query string) (string, error) {
	categories := r.mode.Categories()
	labels := make([]string, len(categories))
	hints := make([]string, len(categories))
	for i, c := range categories {
		labels[i] = "'" + c.Label() + "'"
		hints[i] = categoryHints[c]
	}

	var sb strings.Builder
	err := classifyTemplate.Execute(&sb, map[string]interface{}{
		"Choices":      strings.Join(labels, " or "),
		"Hints":        hints,
		"Conversation": tail(FormatConversation(conversation), r.windowChars),
		"Query":        query,
	})
	return sb.String(), err
}

// FormatConversation renders turns as "role: content" lines.
func FormatConversation(conversation []llm.Message) string {
	var sb strings.Builder
	for _, m := range conversation {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
