package executor

import (
	"context"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag/intent"
	"ai-docqa-be/pkg/rag/prompt"
	"ai-docqa-be/pkg/rag/response"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var pipelineTracer trace.Tracer = otel.Tracer("ai-docqa-be/pkg/rag/executor")

// Retriever is a session's document collection.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) []*entity.ChunkMatch
}

// Chatter is the chat side of the generation client.
type Chatter interface {
	Chat(ctx context.Context, history []llm.Message) string
}

// PipelineExecutor routes a question: retrieve, classify, build the category prompt, generate.
type PipelineExecutor struct {
	resolver *intent.Resolver
	builder  *prompt.Builder
	chatter  Chatter
	topK     int
	logger   logger.ILogger
}

func NewPipelineExecutor(resolver *intent.Resolver, builder *prompt.Builder, chatter Chatter, topK int, log logger.ILogger) *PipelineExecutor {
	if topK <= 0 {
		topK = 4
	}
	return &PipelineExecutor{
		resolver: resolver,
		builder:  builder,
		chatter:  chatter,
		topK:     topK,
		logger:   log,
	}
}

// ExecutionResult contains the result of pipeline execution
type ExecutionResult struct {
	Reply    string
	Category intent.Category
	Chunks   []*entity.ChunkMatch
	// Generated is false when Reply is one of the fixed refusals.
	Generated bool
}

// Execute answers query. docs is nil when the session has no documents. history is the conversation so
// far, without the current question.
func (p *PipelineExecutor) Execute(ctx context.Context, query string, history []llm.Message, docs Retriever) *ExecutionResult {
	ctx, span := pipelineTracer.Start(ctx, "rag.execute",
		trace.WithAttributes(
			attribute.String("router.mode", string(p.resolver.Mode())),
			attribute.Bool("session.has_documents", docs != nil),
		),
	)
	defer span.End()

	var result *ExecutionResult
	if p.resolver.Mode() == intent.ModeMultiIntent {
		result = p.executeMultiIntent(ctx, query, history, docs)
	} else {
		result = p.executeDocuments(ctx, query, history, docs)
	}

	span.SetAttributes(
		attribute.String("router.category", string(result.Category)),
		attribute.Int("retrieval.matches", len(result.Chunks)),
		attribute.Bool("generation.called", result.Generated),
	)
	return result
}

func (p *PipelineExecutor) executeDocuments(ctx context.Context, query string, history []llm.Message, docs Retriever) *ExecutionResult {
	if docs == nil {
		return &ExecutionResult{Reply: response.MessageUploadDocuments}
	}

	matches := p.retrieve(ctx, docs, query)
	if len(matches) == 0 {
		p.logger.Info("TaskRouter", "No relevant chunks, refusing", nil)
		return &ExecutionResult{Reply: response.MessageNoRelevantInfo}
	}

	category := p.resolver.Resolve(ctx, history, query)
	return p.generate(ctx, category, query, matches, history)
}

func (p *PipelineExecutor) executeMultiIntent(ctx context.Context, query string, history []llm.Message, docs Retriever) *ExecutionResult {
	category := p.resolver.Resolve(ctx, history, query)

	switch category {
	case intent.CategoryGeneralQuestion, intent.CategoryChitChat:
		return p.generate(ctx, category, query, nil, history)

	case intent.CategoryOther:
		var matches []*entity.ChunkMatch
		if docs != nil {
			matches = p.retrieve(ctx, docs, query)
		}
		if len(matches) == 0 {
			return p.generate(ctx, intent.CategoryGeneralQuestion, query, nil, history)
		}
		return p.generate(ctx, category, query, matches, history)
	}

	if docs == nil {
		return &ExecutionResult{Reply: response.MessageUploadDocuments, Category: category}
	}
	matches := p.retrieve(ctx, docs, query)
	if len(matches) == 0 {
		return &ExecutionResult{Reply: response.MessageNoRelevantInfo, Category: category}
	}
	return p.generate(ctx, category, query, matches, history)
}

func (p *PipelineExecutor) retrieve(ctx context.Context, docs Retriever, query string) []*entity.ChunkMatch {
	ctx, span := pipelineTracer.Start(ctx, "rag.retrieve")
	defer span.End()

	matches := docs.Query(ctx, query, p.topK)
	span.SetAttributes(attribute.Int("retrieval.matches", len(matches)))
	return matches
}

func (p *PipelineExecutor) generate(ctx context.Context, category intent.Category, query string, matches []*entity.ChunkMatch, history []llm.Message) *ExecutionResult {
	ctx, span := pipelineTracer.Start(ctx, "rag.generate", trace.WithAttributes(attribute.String("router.category", string(category))))
	defer span.End()

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}

	messages, err := p.builder.Messages(category, query, texts, history)
	if err != nil {
		span.RecordError(err)
		p.logger.Error("TaskRouter", "Failed to build prompt", map[string]interface{}{
			"category": string(category),
			"error":    err.Error(),
		})
		return &ExecutionResult{Reply: response.MessageApology, Category: category, Chunks: matches}
	}

	p.logger.Debug("TaskRouter", "Generating answer", map[string]interface{}{
		"category": string(category),
		"chunks":   len(matches),
	})
	return &ExecutionResult{
		Reply:     p.chatter.Chat(ctx, messages),
		Category:  category,
		Chunks:    matches,
		Generated: true,
	}
}
