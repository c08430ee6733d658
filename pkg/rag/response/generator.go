package response

import (
	"context"
	"time"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/metrics"
	"ai-docqa-be/pkg/retry"
)

const (
	DefaultHistoryTurns = 10
	DefaultPromptBudget = 4000
)

// Decoding holds the sampling parameters sent with every chat and completion request.
type Decoding struct {
	Temperature   float64
	TopP          float64
	TopK          int
	NumPredict    int
	RepeatPenalty float64
}

// DeterministicDecoding biases the model toward repeatable answers that stay close to the supplied text.
func DeterministicDecoding() Decoding {
	return Decoding{
		Temperature:   0.1,
		TopP:          0.3,
		TopK:          10,
		NumPredict:    1024,
		RepeatPenalty: 1.1,
	}
}

func (d Decoding) options() []llm.Option {
	return []llm.Option{
		llm.WithTemperature(d.Temperature),
		llm.WithTopP(d.TopP),
		llm.WithTopK(d.TopK),
		llm.WithMaxTokens(d.NumPredict),
		llm.WithRepeatPenalty(d.RepeatPenalty),
	}
}

type GeneratorConfig struct {
	HistoryTurns int
	PromptBudget int
	Decoding     Decoding
	Policy       retry.Policy
}

// Generator is the generation client used by the router. Neither of its calls returns an error:
// a chat that keeps failing becomes MessageApology and a completion becomes DefaultClassification.
type Generator struct {
	llmProvider llm.LLMProvider
	cfg         GeneratorConfig
	logger      logger.ILogger
	metrics     *metrics.Metrics
}

func NewGenerator(llmProvider llm.LLMProvider, cfg GeneratorConfig, log logger.ILogger, m *metrics.Metrics) *Generator {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.PromptBudget <= 0 {
		cfg.PromptBudget = DefaultPromptBudget
	}
	if cfg.Decoding == (Decoding{}) {
		cfg.Decoding = DeterministicDecoding()
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = retry.Fixed(3, 2*time.Second)
	}
	if cfg.Policy.Retryable == nil {
		cfg.Policy = cfg.Policy.When(apperr.IsRetryable)
	}
	return &Generator{
		llmProvider: llmProvider,
		cfg:         cfg,
		logger:      log,
		metrics:     m,
	}
}

// Chat sends the last HistoryTurns messages of history to the chat endpoint.
func (g *Generator) Chat(ctx context.Context, history []llm.Message) string {
	window := llm.LastTurns(history, g.cfg.HistoryTurns)

	answer, err := retry.Do(ctx, g.cfg.Policy, func(ctx context.Context) (string, error) {
		return g.llmProvider.Chat(ctx, window, g.cfg.Decoding.options()...)
	}, g.onRetry("chat"))
	if err != nil {
		g.logger.Error("GenerationClient", "Chat failed, returning apology", map[string]interface{}{
			"error":   err.Error(),
			"kind":    string(apperr.KindOf(err)),
			"timeout": apperr.IsTimeout(err),
			"turns":   len(window),
		})
		g.metrics.Degraded("chat")
		return MessageApology
	}
	return answer
}

// Complete sends a single prompt, cut to PromptBudget characters, to the completion endpoint.
func (g *Generator) Complete(ctx context.Context, prompt string) string {
	prompt = truncateRunes(prompt, g.cfg.PromptBudget)

	answer, err := retry.Do(ctx, g.cfg.Policy, func(ctx context.Context) (string, error) {
		return g.llmProvider.Generate(ctx, prompt, g.cfg.Decoding.options()...)
	}, g.onRetry("complete"))
	if err != nil {
		g.logger.Warn("GenerationClient", "Completion failed, using default classification", map[string]interface{}{
			"error": err.Error(),
			"kind":  string(apperr.KindOf(err)),
		})
		g.metrics.Degraded("complete")
		return DefaultClassification
	}
	return answer
}

func (g *Generator) onRetry(call string) func(int, error, time.Duration) {
	return func(attempt int, err error, wait time.Duration) {
		g.metrics.Retry("generation")
		g.logger.Warn("GenerationClient", "Retrying "+call, map[string]interface{}{
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
