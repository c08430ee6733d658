package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional decoding parameters.
type Option func(*Options)

// Options are the decoding parameters sent with every request. Zero values are omitted so the
// backend's own defaults apply.
type Options struct {
	Temperature   float64
	TopP          float64
	TopK          int
	MaxTokens     int
	RepeatPenalty float64
	Model         string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithTopP(p float64) Option {
	return func(o *Options) {
		o.TopP = p
	}
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithRepeatPenalty(p float64) Option {
	return func(o *Options) {
		o.RepeatPenalty = p
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Apply folds opts over the defaults.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the completion endpoint
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// LastTurns returns at most the last n messages of history without modifying it.
func LastTurns(history []Message, n int) []Message {
	if n <= 0 || len(history) <= n {
		out := make([]Message, len(history))
		copy(out, history)
		return out
	}
	out := make([]Message, n)
	copy(out, history[len(history)-n:])
	return out
}
