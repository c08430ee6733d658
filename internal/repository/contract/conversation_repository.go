package contract

import (
	"context"

	"ai-docqa-be/pkg/llm"
)

// ConversationRepository stores each session's turns in order.
type ConversationRepository interface {
	Get(ctx context.Context, sessionId string) ([]llm.Message, error)
	Append(ctx context.Context, sessionId string, turns ...llm.Message) error
	Delete(ctx context.Context, sessionId string) error
	Clear(ctx context.Context) error
}
