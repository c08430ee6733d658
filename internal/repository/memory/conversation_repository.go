package memory

import (
	"context"
	"sync"

	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/llm"

	"github.com/patrickmn/go-cache"
)

// ConversationRepository holds conversations in a go-cache table that never expires entries;
// sessions end through Delete or Clear.
type ConversationRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

var _ contract.ConversationRepository = (*ConversationRepository)(nil)

func (r *ConversationRepository) Get(ctx context.Context, sessionId string) ([]llm.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(sessionId); found {
		turns := x.([]llm.Message)
		out := make([]llm.Message, len(turns))
		copy(out, turns)
		return out, nil
	}
	return []llm.Message{}, nil
}

func (r *ConversationRepository) Append(ctx context.Context, sessionId string, turns ...llm.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing []llm.Message
	if x, found := r.cache.Get(sessionId); found {
		existing = x.([]llm.Message)
	}
	updated := make([]llm.Message, 0, len(existing)+len(turns))
	updated = append(updated, existing...)
	updated = append(updated, turns...)
	r.cache.Set(sessionId, updated, cache.NoExpiration)
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, sessionId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(sessionId)
	return nil
}

func (r *ConversationRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Flush()
	return nil
}
