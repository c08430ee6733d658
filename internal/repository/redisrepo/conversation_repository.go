// Package redisrepo stores conversations in Redis so every instance behind a load balancer sees the
// same history.
package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/llm"

	"github.com/redis/go-redis/v9"
)

const KeyPrefix = "docqa:conversation:"

type ConversationRepository struct {
	rdb *redis.Client
}

func NewConversationRepository(rdb *redis.Client) *ConversationRepository {
	return &ConversationRepository{rdb: rdb}
}

var _ contract.ConversationRepository = (*ConversationRepository)(nil)

func key(sessionId string) string {
	return KeyPrefix + sessionId
}

func (r *ConversationRepository) Get(ctx context.Context, sessionId string) ([]llm.Message, error) {
	raw, err := r.rdb.LRange(ctx, key(sessionId), 0, -1).Result()
	if err != nil {
		return nil, apperr.Storage("load conversation", err)
	}

	turns := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var m llm.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, apperr.Storage("load conversation", fmt.Errorf("decode turn: %w", err))
		}
		turns = append(turns, m)
	}
	return turns, nil
}

func (r *ConversationRepository) Append(ctx context.Context, sessionId string, turns ...llm.Message) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, len(turns))
	for i, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		values[i] = b
	}
	if err := r.rdb.RPush(ctx, key(sessionId), values...).Err(); err != nil {
		return apperr.Storage("append conversation", err)
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, sessionId string) error {
	if err := r.rdb.Del(ctx, key(sessionId)).Err(); err != nil {
		return apperr.Storage("delete conversation", err)
	}
	return nil
}

// Clear removes every stored conversation, walking the keyspace with SCAN so Redis is never blocked.
func (r *ConversationRepository) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, KeyPrefix+"*", 100).Result()
		if err != nil {
			return apperr.Storage("clear conversations", err)
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return apperr.Storage("clear conversations", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
