package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cms-copilot/server/internal/agent/model"
	errx "github.com/cms-copilot/server/internal/core/error"
	logx "github.com/cms-copilot/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// CheckpointRepository persists conversation state between turns.
type CheckpointRepository interface {
	Load(ctx context.Context, conversationID string) (*model.CopilotState, error)
	Save(ctx context.Context, conversationID string, state *model.CopilotState) error
	Clear(ctx context.Context, conversationID string) error
}

type RedisCheckpointRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCheckpointRepository(rdb redis.Cmdable, ttl time.Duration) *RedisCheckpointRepository {
	return &RedisCheckpointRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisCheckpointRepository) checkpointKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:state", conversationID)
}

// Load returns the persisted state for the conversation, or a fresh empty
// state when nothing has been saved yet.
func (r *RedisCheckpointRepository) Load(ctx context.Context, conversationID string) (*model.CopilotState, error) {
	key := r.checkpointKey(conversationID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return &model.CopilotState{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation state from redis")
		return nil, errx.WrapRedis(err)
	}

	var state model.CopilotState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to unmarshal conversation state")
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return &state, nil
}

func (r *RedisCheckpointRepository) Save(ctx context.Context, conversationID string, state *model.CopilotState) error {
	b, err := json.Marshal(state)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal conversation state")
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	key := r.checkpointKey(conversationID)

	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save conversation state to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisCheckpointRepository) Clear(ctx context.Context, conversationID string) error {
	key := r.checkpointKey(conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation state from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ CheckpointRepository = (*RedisCheckpointRepository)(nil)
