package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/auramail/auramail/internal/engine"
)

// RedisCheckpointer stores checkpoints in Redis under
// <prefix>cp:<key> as JSON.
type RedisCheckpointer struct {
	client *redis.Client
	prefix string
}

var _ engine.Checkpointer = (*RedisCheckpointer)(nil)

// NewRedisCheckpointer creates a RedisCheckpointer. prefix is optional but
// recommended (e.g. "auramail:").
func NewRedisCheckpointer(client *redis.Client, prefix string) *RedisCheckpointer {
	if prefix == "" {
		prefix = "auramail:"
	}
	return &RedisCheckpointer{client: client, prefix: prefix}
}

func (s *RedisCheckpointer) key(key string) string {
	return s.prefix + "cp:" + key
}

func (s *RedisCheckpointer) Save(ctx context.Context, key string, cp engine.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return s.client.Set(ctx, s.key(key), data, 0).Err()
}

func (s *RedisCheckpointer) Load(ctx context.Context, key string) (engine.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return engine.Checkpoint{}, engine.ErrCheckpointNotFound
		}
		return engine.Checkpoint{}, err
	}

	var cp engine.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return engine.Checkpoint{}, fmt.Errorf("decoding checkpoint: %w", err)
	}
	return cp, nil
}

func (s *RedisCheckpointer) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
