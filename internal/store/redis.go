package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis:
//
//	<prefix>wf:<id>   => JSON-encoded Record
//	<prefix>wf:all    => SET of workflow ids
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. prefix is optional but recommended
// (e.g. "auramail:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "auramail:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) keyRecord(id string) string { return s.prefix + "wf:" + id }
func (s *RedisStore) keyAll() string             { return s.prefix + "wf:all" }

func (s *RedisStore) Add(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding workflow record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRecord(rec.WorkflowID), data, 0)
	pipe.SAdd(ctx, s.keyAll(), rec.WorkflowID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, workflowID string) (Record, error) {
	data, err := s.client.Get(ctx, s.keyRecord(workflowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrWorkflowNotFound
		}
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding workflow record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Remove(ctx context.Context, workflowID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keyRecord(workflowID))
	pipe.SRem(ctx, s.keyAll(), workflowID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) UpdateStatus(ctx context.Context, workflowID string, status Status) error {
	rec, err := s.Get(ctx, workflowID)
	if err != nil {
		return err
	}
	rec.Status = status

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding workflow record: %w", err)
	}
	return s.client.Set(ctx, s.keyRecord(workflowID), data, 0).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	ids, err := s.client.SMembers(ctx, s.keyAll()).Result()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrWorkflowNotFound) {
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
