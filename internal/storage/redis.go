package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "kq:materials"

// RedisStore keeps the library in one hash: field per user, JSON value.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) LoadAll(ctx context.Context) (Library, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	lib := make(Library, len(fields))
	for user, raw := range fields {
		var docs map[string]string
		if err := json.Unmarshal([]byte(raw), &docs); err != nil {
			return nil, fmt.Errorf("decode %q: %w", user, err)
		}
		lib[user] = docs
	}
	return lib, nil
}

// SaveAll replaces the hash atomically.
func (s *RedisStore) SaveAll(ctx context.Context, lib Library) error {
	values := make(map[string]any, len(lib))
	for user, docs := range lib {
		data, err := json.Marshal(docs)
		if err != nil {
			return err
		}
		values[SanitizeKey(user)] = data
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	return err
}
