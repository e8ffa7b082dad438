package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "story-studio:"

// RedisStore хранит снимок одной строкой под ключом story-studio:<namespace>.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Adapter = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisStore{client: client, key: redisKeyPrefix + namespace}
}

// Key возвращает ключ снимка.
func (r *RedisStore) Key() string {
	return r.key
}

func (r *RedisStore) Save(ctx context.Context, snapshot []byte) error {
	// SET заменяет значение целиком, частичных записей не бывает
	if err := r.client.Set(ctx, r.key, snapshot, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from redis: %w", err)
	}
	return data, nil
}
