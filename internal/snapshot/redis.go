package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the table when SNAPSHOT_KEY is not set.
const DefaultRedisKey = "gofish:sessions"

// RedisBackend stores the table under a single string key.
type RedisBackend struct {
	rdb *redis.Client
	key string
}

func NewRedisBackend(rdb *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{rdb: rdb, key: key}
}

func (b *RedisBackend) Save(ctx context.Context, t Table) error {
	data, err := encode(t)
	if err != nil {
		return err
	}
	if err := b.rdb.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to SET snapshot key '%s': %w", b.key, err)
	}
	return nil
}

func (b *RedisBackend) Load(ctx context.Context) (Table, error) {
	data, err := b.rdb.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to GET snapshot key '%s': %w", b.key, err)
	}
	return decode(data)
}

// Close leaves the shared client open; its owner closes it.
func (b *RedisBackend) Close() error { return nil }
