// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for session action logs.
const DefaultQueueName = "gofish_actions"

// SessionActionRecord holds the minimal info needed by the historian worker.
type SessionActionRecord struct {
	SessionID     uuid.UUID              `json:"session_id"`
	Seq           int                    `json:"seq"`
	PlayerID      string                 `json:"player_id,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload,omitempty"`
	Timestamp     int64                  `json:"timestamp"` // epoch millis
}

// Pusher is the part of a Redis client used to publish records.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Popper is the part of a Redis client used to consume records.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// ConnectRedis opens a client for addr/db and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// PublishSessionAction serializes the record to JSON, then pushes it to the Redis queue.
func PublishSessionAction(ctx context.Context, rdb Pusher, queue string, record SessionActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SessionActionRecord: %w", err)
	}
	if err := rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// PopSessionAction blocks up to timeout for the next record on the queue. It returns
// nil with no error when the timeout elapses with nothing queued.
func PopSessionAction(ctx context.Context, rdb Popper, queue string, timeout time.Duration) (*SessionActionRecord, error) {
	res, err := rdb.BLPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	var record SessionActionRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &record, nil
}
