package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisEventKeyPrefix = "billing:stripe:event:"

// RedisEventStore is a Redis-backed EventStore. Keys expire after the
// configured TTL, so Redis handles the cleanup the in-memory store does with
// a goroutine. Use this when more than one instance receives webhooks.
type RedisEventStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEventStore creates an event store on the given Redis connection.
func NewRedisEventStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisEventStore, error) {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	return &RedisEventStore{client: client, ttl: ttl}, nil
}

// EventExists checks if an event has already been processed
func (r *RedisEventStore) EventExists(ctx context.Context, eventID string) (bool, error) {
	n, err := r.client.Exists(ctx, redisEventKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis event lookup failed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed marks an event as processed
func (r *RedisEventStore) MarkProcessed(ctx context.Context, eventID string) error {
	if err := r.client.Set(ctx, redisEventKeyPrefix+eventID, time.Now().Unix(), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis event store failed: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (r *RedisEventStore) Close() error {
	return r.client.Close()
}
