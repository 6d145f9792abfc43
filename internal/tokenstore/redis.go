package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const tokenPrefix = "oauthtoken:"

// RedisBackend keeps records in Redis as JSON. Keys carry no TTL so that
// expired records stay visible to Status.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a Redis-backed token backend
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func redisKey(userID, provider string) string {
	return tokenPrefix + provider + ":" + userID
}

// Put stores rec without expiry
func (b *RedisBackend) Put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling token record: %w", err)
	}
	if err := b.client.Set(ctx, redisKey(rec.UserID, rec.Provider), data, 0).Err(); err != nil {
		return fmt.Errorf("storing token record: %w", err)
	}
	return nil
}

// Get returns the stored record or nil when the key is missing
func (b *RedisBackend) Get(ctx context.Context, userID, provider string) (*Record, error) {
	data, err := b.client.Get(ctx, redisKey(userID, provider)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting token record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling token record: %w", err)
	}
	return &rec, nil
}

// Delete removes the key
func (b *RedisBackend) Delete(ctx context.Context, userID, provider string) (bool, error) {
	n, err := b.client.Del(ctx, redisKey(userID, provider)).Result()
	if err != nil {
		return false, fmt.Errorf("deleting token record: %w", err)
	}
	return n > 0, nil
}

// CheckHealth verifies Redis connectivity
func (b *RedisBackend) CheckHealth(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
