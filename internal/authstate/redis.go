package authstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauthstate:"

// RedisStore keeps states in Redis with native key expiry
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed state store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Create stores st with SETNX so concurrent issuers cannot overwrite each other
func (s *RedisStore) Create(ctx context.Context, st *State, ttl time.Duration) error {
	if st.State == "" {
		return errors.New("empty state")
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, statePrefix+st.State, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("storing state: %w", err)
	}
	if !ok {
		return ErrStateExists
	}
	return nil
}

// Get returns the stored entry or nil when the key is missing or expired
func (s *RedisStore) Get(ctx context.Context, state string) (*State, error) {
	data, err := s.client.Get(ctx, statePrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	return &st, nil
}

// Delete removes the key; only one of several concurrent callers sees true
func (s *RedisStore) Delete(ctx context.Context, state string) (bool, error) {
	n, err := s.client.Del(ctx, statePrefix+state).Result()
	if err != nil {
		return false, fmt.Errorf("deleting state: %w", err)
	}
	return n > 0, nil
}

// Sweep is a no-op; Redis expires state keys on its own
func (s *RedisStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

// CheckHealth verifies Redis connectivity
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
