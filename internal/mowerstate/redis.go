package mowerstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusPrefix = "status:"

// DefaultTTL bounds how long a status survives without updates
const DefaultTTL = 24 * time.Hour

// RedisStore implements the Store interface using Redis
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed store. A non-positive ttl uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// CheckHealth verifies Redis connectivity
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// SaveStatus stores the status with expiration
func (s *RedisStore) SaveStatus(ctx context.Context, status *Status) error {
	if status == nil || status.MowerID == "" {
		return ErrInvalidStatus
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}

	if err := s.client.Set(ctx, statusPrefix+status.MowerID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving status: %w", err)
	}
	return nil
}

// GetStatus retrieves the latest status of a mower
func (s *RedisStore) GetStatus(ctx context.Context, mowerID string) (*Status, error) {
	data, err := s.client.Get(ctx, statusPrefix+mowerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting status: %w", err)
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshaling status: %w", err)
	}
	return &status, nil
}
