// Package redis implements the durable readiness result tier on Redis, for
// deployments where several server instances share one cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ResultStore = (*ResultStore)(nil)

const keyPrefix = "prready:readiness:"

// ResultStore keeps readiness results as JSON strings with an expiry.
type ResultStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewResultStore connects to Redis and verifies the connection with a PING.
// Entries expire after ttl; ttl <= 0 keeps them until cleared.
func NewResultStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*ResultStore, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return &ResultStore{client: client, ttl: ttl}, nil
}

// Load returns the stored result for key, or nil, nil if there is none.
func (s *ResultStore) Load(ctx context.Context, key string) (*model.ReadinessResult, error) {
	payload, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load result %s: %w", model.ErrPersistence, key, err)
	}

	var result model.ReadinessResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: decode result %s: %w", model.ErrPersistence, key, err)
	}
	return &result, nil
}

// Save stores result under key, replacing any previous value.
func (s *ResultStore) Save(ctx context.Context, key string, result model.ReadinessResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: encode result %s: %w", model.ErrPersistence, key, err)
	}

	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: save result %s: %w", model.ErrPersistence, key, err)
	}
	return nil
}

// Clear removes the stored result for key.
func (s *ResultStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: clear result %s: %w", model.ErrPersistence, key, err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (s *ResultStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *ResultStore) Close() error {
	return s.client.Close()
}
