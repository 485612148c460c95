// Package cache is the disposable key/value layer shared by the governance,
// aggregation and provenance components. Nothing stored here is a source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key does not exist or has expired.
var ErrMiss = errors.New("cache: miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Keys enumerates live keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// IncrementFields atomically adds to hash fields and refreshes the key TTL.
	IncrementFields(ctx context.Context, key string, ints map[string]int64, floats map[string]float64, ttl time.Duration) error
	GetFields(ctx context.Context, key string) (map[string]string, error)
}

func GetJSON(ctx context.Context, c Cache, key string, dest interface{}) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
