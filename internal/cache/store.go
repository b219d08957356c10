// Package cache holds the TTL stores behind the market data cache and the
// journal that records executed swaps.
package cache

import (
	"context"
	"time"
)

// Store is a JSON value cache with per-entry time-to-live.
type Store interface {
	// Get decodes the value at key into dst. It reports false on a miss or
	// an expired entry.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}
