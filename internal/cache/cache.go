// Package cache holds time-boxed query results for the data layer.
//
// Stores are best-effort: callers treat any error as a miss and fall back to
// the backend.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a cached result stays fresh.
const DefaultTTL = 5 * time.Minute

// Store is a key to bytes map with per-entry expiry.
type Store interface {
	// Get returns the value and true when key is present and not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Close() error
}
