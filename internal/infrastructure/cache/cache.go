package cache

import (
	"context"
	"time"
)

// Store is a key-value cache with per-entry expiration. Two implementations
// exist: Redis for deployments with one, and an in-memory fallback.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}
