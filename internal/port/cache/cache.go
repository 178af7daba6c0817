// Package cache defines the port for the extracted-feature cache. Image
// measurements are content addressed, so hitting the cache skips a full
// decode and pixel scan for any file the pipeline has already seen.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry TTL. Get reports
// a miss with found=false; an error means the backend itself failed, and
// callers treat that as a miss rather than failing the validation.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
