// Package tiered implements a two-level (L1 + L2) cache adapter. The feature
// cache runs ristretto in-process as L1 with NATS KV as the shared L2, so a
// file already measured by one replica is a cheap hit everywhere.
package tiered

import (
	"context"
	"errors"
	"time"

	"github.com/Strob0t/CatalogForge/internal/port/cache"
)

// Cache layers a fast in-process L1 over a shared L2. A failing level never
// masks the other: reads fall through a broken L1, and writes attempt both
// levels before reporting.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New creates a tiered cache. l1Expire bounds how long L2 backfills live in
// L1. Feature keys are content addressed, so a long expiry is safe, it just
// holds memory for files the pipeline may never see again.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1, then L2, backfilling L1 on an L2 hit. An L1 failure falls
// through to L2, and a hit wins over any earlier error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, l1Err := c.l1.Get(ctx, key)
	if l1Err == nil && found {
		return val, true, nil
	}

	val, found, l2Err := c.l2.Get(ctx, key)
	if l2Err != nil {
		return nil, false, errors.Join(l1Err, l2Err)
	}
	if !found {
		return nil, false, l1Err
	}

	_ = c.l1.Set(ctx, key, val, c.l1Expire)
	return val, true, nil
}

// Set writes through to both levels, attempting each even when the other
// fails so a degraded L1 does not leave the shared layer cold.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Join(
		c.l1.Set(ctx, key, value, ttl),
		c.l2.Set(ctx, key, value, ttl),
	)
}

// Delete removes the key from both levels. Skipping L1 on an L2 failure
// would let the local copy keep serving an entry the shared layer dropped.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(
		c.l1.Delete(ctx, key),
		c.l2.Delete(ctx, key),
	)
}
