package imgproc

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent image decodes using a weighted semaphore.
// Decoding large catalog images is memory-heavy; all decode paths share one
// Pool so a burst of validation requests cannot exhaust the process.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool that allows at most limit concurrent decodes.
// A limit below 1 disables the bound.
func NewPool(limit int) *Pool {
	if limit < 1 {
		return &Pool{}
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot.
// Blocks if all slots are busy. Returns ctx.Err() if the context
// is cancelled while waiting for a slot.
// If the pool is nil or unbounded, fn is executed directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
