// Package workerpool bounds concurrent CPU-bound work (embedding model
// inference) so it cannot starve request handling.
package workerpool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type Pool struct {
	sem *semaphore.Weighted
}

// New creates a pool with an explicit concurrency limit.
func New(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(maxWorkers))}
}

// Submit runs task on the pool and waits for it to finish. Waiting for a
// free slot is cancellable. Once started, the task always runs to
// completion so partial inference work is not wasted; a cancelled caller
// just stops waiting and the result is discarded.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer p.sem.Release(1)
		defer close(done)
		task()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
