// Package worker provides the bounded parallel pool used for batched
// persistence fetches.
package worker

import (
	"context"
	"sync"
)

// Pool runs tasks with a fixed concurrency bound.
type Pool struct {
	size int
}

// NewPool creates a pool with the given concurrency. Sizes below 1 are
// treated as sequential.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size}
}

// Size returns the concurrency bound.
func (p *Pool) Size() int {
	return p.size
}

// Run invokes fn for each index in [0, n) with at most Size tasks in
// flight. The first error cancels the remaining tasks and is returned
// after every started task has finished.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, p.size)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				if err := fn(ctx, i); err != nil {
					fail(err)
				}
			}(i)
			continue
		}
		break
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
