// Package asyncpool implements a bounded worker pool for dispatching
// independent units of work (here: one backtest per parameter
// combination) over shared, read-only state.
//
// Grounded on the teacher's acquire/release worker-slot discipline
// (internal/infrastructure/async/concurrency.go's ConcurrencyManager) and
// its generic batch-dispatch shape (internal/infrastructure/async/batch.go's
// Batcher[T]), adapted from atomic-CAS spin-acquire to a buffered-channel
// semaphore, which is the idiomatic Go equivalent of the same bounded-slot
// invariant.
package asyncpool

import "sync"

// Run dispatches fn(item) for every item in items across at most
// maxWorkers concurrent goroutines, and returns results in the same order
// as items regardless of completion order (so callers needing completion
// order for progress reporting should drive that separately via onDone).
//
// onDone, if non-nil, is invoked once per completed item from whichever
// goroutine finished it, with a completed count assigned in completion
// order. The calls are made outside any lock, so they may run concurrently
// and need not arrive in count order; onDone must not block.
func Run[T any, R any](items []T, maxWorkers int, fn func(T) R, onDone func(completed, total int)) []R {
	n := len(items)
	results := make([]R, n)
	if n == 0 {
		return results
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > n {
		maxWorkers = n
	}

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, it T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = fn(it)
			if onDone != nil {
				mu.Lock()
				completed++
				c := completed
				mu.Unlock()
				onDone(c, n)
			}
		}(i, item)
	}
	wg.Wait()
	return results
}
