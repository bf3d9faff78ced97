package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// WorkerPool runs jobs on a bounded number of goroutines. When built with a
// positive interval, job starts are spaced at least that far apart.
type WorkerPool struct {
	slots   chan struct{}
	limiter *rate.Limiter
	wg      sync.WaitGroup
}

// NewWorkerPool creates a pool of at most workers concurrent jobs. An
// interval of zero disables rate limiting.
func NewWorkerPool(workers int, interval time.Duration) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	wp := &WorkerPool{slots: make(chan struct{}, workers)}
	if interval > 0 {
		wp.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return wp
}

// Submit blocks until a worker slot is free, then runs job on its own
// goroutine once the limiter allows. A cancelled ctx releases the limiter
// wait early; the job is still run and is expected to check ctx itself.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) {
	wp.wg.Add(1)
	wp.slots <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.slots }()

		if wp.limiter != nil {
			_ = wp.limiter.Wait(ctx)
		}
		job()
	}()
}

// Wait blocks until every submitted job has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}
