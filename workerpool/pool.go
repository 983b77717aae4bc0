// Package workerpool implements the bounded ThreadPool the scheduler
// thread dispatches fired jobs into (spec.md §4.4): a fixed number of
// long-lived goroutines, a blocking submit when the pool is saturated, and
// a graceful shutdown that optionally waits for in-flight work to drain.
package workerpool

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool runs submitted funcs on a fixed-size set of worker goroutines,
// supervised by an errgroup.Group so a worker goroutine's own bug (it
// panics past runSafely's recover, which should never happen, or exits
// some other way) surfaces through Wait instead of silently vanishing.
// Workers are pre-created at NewPool and never torn down until Shutdown;
// there is no ordering guarantee between concurrently queued tasks
// (spec.md §4.4 invariant).
type Pool struct {
	tasks  chan func()
	group  *errgroup.Group
	logger *slog.Logger

	mu       sync.Mutex
	shutdown bool
}

// NewPool starts size worker goroutines reading from an unbuffered task
// channel, so Submit blocks until a worker is free (BlockForAvailableThreads
// semantics fall directly out of the unbuffered channel rather than a
// separate wait loop).
func NewPool(size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	group, _ := errgroup.WithContext(context.Background())
	p := &Pool{
		tasks:  make(chan func()),
		group:  group,
		logger: logger,
	}
	for i := 0; i < size; i++ {
		id := i
		p.group.Go(func() error {
			p.worker(id)
			return nil
		})
	}
	return p
}

func (p *Pool) worker(id int) {
	for task := range p.tasks {
		p.runSafely(id, task)
	}
}

// runSafely recovers a panicking task so one runaway job cannot take down a
// worker goroutine, matching the teacher's panic-isolation-around-job-run
// pattern.
func (p *Pool) runSafely(workerID int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("workerpool: recovered panic in worker", "worker", workerID, "panic", r)
		}
	}()
	task()
}

// Submit blocks until a worker goroutine accepts task, the Go analogue of
// Quartz's blockForAvailableThreads()+runInThread(). It returns false
// without running task if the pool has been shut down.
func (p *Pool) Submit(task func()) bool {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	p.tasks <- task
	return true
}

// TrySubmit submits task only if a worker is immediately available,
// without blocking. The scheduler thread does not call it; its dispatch
// path uses the blocking Submit.
func (p *Pool) TrySubmit(task func()) bool {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting new work. If waitForJobs is true it blocks until
// every already-submitted task has finished running.
func (p *Pool) Shutdown(waitForJobs bool) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

	close(p.tasks)
	if waitForJobs {
		_ = p.group.Wait()
	}
}
