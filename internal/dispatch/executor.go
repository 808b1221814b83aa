// Package dispatch runs fire-and-forget jobs on a bounded set of workers.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// maxRecentErrors bounds the error history kept for Errors.
const maxRecentErrors = 16

// Job is a unit of work. It receives a context that outlives the caller
// that submitted it.
type Job func(ctx context.Context) error

type queued struct {
	name string
	fn   Job
}

// Stats is a point-in-time view of executor activity.
type Stats struct {
	Submitted int
	Completed int
	Failed    int
	Pending   int
	Running   int
}

// Executor manages job execution with bounded concurrency.
// Jobs start in submission order; with one worker they also finish in it.
type Executor struct {
	maxWorkers int
	logger     *log.Logger
	ctx        context.Context

	mu      sync.Mutex
	queue   []queued
	running int
	closed  bool
	errors  []error
	stats   Stats
	wg      sync.WaitGroup
}

// New creates an executor with at most maxWorkers concurrent jobs.
// Values below 1 mean a single worker.
func New(maxWorkers int, logger *log.Logger) *Executor {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		maxWorkers: maxWorkers,
		logger:     logger,
		// Jobs are detached from whoever submitted them.
		ctx: context.Background(),
	}
}

// Submit queues a job. It never blocks and returns false once the executor
// is closed.
func (e *Executor) Submit(name string, fn Job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.logger.Debug("job dropped, executor closed", "job", name)
		return false
	}

	e.queue = append(e.queue, queued{name: name, fn: fn})
	e.stats.Submitted++
	e.wg.Add(1)
	if e.running < e.maxWorkers {
		e.running++
		go e.work()
	}
	return true
}

func (e *Executor) work() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.running--
			e.mu.Unlock()
			return
		}
		j := e.queue[0]
		e.queue[0] = queued{}
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.run(j)
	}
}

func (e *Executor) run(j queued) {
	defer e.wg.Done()

	start := time.Now()
	err := e.call(j)
	duration := time.Since(start)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.Completed++
	if err == nil {
		e.logger.Debug("job done", "job", j.name, "duration", duration)
		return
	}
	e.stats.Failed++
	e.logger.Error("job failed", "job", j.name, "err", err, "duration", duration)
	e.errors = append(e.errors, fmt.Errorf("%s: %w", j.name, err))
	if len(e.errors) > maxRecentErrors {
		e.errors = e.errors[len(e.errors)-maxRecentErrors:]
	}
}

func (e *Executor) call(j queued) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.fn(e.ctx)
}

// Wait blocks until every submitted job has finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}

// Errors returns the most recent job errors.
// This is safe to call from multiple goroutines.
func (e *Executor) Errors() []error {
	e.mu.Lock()
	defer e.mu.Unlock()

	errors := make([]error, len(e.errors))
	copy(errors, e.errors)
	return errors
}

// Stats returns a snapshot of executor activity.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stats
	s.Pending = len(e.queue)
	s.Running = e.running
	return s
}
