package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrWorkerStopped is returned by Do once Stop has been called.
var ErrWorkerStopped = errors.New("analysis worker stopped")

// job represents a unit of work to be executed on the worker goroutine.
type job struct {
	id   uuid.UUID
	fn   func() any
	done chan jobResult
}

// jobResult holds the return value from a job.
type jobResult struct {
	value any
	err   error
}

// Worker serializes all analysis through a single goroutine. Analyzer and
// interpreter scopes have exactly one writer at a time; every LSP handler
// must go through the worker instead of touching them directly.
type Worker struct {
	jobs     chan job
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		jobs: make(chan job, 64),
		quit: make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes jobs sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case j := <-w.jobs:
			j.done <- w.execute(j)
		case <-w.quit:
			return
		}
	}
}

// execute runs one job, recovering from panics.
func (w *Worker) execute(j job) jobResult {
	var result jobResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("job %s panicked: %v", j.id, r)
				result.err = fmt.Errorf("job %s: %v", j.id, r)
			}
		}()
		result.value = j.fn()
	}()
	return result
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func() any) (any, error) {
	j := job{
		id:   uuid.New(),
		fn:   fn,
		done: make(chan jobResult, 1),
	}
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}
	select {
	case w.jobs <- j:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-j.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
