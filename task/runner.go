// Package task runs background work outside the lifetime of the request
// that scheduled it.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/synapse"
	"golang.org/x/sync/errgroup"
)

// Default runner sizing.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// Ensure Runner implements synapse.TaskRunner at compile time.
var _ synapse.TaskRunner = (*Runner)(nil)

// Recorder receives one observation per finished task.
type Recorder interface {
	ObserveTask(err error, elapsed time.Duration)
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithQueueSize sets how many accepted tasks may wait for a worker.
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithLogger sets the logger used to report task failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRecorder sets a Recorder for task metrics.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// Runner executes submitted tasks on a fixed pool of workers. Every task
// gets its own session from the store, closed when the task returns. Tasks
// are never cancelled; Close waits for every accepted task to finish.
type Runner struct {
	store     synapse.ItemStore
	workers   int
	queueSize int
	logger    *slog.Logger
	recorder  Recorder

	mu     sync.RWMutex
	queue  chan synapse.Task
	closed bool
	g      errgroup.Group
}

// NewRunner creates a Runner and starts its workers.
func NewRunner(store synapse.ItemStore, opts ...Option) *Runner {
	r := &Runner{
		store:     store,
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.queue = make(chan synapse.Task, r.queueSize)
	for range r.workers {
		r.g.Go(func() error {
			for t := range r.queue {
				r.run(t)
			}
			return nil
		})
	}
	return r
}

// Submit queues task without blocking. It returns EUNAVAILABLE when the
// queue is full or the runner is closed.
func (r *Runner) Submit(t synapse.Task) error {
	if t.Run == nil {
		return synapse.Errorf(synapse.EINVALID, "task %q has no run function", t.Name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return synapse.Errorf(synapse.EUNAVAILABLE, "task runner is shutting down")
	}
	select {
	case r.queue <- t:
		return nil
	default:
		return synapse.Errorf(synapse.EUNAVAILABLE, "task queue is full")
	}
}

// Len returns the number of tasks waiting for a worker.
func (r *Runner) Len() int {
	return len(r.queue)
}

// Close stops accepting tasks and waits until all accepted tasks are done.
func (r *Runner) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	return r.g.Wait()
}

func (r *Runner) run(t synapse.Task) {
	start := time.Now()
	err := r.execute(t)
	elapsed := time.Since(start)

	if r.recorder != nil {
		r.recorder.ObserveTask(err, elapsed)
	}
	if err != nil {
		r.logger.Error("task failed",
			"task", t.Name,
			"code", synapse.ErrorCode(err),
			"duration", elapsed,
			"error", err,
		)
		return
	}
	r.logger.Debug("task done", "task", t.Name, "duration", elapsed)
}

func (r *Runner) execute(t synapse.Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = synapse.Errorf(synapse.EINTERNAL, "task panicked: %v", p)
		}
	}()

	ctx := context.Background()
	session, err := r.store.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	return t.Run(ctx, session)
}
