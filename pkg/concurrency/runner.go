package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// TaskRunner is a bounded-parallelism executor: Schedule never blocks
// the caller, but at most maxConcurrency submitted jobs run at once.
// Backpressure takes the form of goroutines parked on the semaphore
// rather than a bounded queue, which keeps Schedule's contract simple
// (fire-and-forget) while still capping concurrent I/O and CPU work.
type TaskRunner struct {
	sem   *semaphore.Weighted
	group *errgroup.Group
	ctx   context.Context
}

// NewTaskRunner constructs a TaskRunner bound to ctx: cancelling ctx
// (or any scheduled job returning an error) cancels every other
// in-flight and not-yet-started job.
func NewTaskRunner(ctx context.Context, maxConcurrency int64) *TaskRunner {
	g, gctx := errgroup.WithContext(ctx)
	return &TaskRunner{
		sem:   semaphore.NewWeighted(maxConcurrency),
		group: g,
		ctx:   gctx,
	}
}

// Schedule submits work to run as soon as a concurrency slot frees up.
// It returns immediately; work runs on its own goroutine.
func (r *TaskRunner) Schedule(work func(context.Context) error) {
	r.group.Go(func() error {
		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			return err
		}
		defer r.sem.Release(1)
		return work(r.ctx)
	})
}

// Join blocks until every scheduled job has completed or deadline's
// context is cancelled, whichever comes first. It returns the first
// non-nil error from any job, or the deadline context's error.
func (r *TaskRunner) Join(deadline context.Context) error {
	done := make(chan error, 1)
	go func() { done <- r.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-deadline.Done():
		return deadline.Err()
	}
}
