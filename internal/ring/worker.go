//go:build linux

package ring

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Worker is a single-threaded cooperative executor owning one Ring,
// bound to its own OS thread for the lifetime of the session (§5
// thread-per-core: "Tasks are not migrated between workers once
// started"). Tasks are ordinary goroutines, but every one spawned on a
// Worker submits exclusively to that Worker's Ring — submission to a
// ring is the only operation that needs the single-owner discipline,
// so letting the Go scheduler run many small task-goroutines per Worker
// is both idiomatic and faithful to §5's "no shared mutable state
// between workers on the I/O hot path".
type Worker struct {
	id   int
	ring *Ring

	tasks sync.WaitGroup

	submitCh chan submitRequest
	stopCh   chan struct{}
	stopped  chan struct{}
}

type submitRequest struct {
	op   Op
	futC chan futureOrError
}

type futureOrError struct {
	fut *Future
	err error
}

// NewWorker creates a Worker with its own ring of the given queue depth.
func NewWorker(id int, queueDepth uint32) (*Worker, error) {
	r, err := New(queueDepth)
	if err != nil {
		return nil, err
	}
	w := &Worker{
		id:       id,
		ring:     r,
		submitCh: make(chan submitRequest, queueDepth),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// loop is the cooperative event loop: it alternates between draining
// freshly-submitted operations into the ring's staging queue,
// flushing+harvesting via io_uring_enter, and sleeping briefly when
// idle. It owns the OS thread for its entire lifetime (§5).
func (w *Worker) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.stopped)

	idleBackoff := time.Microsecond
	const maxIdleBackoff = 2 * time.Millisecond

	for {
		drained := false
		for {
			select {
			case req := <-w.submitCh:
				fut, err := w.ring.Stage(req.op)
				req.futC <- futureOrError{fut: fut, err: err}
				drained = true
				continue
			default:
			}
			break
		}

		pending := w.ring.PendingCount()
		var minComplete uint32
		if pending > 0 {
			minComplete = 1
		}
		if err := w.ring.Submit(minComplete); err == nil && pending > 0 {
			idleBackoff = time.Microsecond
		}

		select {
		case <-w.stopCh:
			return
		default:
		}

		if !drained && pending == 0 {
			select {
			case <-w.stopCh:
				return
			case req := <-w.submitCh:
				fut, err := w.ring.Stage(req.op)
				req.futC <- futureOrError{fut: fut, err: err}
			case <-time.After(idleBackoff):
				if idleBackoff < maxIdleBackoff {
					idleBackoff *= 2
				}
			}
		}
	}
}

// Submit enqueues one kernel operation onto this Worker's ring and
// returns a Future resolved when the completion is harvested. Safe to
// call from any goroutine; the actual ring mutation happens on the
// Worker's own loop goroutine.
func (w *Worker) Submit(ctx context.Context, op Op) (*Future, error) {
	futC := make(chan futureOrError, 1)
	select {
	case w.submitCh <- submitRequest{op: op, futC: futC}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.stopCh:
		return nil, errWorkerStopped
	}
	select {
	case r := <-futC:
		return r.fut, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Spawn runs fn as a task "belonging" to this worker: fn may call
// w.Submit freely. Spawn does not block; use Wait or a Future to
// observe completion.
func (w *Worker) Spawn(fn func()) {
	w.tasks.Add(1)
	go func() {
		defer w.tasks.Done()
		fn()
	}()
}

// RunUntil blocks the calling goroutine until fn (a root task running
// on this worker) returns, per §4.1's run_until contract. Because tasks
// are goroutines here, "blocking the worker thread" means blocking the
// caller while the worker's own loop goroutine keeps servicing
// completions concurrently.
func (w *Worker) RunUntil(fn func()) {
	done := make(chan struct{})
	w.Spawn(func() {
		defer close(done)
		fn()
	})
	<-done
}

// Close stops the worker's event loop and tears down its ring. Callers
// must ensure no task is still submitting before calling Close.
func (w *Worker) Close() error {
	close(w.stopCh)
	<-w.stopped
	return w.ring.Close()
}

// Wait blocks until every task Spawned on this worker has returned.
func (w *Worker) Wait() {
	w.tasks.Wait()
}

var errWorkerStopped = workerStoppedError{}

type workerStoppedError struct{}

func (workerStoppedError) Error() string { return "ring worker stopped" }
