//go:build linux

package ring

import (
	"fmt"
	"sync/atomic"
)

// Runtime owns one Worker per configured CPU and round-robins new root
// tasks across them (Next), or hands out a caller-chosen Worker by
// index (Worker). Each Worker's ring is only ever mutated by that
// Worker's own loop goroutine; other goroutines reach it through
// Worker.Submit's bounded channel hand-off (§9 "Ring ownership across
// workers").
type Runtime struct {
	workers []*Worker
	next    atomic.Uint64
}

// NewRuntime creates numWorkers Workers, each with its own ring of
// queueDepth capacity. Ring-setup failure for any worker is fatal at
// startup (§4.1).
func NewRuntime(numWorkers int, queueDepth uint32) (*Runtime, error) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	rt := &Runtime{workers: make([]*Worker, numWorkers)}
	for i := 0; i < numWorkers; i++ {
		w, err := NewWorker(i, queueDepth)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("starting ring worker %d: %w", i, err)
		}
		rt.workers[i] = w
	}
	return rt, nil
}

// NumWorkers reports the worker count.
func (rt *Runtime) NumWorkers() int { return len(rt.workers) }

// Worker returns the worker at index i (caller-chosen affinity, e.g.
// "hash of directory path" for locality).
func (rt *Runtime) Worker(i int) *Worker {
	return rt.workers[i%len(rt.workers)]
}

// Next round-robins across workers for load distribution when the
// caller has no locality preference.
func (rt *Runtime) Next() *Worker {
	i := rt.next.Add(1) - 1
	return rt.workers[i%uint64(len(rt.workers))]
}

// Wait blocks until every task spawned on every worker has returned.
func (rt *Runtime) Wait() {
	for _, w := range rt.workers {
		w.Wait()
	}
}

// Close stops every worker and tears down its ring.
func (rt *Runtime) Close() error {
	var firstErr error
	for _, w := range rt.workers {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
