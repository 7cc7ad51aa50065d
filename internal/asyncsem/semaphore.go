// Package asyncsem implements the fair FIFO permit pool of §4.3 (C3):
// a lock-free fast path over an atomic counter, falling back to a
// mutex-protected FIFO waiter list when no permit is immediately free.
//
// This mirrors the two-tier discipline the teacher applies elsewhere
// (atomic.Int32 fast path with a mutex-guarded slow path, as in
// backend/local's xattrSupported flag and parallel_stat's WaitGroup
// fan-in) generalized to a full counting semaphore with fairness.
package asyncsem

import (
	"context"
	"sync"
	"sync/atomic"
)

// Semaphore bounds concurrent operations at maxPermits, serving waiters
// in first-arrived-first-served order.
type Semaphore struct {
	max       int64
	available atomic.Int64 // free permits; fast-path decremented via CAS

	hasWaiters atomic.Bool // true while waiters is non-empty; gates the fast path

	mu      sync.Mutex
	waiters []chan struct{} // FIFO queue of blocked acquirers, closed to grant
}

// New constructs a Semaphore fixed at maxPermits for the lifetime of
// the session, per the "max_permits is fixed at construction"
// implementation contract of §4.3.
func New(maxPermits int) *Semaphore {
	if maxPermits < 1 {
		maxPermits = 1
	}
	s := &Semaphore{max: int64(maxPermits)}
	s.available.Store(int64(maxPermits))
	return s
}

// Permit is a scoped capability representing one of N concurrency
// slots (§3 In-flight Permit). Release is idempotent so it is safe to
// call from every exit path (success, error, cancellation) without a
// sync.Once at each call site.
type Permit struct {
	s        *Semaphore
	released atomic.Bool
}

// TryAcquire never suspends; it returns nil if no permit is immediately
// available. It also declines to jump ahead of any queued waiter, so a
// burst of try-acquires can never starve a waiter already in line.
func (s *Semaphore) TryAcquire() *Permit {
	if s.hasWaiters.Load() {
		return nil
	}
	for {
		cur := s.available.Load()
		if cur <= 0 {
			return nil
		}
		if s.available.CompareAndSwap(cur, cur-1) {
			return &Permit{s: s}
		}
	}
}

// Acquire suspends the caller until a permit is available, FIFO among
// waiters, or until ctx is cancelled.
func (s *Semaphore) Acquire(ctx context.Context) (*Permit, error) {
	if p := s.TryAcquire(); p != nil {
		return p, nil
	}

	ready := make(chan struct{})
	s.mu.Lock()
	s.waiters = append(s.waiters, ready)
	s.hasWaiters.Store(true)
	s.mu.Unlock()

	select {
	case <-ready:
		return &Permit{s: s}, nil
	case <-ctx.Done():
		s.mu.Lock()
		idx := -1
		for i, w := range s.waiters {
			if w == ready {
				idx = i
				break
			}
		}
		if idx >= 0 {
			// Still queued: remove ourselves, no permit was ever handed to us.
			s.waiters = append(s.waiters[:idx], s.waiters[idx+1:]...)
			if len(s.waiters) == 0 {
				s.hasWaiters.Store(false)
			}
			s.mu.Unlock()
			return nil, ctx.Err()
		}
		s.mu.Unlock()
		// release() already popped and closed ready (under the same
		// mutex, so the close is guaranteed complete by now) before we
		// could cancel: the permit is ours. Hand it straight back to
		// the pool rather than leaking it.
		p := &Permit{s: s}
		p.Release()
		return nil, ctx.Err()
	}
}

// release hands one permit back, waking the earliest waiter if any, so
// that a waiter who arrived earlier is never served later than one who
// arrived after it (FIFO fairness, §4.3 invariants). The wake-up closes
// the waiter's channel while still holding s.mu, so a racing cancellation
// can always tell, by re-acquiring s.mu, whether the grant already landed.
func (s *Semaphore) release() {
	s.mu.Lock()
	if len(s.waiters) > 0 {
		next := s.waiters[0]
		s.waiters = s.waiters[1:]
		if len(s.waiters) == 0 {
			s.hasWaiters.Store(false)
		}
		close(next)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.available.Add(1)
}

// Release returns the permit to the pool. Safe to call multiple times
// and safe to call on a nil Permit (no-op), so deferred release sites
// don't need nil checks on every error path.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	if p.released.CompareAndSwap(false, true) {
		p.s.release()
	}
}

// Outstanding returns the number of permits currently checked out, for
// the "outstanding count is zero at session end" testable property (§8.5).
func (s *Semaphore) Outstanding() int {
	return int(s.max - s.available.Load())
}

// Max returns the configured ceiling.
func (s *Semaphore) Max() int { return int(s.max) }
