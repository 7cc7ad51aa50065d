// Package scheduler implements the In-flight Scheduler (§4.5, C5):
// adaptive admission control over how many Work Items may be active at
// once, halving the concurrency ceiling on sustained back-pressure and
// gradually restoring it once the system recovers — the same
// attack/decay shape as lib/pacer's Default calculator, but driven by
// github.com/jpillora/backoff's exponential state machine instead of
// pacer's hand-rolled State/Calculate arithmetic, since this component
// only ever moves in one direction per signal (halve or step-restore)
// rather than pacer's full retry-with-jitter curve.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/ringcp/ringcp/internal/asyncsem"
	"github.com/ringcp/ringcp/internal/rlog"
)

// Scheduler bounds the number of concurrently in-flight Work Items
// (§4.5). It composes over an asyncsem.Semaphore — whose own ceiling
// is fixed for its lifetime by design (§4.3) — rather than mutating
// it: to shrink effective capacity the Scheduler quietly checks out
// "phantom" permits of its own and holds onto them; to grow back it
// releases those phantoms. The real pool of permits the semaphore
// hands out to callers never changes size.
type Scheduler struct {
	sem     *asyncsem.Semaphore
	floor   int
	max     int
	boff    *backoff.Backoff

	mu       sync.Mutex
	ceiling  int
	phantoms []*asyncsem.Permit

	restoreTimer *time.Timer
}

// New creates a Scheduler whose ceiling starts at max in-flight items
// and never restores below floor (§4.5: "the ceiling never drops below
// a configured minimum so forward progress is always possible").
func New(max, floor int) *Scheduler {
	if floor < 1 {
		floor = 1
	}
	if max < floor {
		max = floor
	}
	return &Scheduler{
		sem:     asyncsem.New(max),
		ceiling: max,
		floor:   floor,
		max:     max,
		boff: &backoff.Backoff{
			Min:    50 * time.Millisecond,
			Max:    2 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}
}

// Admit blocks until a Work Item slot is available or ctx is cancelled.
func (s *Scheduler) Admit(ctx context.Context) (*asyncsem.Permit, error) {
	return s.sem.Acquire(ctx)
}

// TryAdmit is the non-blocking counterpart of Admit: it returns nil
// instead of waiting when no slot is free.
func (s *Scheduler) TryAdmit() *asyncsem.Permit {
	return s.sem.TryAcquire()
}

// ReportBackPressure halves the in-flight ceiling (§4.5's halving
// response) and schedules a gradual restoration once the backoff
// interval elapses. Calling it repeatedly while already degraded keeps
// extending the next restoration delay via the backoff's own Duration
// progression, so sustained pressure never races its own recovery.
func (s *Scheduler) ReportBackPressure() {
	s.mu.Lock()
	newCeiling := s.ceiling / 2
	if newCeiling < s.floor {
		newCeiling = s.floor
	}
	if newCeiling == s.ceiling {
		s.mu.Unlock()
		return
	}
	delta := s.ceiling - newCeiling
	s.ceiling = newCeiling
	s.mu.Unlock()

	rlog.Debugf(nil, "scheduler: back-pressure observed, ceiling now %d/%d", newCeiling, s.max)
	go s.acquirePhantoms(delta)

	delay := s.boff.Duration()
	s.mu.Lock()
	if s.restoreTimer != nil {
		s.restoreTimer.Stop()
	}
	s.restoreTimer = time.AfterFunc(delay, s.restoreStep)
	s.mu.Unlock()
}

// acquirePhantoms checks out n permits and parks them until a restore
// step gives them back, suppressing n slots of real capacity. It
// blocks on the real semaphore (currently in-flight work finishing up
// frees the permits it needs), never on s.mu.
func (s *Scheduler) acquirePhantoms(n int) {
	for i := 0; i < n; i++ {
		p, err := s.sem.Acquire(context.Background())
		if err != nil {
			return
		}
		s.mu.Lock()
		s.phantoms = append(s.phantoms, p)
		s.mu.Unlock()
	}
}

// restoreStep grows the ceiling by one step, releasing that many
// phantom permits back to the real pool, and — if still below max —
// arms another restoration after a shorter interval. This is the decay
// half of the attack/decay shape: gradual, not an immediate jump back
// to max, so a still-recovering backend isn't hit with a fresh burst.
func (s *Scheduler) restoreStep() {
	s.mu.Lock()
	if s.ceiling >= s.max {
		s.boff.Reset()
		s.mu.Unlock()
		return
	}
	step := s.floor
	if step < 1 {
		step = 1
	}
	if step > len(s.phantoms) {
		step = len(s.phantoms)
	}
	released := s.phantoms[:step]
	s.phantoms = s.phantoms[step:]
	s.ceiling += step
	if s.ceiling > s.max {
		s.ceiling = s.max
	}
	done := s.ceiling >= s.max
	ceiling := s.ceiling
	s.mu.Unlock()

	for _, p := range released {
		p.Release()
	}
	rlog.Debugf(nil, "scheduler: restoring, ceiling now %d/%d", ceiling, s.max)

	if !done {
		time.AfterFunc(s.boff.Duration()/2, s.restoreStep)
	} else {
		s.boff.Reset()
	}
}

// Ceiling reports the current in-flight admission limit.
func (s *Scheduler) Ceiling() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ceiling
}

// Outstanding reports the number of currently admitted Work Items,
// including phantom holds the scheduler is using to suppress capacity.
func (s *Scheduler) Outstanding() int {
	return s.sem.Outstanding()
}
