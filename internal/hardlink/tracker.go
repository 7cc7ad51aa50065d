// Package hardlink implements the hard-link identity tracker of §4.4
// (C4): it collapses parallel discoveries of a hard-linked source into
// one materialization plus subsequent link creations.
//
// The design follows §9's "Hard-link publication races" note: a shared
// map keyed by (device, inode) with per-key Pending/Materialized state
// and a condition notification, sharded to avoid one global lock across
// every worker the way the teacher shards comparable global state
// (backend/local's per-Fs warnedMu guards a small map rather than a
// single process-wide lock).
package hardlink

import (
	"sync"
)

// Key identifies a source inode uniquely within one filesystem.
type Key struct {
	Device uint64
	Inode  uint64
}

// ActionKind is the outcome of Resolve.
type ActionKind int

const (
	// Materialize: caller is the first discoverer; copy the file, then
	// call Publish.
	Materialize ActionKind = iota
	// LinkTo: create a hard link from Existing to the caller's candidate.
	LinkTo
	// AwaitThen: materialization is in progress; call Wait, then treat
	// the result as LinkTo.
	AwaitThen
)

// Action is returned by Resolve.
type Action struct {
	Kind     ActionKind
	Existing string // valid for LinkTo
	wait     *record
}

const shardCount = 64

type record struct {
	mu          sync.Mutex
	materialized bool
	dst         string
	done        chan struct{}
}

// Tracker is shared across all workers; Resolve/Publish are its only
// entry points, each shard independently lockable.
type Tracker struct {
	enabled bool
	shards  [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	records map[Key]*record
}

// New constructs a Tracker. If enabled is false (the preserve-hard-links
// policy is off), Resolve always returns Materialize and Publish is a
// no-op, matching "If the policy disables hard-link preservation the
// tracker is bypassed and each discovery proceeds independently."
func New(enabled bool) *Tracker {
	t := &Tracker{enabled: enabled}
	for i := range t.shards {
		t.shards[i].records = make(map[Key]*record)
	}
	return t
}

func (t *Tracker) shardFor(k Key) *shard {
	h := k.Device*1469598103934665603 ^ k.Inode*1099511628211
	return &t.shards[h%uint64(shardCount)]
}

// Resolve implements the contract of §4.4: exactly one Materialize
// action is ever returned per key; all other discoverers observe
// either AwaitThen or LinkTo.
func (t *Tracker) Resolve(key Key, candidateDst string) Action {
	if !t.enabled {
		return Action{Kind: Materialize}
	}
	sh := t.shardFor(key)
	sh.mu.Lock()
	rec, exists := sh.records[key]
	if !exists {
		rec = &record{done: make(chan struct{})}
		sh.records[key] = rec
		sh.mu.Unlock()
		return Action{Kind: Materialize}
	}
	sh.mu.Unlock()

	rec.mu.Lock()
	if rec.materialized {
		dst := rec.dst
		rec.mu.Unlock()
		return Action{Kind: LinkTo, Existing: dst}
	}
	rec.mu.Unlock()
	return Action{Kind: AwaitThen, wait: rec}
}

// Wait blocks until the materializer for this AwaitThen action has
// published, then returns the materialized destination path.
func (a Action) Wait() string {
	<-a.wait.done
	a.wait.mu.Lock()
	defer a.wait.mu.Unlock()
	return a.wait.dst
}

// Publish records the materialized destination for key and wakes every
// task suspended in Wait. Called exactly once per key, by the task that
// received Materialize.
func (t *Tracker) Publish(key Key, dst string) {
	if !t.enabled {
		return
	}
	sh := t.shardFor(key)
	sh.mu.Lock()
	rec, exists := sh.records[key]
	sh.mu.Unlock()
	if !exists {
		// Defensive: Publish without a prior Resolve is a programmer
		// error, but we still make the destination observable rather
		// than panicking a worker mid-copy.
		rec = &record{done: make(chan struct{})}
		sh.mu.Lock()
		sh.records[key] = rec
		sh.mu.Unlock()
	}
	rec.mu.Lock()
	rec.dst = dst
	rec.materialized = true
	rec.mu.Unlock()
	close(rec.done)
}

// Len reports the number of distinct tracked inodes, bounding memory by
// "the number of distinct inodes with link-count > 1" per §4.4 Eviction.
func (t *Tracker) Len() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mu.Lock()
		n += len(t.shards[i].records)
		t.shards[i].mu.Unlock()
	}
	return n
}
