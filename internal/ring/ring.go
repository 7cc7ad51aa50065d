//go:build linux

// Package ring implements the per-worker async SQ runtime of §4.1 (C1):
// one io_uring ring per worker thread, a user-side staging queue between
// kernel submit calls, and burst completion harvesting that wakes the
// exact task awaiting each operation's user-data tag.
package ring

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/ringcp/ringcp/internal/classify"
	"golang.org/x/sys/unix"
)

// Result is what a completed SQ Operation delivers: the raw return
// value (bytes transferred, or a resulting fd, depending on opcode)
// and a classified error.
type Result struct {
	Res int32 // raw io_uring cqe.res: >=0 on success, -errno on failure
	Err error
}

// Op is a submitted asynchronous request (§3 SQ Operation entity). It
// owns any buffer it references for its lifetime: buffers must remain
// pinned from Submit until the Future resolves (§9 "Buffer ownership
// across submit/complete").
type Op struct {
	Opcode  Opcode
	FD      int32
	Offset  uint64
	Addr    uint64 // buffer pointer or path pointer, opcode-dependent
	Length  uint32
	OpFlags uint32
	// buf pins the Go-side memory referenced by Addr so the garbage
	// collector never reclaims or moves it while the kernel holds it.
	buf any
}

// Future is returned by Submit; it resolves when the matching
// completion is harvested.
type Future struct {
	done chan struct{}
	res  Result
	buf  any // pins the operation's buffer until Wait observes completion
}

// Wait blocks until the operation completes and returns its result.
func (f *Future) Wait() Result {
	<-f.done
	return f.res
}

// Ring owns one submission/completion pair bound to a single worker.
// It is never shared between workers (§5 "the ring is strictly
// per-worker — never shared").
type Ring struct {
	fd int
	sq *sqRing
	cq *cqRing

	mu      sync.Mutex // guards pending + sq staging; touched only by the owning worker
	pending map[uint64]*Future
	nextTag uint64

	queueDepth uint32
}

// New creates a ring with the given queue-depth capacity (§4.1,
// "configured value, 1024-65536, default 4096"). Ring-setup failure is
// fatal at startup per §4.1's failure modes.
func New(queueDepth uint32) (*Ring, error) {
	fd, sq, cq, err := setupRings(queueDepth)
	if err != nil {
		return nil, classify.Wrapf(classify.Fatal, "", err, "io_uring ring setup (depth=%d)", queueDepth)
	}
	return &Ring{
		fd:         fd,
		sq:         sq,
		cq:         cq,
		pending:    make(map[uint64]*Future),
		queueDepth: queueDepth,
	}, nil
}

// Close tears down the ring's mmap'd memory and closes its fd.
func (r *Ring) Close() error {
	r.sq.teardown()
	r.cq.teardown()
	return unix.Close(r.fd)
}

// Stage enqueues one kernel operation into the user-side staging queue
// and returns a Future that resolves on completion. If the ring's
// staging queue is full, Stage returns a classified BackPressure error
// immediately rather than blocking the worker (§4.1 failure modes).
func (r *Ring) Stage(op Op) (*Future, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	localTail := r.sq.localTail
	head := atomic.LoadUint32(r.sq.head)
	if localTail-head >= r.sq.ringEntries {
		return nil, classify.New(classify.BackPressure, "", errRingFull)
	}

	tag := r.nextTag
	r.nextTag++

	idx := localTail & r.sq.ringMask
	e := &r.sq.sqes[idx]
	e.opcode = uint8(op.Opcode)
	e.flags = 0
	e.fd = op.FD
	e.off = op.Offset
	e.addr = op.Addr
	e.length = op.Length
	e.opFlags = op.OpFlags
	e.userData = tag

	r.sq.array[idx] = idx
	localTail++
	r.sq.localTail = localTail

	fut := &Future{done: make(chan struct{}), buf: op.buf}
	r.pending[tag] = fut

	return fut, nil
}

// Submit flushes the staging queue to the kernel via io_uring_enter,
// optionally waiting for at least minComplete completions, and then
// harvests whatever completions are ready.
func (r *Ring) Submit(minComplete uint32) error {
	r.mu.Lock()
	toSubmit := r.sq.localTail - atomic.LoadUint32(r.sq.tail)
	if toSubmit == 0 && minComplete == 0 {
		r.mu.Unlock()
		return nil
	}
	atomic.StoreUint32(r.sq.tail, r.sq.localTail)
	r.mu.Unlock()

	var flags uint32
	if minComplete > 0 {
		flags = EnterGetEvents
	}
	_, err := ioUringEnter(r.fd, toSubmit, minComplete, flags)
	if err != nil {
		return classify.Wrapf(classify.BackPressure, "", err, "io_uring_enter")
	}
	r.harvest()
	return nil
}

// harvest drains completed CQEs and wakes their owning Futures. Each
// completion wakes exactly the task awaiting that operation's tag; no
// spurious wake-ups (§5).
func (r *Ring) harvest() {
	head := atomic.LoadUint32(r.cq.head)
	tail := atomic.LoadUint32(r.cq.tail)

	r.mu.Lock()
	for head != tail {
		idx := head & r.cq.ringMask
		c := r.cq.cqes[idx]
		if fut, ok := r.pending[c.userData]; ok {
			delete(r.pending, c.userData)
			fut.res = Result{Res: c.res}
			if c.res < 0 {
				fut.res.Err = syscall.Errno(-c.res)
			}
			close(fut.done)
		}
		head++
	}
	r.mu.Unlock()
	atomic.StoreUint32(r.cq.head, head)
}

// PendingCount returns the number of operations staged or submitted but
// not yet completed, used by the Worker's loop to decide whether
// io_uring_enter should wait for at least one completion.
func (r *Ring) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// BufAddr returns the address of buf's backing array as the uint64 the
// kernel expects in an SQE's addr field. The caller must keep buf alive
// (e.g. via Op.buf) until the operation's Future resolves.
func BufAddr(buf []byte) uint64 {
	if len(buf) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&buf[0])))
}

var errRingFull = ringFullError{}

type ringFullError struct{}

func (ringFullError) Error() string { return "io_uring submission queue full" }
