//go:build linux

// Package walk implements the bounded parallel directory Traversal
// Driver (§4.7, C7): depth-first descent with bounded fan-out,
// directories materialized before their children are scheduled, their
// own metadata deferred until every descendant has completed, and
// filesystem-boundary / include-exclude policy applied at discovery
// time rather than after the fact.
//
// The fan-out shape is grounded on the azcopy common/parallel crawler
// (a bounded worklist drained by a fixed pool of goroutines), but a
// hand-rolled sync.Cond worklist replaces golang.org/x/sync/errgroup's
// SetLimit here: a directory task that lists its own children and
// hands them to g.Go while every concurrency slot is already held by
// other directory tasks blocked the same way can deadlock outright
// (§8's "100,000 entries" scenario is exactly the shape that finds
// it). Pushing onto a plain slice queue is never blocking, so a fixed
// pool of workers draining it can't wedge itself no matter how deep or
// wide the tree gets.
package walk

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ringcp/ringcp/internal/classify"
	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/ringcp/ringcp/internal/rlog"
)

// Entry describes one path handed to VisitFunc. Finalize distinguishes
// the two calls a directory receives: false for materialization
// (before any child is scheduled), true for the deferred metadata pass
// once every descendant has finished (§4.7 — applying a directory's
// mtime before its children are written would be invalidated by the
// writes into it).
type Entry struct {
	SrcPath       string
	DstPath       string
	Meta          fsops.Metadata
	SymlinkTarget string
	Finalize      bool
}

// VisitFunc handles one discovered Entry. Returning an error classified
// as Fatal aborts the whole walk; any other classification is logged
// as a per-entry warning and the walk continues.
type VisitFunc func(ctx context.Context, e Entry) error

// Walker drives §4.7 over a single source/destination root pair.
type Walker struct {
	opts    config.Options
	rootDev uint64
}

func New(opts config.Options) *Walker {
	return &Walker{opts: opts}
}

// walkTask is one queued unit of work: stat, visit, and (for a
// directory) enqueue its children.
type walkTask struct {
	srcPath string
	dstPath string
	parent  *dirNode
}

// dirNode tracks one directory's outstanding children. pending starts
// at the number of children scheduled under it and is decremented as
// each completes (a file immediately, a subdirectory only once its own
// subtree has finalized); hitting zero triggers this directory's own
// deferred Finalize pass, which then reports completion to its parent.
type dirNode struct {
	srcPath string
	dstPath string
	meta    fsops.Metadata
	parent  *dirNode
	pending atomic.Int64
}

// taskQueue is an unbounded worklist drained by a fixed pool of
// workers. push is always non-blocking; pop blocks only while the
// queue is empty and some task is still outstanding somewhere in the
// tree (live > 0).
type taskQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []*walkTask
	live  int
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *taskQueue) push(t *walkTask) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.live++
	q.cond.Signal()
	q.mu.Unlock()
}

func (q *taskQueue) pop() (*walkTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && q.live > 0 {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

func (q *taskQueue) taskDone() {
	q.mu.Lock()
	q.live--
	if q.live == 0 {
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

// walkRun holds the state of one Walk call: its cancellation, its
// first fatal error, and the worklist every worker drains.
type walkRun struct {
	w     *Walker
	ctx   context.Context
	visit VisitFunc
	queue *taskQueue

	cancel  context.CancelFunc
	errOnce sync.Once
	err     error
}

// Walk descends srcRoot, mirroring structure onto dstRoot, invoking
// visit for every discovered entry. Directories are visited (and thus
// created by the caller's visit) before any of their children are
// scheduled, and revisited with Finalize set once their whole subtree
// has completed, satisfying §4.7's ordering invariant.
func (w *Walker) Walk(ctx context.Context, srcRoot, dstRoot string, visit VisitFunc) error {
	// The root argument itself is always followed if it is a symlink,
	// matching ordinary cp-style command-line argument handling; only
	// symlinks discovered while descending are subject to --symlinks.
	rootMeta, err := fsops.StatExtended(srcRoot, true)
	if err != nil {
		return err
	}
	w.rootDev = rootMeta.Device

	if rootMeta.Kind() != fsops.Directory {
		return visit(ctx, Entry{SrcPath: srcRoot, DstPath: dstRoot, Meta: rootMeta})
	}

	if err := visit(ctx, Entry{SrcPath: srcRoot, DstPath: dstRoot, Meta: rootMeta}); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &walkRun{w: w, ctx: runCtx, cancel: cancel, visit: visit, queue: newTaskQueue()}

	root := &dirNode{srcPath: srcRoot, dstPath: dstRoot, meta: rootMeta}
	// The root always lists its own immediate children, even with
	// --recursive unset: a non-recursive run still copies the root's
	// direct entries, it just doesn't descend past them. Every
	// subdirectory found below the root is gated by opts.Recursive in
	// process.
	r.listChildren(root)

	concurrency := w.opts.ResolvedCPUCount() * 4
	if concurrency < 1 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.workerLoop()
		}()
	}
	wg.Wait()

	return r.err
}

func (r *walkRun) workerLoop() {
	for {
		t, ok := r.queue.pop()
		if !ok {
			return
		}
		r.process(t)
		r.queue.taskDone()
	}
}

func (r *walkRun) fail(err error) {
	r.errOnce.Do(func() {
		r.err = err
		r.cancel()
	})
}

// completeChild reports that one of node's children has finished.
// Reaching zero pending children fires node's deferred Finalize pass.
func (r *walkRun) completeChild(node *dirNode) {
	if node == nil {
		return
	}
	if node.pending.Add(-1) == 0 {
		r.finalize(node)
	}
}

// finalize issues node's deferred directory-metadata visit, then
// propagates completion to its own parent, cascading the same way up
// to the root.
func (r *walkRun) finalize(node *dirNode) {
	err := r.visit(r.ctx, Entry{SrcPath: node.srcPath, DstPath: node.dstPath, Meta: node.meta, Finalize: true})
	if err != nil {
		if classify.Is(err, classify.Fatal) {
			r.fail(err)
		} else {
			rlog.Warnf(node.srcPath, "directory metadata not applied: %v", err)
		}
	}
	r.completeChild(node.parent)
}

// listChildren reads node's directory, sets its pending count to the
// number of entries that survive filtering, then enqueues a task for
// each. pending is set before any task is pushed so a child completing
// immediately on another worker can never observe a stale, too-low
// count. An empty or fully-filtered directory finalizes immediately,
// since nothing would ever call completeChild for it otherwise.
func (r *walkRun) listChildren(node *dirNode) {
	entries, err := os.ReadDir(node.srcPath)
	if err != nil {
		rlog.Warnf(node.srcPath, "failed to list directory: %v", err)
		r.finalize(node)
		return
	}

	names := make([]string, 0, len(entries))
	for _, de := range entries {
		if !r.w.excluded(de.Name()) {
			names = append(names, de.Name())
		}
	}

	if len(names) == 0 {
		r.finalize(node)
		return
	}

	node.pending.Store(int64(len(names)))
	for _, name := range names {
		r.queue.push(&walkTask{
			srcPath: filepath.Join(node.srcPath, name),
			dstPath: filepath.Join(node.dstPath, name),
			parent:  node,
		})
	}
}

func (r *walkRun) process(t *walkTask) {
	if r.ctx.Err() != nil {
		r.completeChild(t.parent)
		return
	}

	// Always lstat while descending: a symlink must be seen as a
	// Symlink Path Entry so the copier can decide, per --symlinks,
	// whether to recreate the link or materialize its target.
	meta, err := fsops.StatExtended(t.srcPath, false)
	if err != nil {
		switch {
		case classify.Is(err, classify.Permission):
			rlog.Warnf(t.srcPath, "permission denied, skipping: %v", err)
		case classify.Is(err, classify.NotFound):
			// Raced with a concurrent deletion under the source tree;
			// nothing to copy.
		default:
			r.fail(err)
		}
		r.completeChild(t.parent)
		return
	}

	if r.w.opts.OneFileSystem && meta.Device != r.w.rootDev {
		rlog.Debugf(t.srcPath, "skipping: crosses filesystem boundary (--one-file-system)")
		r.completeChild(t.parent)
		return
	}

	entry := Entry{SrcPath: t.srcPath, DstPath: t.dstPath, Meta: meta}
	if meta.Kind() == fsops.Symlink {
		target, err := fsops.ReadSymlink(t.srcPath)
		if err != nil {
			r.fail(err)
			r.completeChild(t.parent)
			return
		}
		entry.SymlinkTarget = target
	}

	if err := r.visit(r.ctx, entry); err != nil {
		if classify.Is(err, classify.Fatal) {
			r.fail(err)
		} else {
			rlog.Warnf(t.srcPath, "skipping after error: %v", err)
		}
		r.completeChild(t.parent)
		return
	}

	if meta.Kind() != fsops.Directory {
		r.completeChild(t.parent)
		return
	}

	node := &dirNode{srcPath: t.srcPath, dstPath: t.dstPath, meta: meta, parent: t.parent}
	if !r.w.opts.Recursive {
		// --recursive unset: this directory is materialized (and its
		// metadata applied once its — empty — subtree finalizes) but
		// its own children are never listed.
		r.finalize(node)
		return
	}
	r.listChildren(node)
}

// excluded applies the supplemented --filter patterns (SPEC_FULL.md)
// against a bare entry name. Patterns follow filepath.Match glob
// syntax; a pattern prefixed with "!" re-includes what it matches.
// Patterns are checked in order and the last one that matches decides,
// so a later "!" pattern overrides an earlier exclude.
func (w *Walker) excluded(name string) bool {
	skip := false
	for _, pat := range w.opts.Filters {
		negate := strings.HasPrefix(pat, "!")
		p := strings.TrimPrefix(pat, "!")
		if ok, _ := filepath.Match(p, name); ok {
			skip = !negate
		}
	}
	return skip
}
