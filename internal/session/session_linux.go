//go:build linux

// Package session wires the full pipeline of §4 together for one
// source/destination run: the async SQ runtime (C1), the in-flight
// scheduler (C5), the hard-link tracker (C4), the copy state machine
// (C6), and the traversal driver (C7), emitting the Discovered/
// Completed/Warning/Error/Summary events of §7's user-visible
// behavior.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/ringcp/ringcp/internal/classify"
	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/copier"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/ringcp/ringcp/internal/hardlink"
	"github.com/ringcp/ringcp/internal/ring"
	"github.com/ringcp/ringcp/internal/rlog"
	"github.com/ringcp/ringcp/internal/scheduler"
	"github.com/ringcp/ringcp/internal/walk"
)

// Session runs one Source -> Destination copy to completion.
type Session struct {
	id      string
	opts    config.Options
	stats   *Stats
	runtime *ring.Runtime
	sched   *scheduler.Scheduler
	tracker *hardlink.Tracker
}

func clampFloor(n int) int {
	if f := n / 16; f > 1 {
		return f
	}
	return 1
}

// New constructs a Session, standing up the async SQ runtime (one
// ring per worker, §5) sized to opts.ResolvedCPUCount. Ring-setup
// failure here is fatal, per §4.1.
func New(opts config.Options) (*Session, error) {
	opts.Clamp()

	rt, err := ring.NewRuntime(opts.ResolvedCPUCount(), uint32(opts.QueueDepth))
	if err != nil {
		return nil, classify.Wrapf(classify.Fatal, "", err, "starting async SQ runtime")
	}

	return &Session{
		id:      uuid.NewString(),
		opts:    opts,
		stats:   NewStats(),
		runtime: rt,
		sched:   scheduler.New(opts.MaxFilesInFlight, clampFloor(opts.MaxFilesInFlight)),
		tracker: hardlink.New(opts.HardLinks),
	}, nil
}

// Close tears down the async SQ runtime.
func (s *Session) Close() error {
	return s.runtime.Close()
}

// Run copies srcRoot onto dstRoot (§4.7/§4.6 end to end) and returns
// once every discovered entry has been processed or ctx is cancelled.
func (s *Session) Run(ctx context.Context, srcRoot, dstRoot string) error {
	rlog.Logf(nil, "session %s: copying %s -> %s", s.id, srcRoot, dstRoot)

	w := walk.New(s.opts)

	var (
		merrMu  sync.Mutex
		merr    *multierror.Error
		aborted atomic.Bool
	)

	walkErr := w.Walk(ctx, srcRoot, dstRoot, func(ctx context.Context, e walk.Entry) error {
		if aborted.Load() {
			return nil
		}

		permit, aerr := s.sched.Admit(ctx)
		if aerr != nil {
			return classify.New(classify.Cancelled, e.SrcPath, aerr)
		}
		defer permit.Release()

		rw := s.runtime.Next()
		c := copier.New(rw, s.tracker, s.opts)

		item := copier.Item{
			SrcPath:       e.SrcPath,
			DstPath:       e.DstPath,
			Meta:          e.Meta,
			SymlinkTarget: e.SymlinkTarget,
			HardlinkKey:   hardlink.Key{Device: e.Meta.Device, Inode: e.Meta.Inode},
		}

		if e.Finalize {
			// Deferred directory-metadata pass (§4.7): the subtree under
			// this directory is fully written, so it's now safe to apply
			// its own mode/owner/times without a later write invalidating
			// them. Never fatal: the directory and everything in it
			// already copied successfully.
			if ferr := c.FinalizeDirectory(item); ferr != nil {
				rlog.Warnf(e.SrcPath, "directory metadata not applied: %v", ferr)
				s.stats.AddWarning()
			}
			return nil
		}

		rlog.Debugf(e.SrcPath, "discovered")
		out, cerr := c.Copy(ctx, item)
		if cerr != nil {
			s.stats.AddError()
			if classify.Of(cerr) == classify.BackPressure {
				if s.opts.NoAdaptiveConcurrency {
					// Strict mode (§4.5 Scenario E): back-pressure is
					// never absorbed by adapting the ceiling, it aborts
					// the run instead.
					aborted.Store(true)
					merrMu.Lock()
					merr = multierror.Append(merr, cerr)
					merrMu.Unlock()
					return cerr
				}
				s.sched.ReportBackPressure()
			}
			if classify.Is(cerr, classify.Fatal) {
				aborted.Store(true)
				merrMu.Lock()
				merr = multierror.Append(merr, cerr)
				merrMu.Unlock()
				return cerr
			}
			rlog.Warnf(e.SrcPath, "error: %v", cerr)
			s.stats.AddWarning()
			return nil
		}

		switch {
		case out.Skipped:
			s.stats.AddSkipped()
		case out.Hardlinked:
			s.stats.AddHardlink()
			rlog.Logf(e.SrcPath, "hard-linked -> %s", e.DstPath)
		case e.Meta.Kind() == fsops.Directory:
			s.stats.AddDir()
		default:
			s.stats.AddTransfer(out.Strategy.String())
			s.stats.AddBytes(out.BytesCopied)
			rlog.Logf(e.SrcPath, "completed (%s, %d bytes)", out.Strategy, out.BytesCopied)
		}
		return nil
	})

	if walkErr != nil {
		merrMu.Lock()
		merr = multierror.Append(merr, walkErr)
		merrMu.Unlock()
	}

	merrMu.Lock()
	defer merrMu.Unlock()
	return merr.ErrorOrNil()
}

// Summary returns the final human-readable report (§7).
func (s *Session) Summary() string {
	return s.stats.String()
}

// ID returns the session's unique identifier, included in verbose logs
// so concurrent runs against the same destination can be told apart.
func (s *Session) ID() string { return s.id }
