//go:build linux

package copier

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/ringcp/ringcp/internal/classify"
	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/ringcp/ringcp/internal/hardlink"
	"github.com/ringcp/ringcp/internal/metadata"
	"github.com/ringcp/ringcp/internal/ring"
	"github.com/ringcp/ringcp/internal/rlog"
)

// Copier drives the state machine of §4.6 for every Item kind.
type Copier struct {
	worker  *ring.Worker
	tracker *hardlink.Tracker
	opts    config.Options
}

func New(worker *ring.Worker, tracker *hardlink.Tracker, opts config.Options) *Copier {
	return &Copier{worker: worker, tracker: tracker, opts: opts}
}

// Copy implements §4.6 end to end for one Item: dispatch by kind,
// hard-link short-circuit, data transfer, metadata application.
// Directory metadata is applied separately by FinalizeDirectory once
// the whole subtree underneath has been written (§4.7): applying a
// directory's mtime here, before its children exist, would be
// invalidated by the writes the traversal driver schedules next.
func (c *Copier) Copy(ctx context.Context, it Item) (Outcome, error) {
	if c.opts.DryRun {
		rlog.Logf(it.SrcPath, "would copy -> %s", it.DstPath)
		return Outcome{Skipped: true}, nil
	}

	kind := it.Meta.Kind()

	if c.opts.HardLinks && it.Meta.NLink > 1 && kind == fsops.Regular {
		action := c.tracker.Resolve(it.HardlinkKey, it.DstPath)
		switch action.Kind {
		case hardlink.LinkTo:
			return c.linkToExisting(action.Existing, it)
		case hardlink.AwaitThen:
			existing := action.Wait()
			if existing == "" {
				return Outcome{}, classify.New(classify.Fatal, it.SrcPath, errHardlinkSourceFailed)
			}
			return c.linkToExisting(existing, it)
		case hardlink.Materialize:
			out, err := c.copyOne(ctx, it, kind)
			if err != nil {
				// Publish unconditionally: every AwaitThen waiter on this
				// key blocks on Publish being called exactly once, and a
				// skipped Publish here would hang them forever. An empty
				// destination tells Wait's caller the materialization
				// failed instead of handing it a path with nothing there.
				c.tracker.Publish(it.HardlinkKey, "")
				return out, err
			}
			c.tracker.Publish(it.HardlinkKey, it.DstPath)
			return out, nil
		}
	}

	return c.copyOne(ctx, it, kind)
}

func (c *Copier) linkToExisting(existing string, it Item) (Outcome, error) {
	if err := fsops.CreateHardlink(existing, it.DstPath); err != nil {
		return Outcome{}, err
	}
	return Outcome{Hardlinked: true}, nil
}

var errHardlinkSourceFailed = hardlinkSourceFailedError{}

type hardlinkSourceFailedError struct{}

func (hardlinkSourceFailedError) Error() string {
	return "hard-link source copy failed, nothing to link to"
}

// copyOne dispatches one Item by kind and, for everything except
// directories, applies its metadata immediately. A directory's own
// metadata is deliberately left for FinalizeDirectory.
func (c *Copier) copyOne(ctx context.Context, it Item, kind fsops.Kind) (Outcome, error) {
	var (
		out Outcome
		err error
	)
	switch kind {
	case fsops.Directory:
		err = c.materializeDirectory(it)
	case fsops.Symlink:
		err = c.materializeSymlink(it)
	case fsops.FIFO, fsops.Socket, fsops.BlockDevice, fsops.CharDevice:
		err = c.materializeSpecial(it, kind)
	default:
		out, err = c.copyRegularFile(ctx, it)
		if err == nil && c.opts.Checksum {
			err = verifyContents(it.SrcPath, it.DstPath)
		}
	}
	if err != nil {
		return out, err
	}
	if kind == fsops.Directory {
		return out, nil
	}
	if err := c.applyMetadata(it, kind); err != nil {
		return out, err
	}
	return out, nil
}

// FinalizeDirectory applies a directory's own metadata (mode, owner,
// times, xattrs) once the traversal driver reports every descendant
// underneath it has completed.
func (c *Copier) FinalizeDirectory(it Item) error {
	return c.applyMetadata(it, fsops.Directory)
}

func (c *Copier) materializeDirectory(it Item) error {
	mode := uint32(0o755)
	if c.opts.Permissions {
		mode = it.Meta.Mode & 0o7777
	}
	if err := os.Mkdir(it.DstPath, os.FileMode(mode)); err != nil && !os.IsExist(err) {
		return fsops.ClassifyPathError(it.DstPath, err)
	}
	return nil
}

func (c *Copier) materializeSymlink(it Item) error {
	if !c.opts.Symlinks {
		return nil
	}
	if c.opts.Overwrite {
		_ = os.Remove(it.DstPath)
	}
	return fsops.CreateSymlink(it.SymlinkTarget, it.DstPath)
}

// materializeSpecial recreates a FIFO, socket, or device node with
// mknod. FIFOs and sockets are always recreated as empty nodes; block
// and char device nodes only with §6's --devices flag, recreated by
// major/minor, never copied byte for byte (there are no bytes to copy).
func (c *Copier) materializeSpecial(it Item, kind fsops.Kind) error {
	if (kind == fsops.BlockDevice || kind == fsops.CharDevice) && !c.opts.Devices {
		rlog.Warnf(it.SrcPath, "skipping device node (--devices not set)")
		return nil
	}
	if c.opts.Overwrite {
		_ = os.Remove(it.DstPath)
	}
	return mknod(it.DstPath, it.Meta, kind)
}

// copyRegularFile runs the transfer-loop portion of §4.6: open/create,
// preallocate, advise, transfer, post-copy advise.
func (c *Copier) copyRegularFile(ctx context.Context, it Item) (Outcome, error) {
	if it.Meta.Size == 0 {
		f, err := openDestination(it.DstPath, it.Meta, c.opts)
		if err != nil {
			return Outcome{}, err
		}
		_ = f.Close()
		return Outcome{Strategy: StrategyBuffered, BytesCopied: 0}, nil
	}

	srcMeta, err := fsops.StatExtended(it.SrcPath, false)
	if err != nil {
		return Outcome{}, err
	}
	dstDevMeta, statErr := fsops.StatExtended(dirOf(it.DstPath), false)
	dstDev := srcMeta.Device
	if statErr == nil {
		dstDev = dstDevMeta.Device
	}

	candidates := PlanStrategy(srcMeta.Device, dstDev, c.opts.CopyMethod)

	var lastErr error
	for _, strat := range candidates {
		select {
		case <-ctx.Done():
			return Outcome{}, classify.New(classify.Cancelled, it.SrcPath, ctx.Err())
		default:
		}

		switch strat {
		case StrategyReflink:
			if c.opts.Overwrite {
				_ = os.Remove(it.DstPath)
			}
			if err := fsops.Reflink(it.SrcPath, it.DstPath); err != nil {
				if classify.Is(err, classify.Unsupported) {
					lastErr = err
					continue
				}
				return Outcome{}, err
			}
			return Outcome{Strategy: StrategyReflink, BytesCopied: it.Meta.Size}, nil

		case StrategyRangeCopy:
			n, err := c.transferRangeCopy(it)
			if err != nil {
				if classify.Is(err, classify.Unsupported) {
					lastErr = err
					continue
				}
				return Outcome{}, err
			}
			return Outcome{Strategy: StrategyRangeCopy, BytesCopied: n}, nil

		case StrategyBuffered:
			n, err := c.transferBuffered(ctx, it)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Strategy: StrategyBuffered, BytesCopied: n}, nil
		}
	}
	if lastErr != nil {
		return Outcome{}, lastErr
	}
	return Outcome{}, classify.New(classify.Fatal, it.SrcPath, errors.New("no transfer strategy available"))
}

func openDestination(path string, meta fsops.Metadata, opts config.Options) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if opts.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	mode := os.FileMode(0o644)
	if opts.Permissions {
		mode = os.FileMode(meta.Mode & 0o7777)
	}
	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return nil, fsops.ClassifyPathError(path, err)
	}
	return f, nil
}

func (c *Copier) applyMetadata(it Item, kind fsops.Kind) error {
	return metadata.Apply(it.SrcPath, it.DstPath, it.Meta, c.opts, kind)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			if i == 0 {
				return "/"
			}
			return path[:i]
		}
	}
	return "."
}
