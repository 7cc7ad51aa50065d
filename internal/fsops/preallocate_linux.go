//go:build linux

package fsops

import (
	"os"
	"sync/atomic"

	"github.com/ringcp/ringcp/internal/classify"
	"github.com/ringcp/ringcp/internal/rlog"
	"golang.org/x/sys/unix"
)

// fallocFlags is the same downgrade ladder preallocate_unix.go uses:
// try reserving space normally first; some filesystems (ZFS, per
// rclone#3066) only accept FALLOC_FL_KEEP_SIZE combined with
// FALLOC_FL_PUNCH_HOLE, and some accept neither, in which case
// Preallocate degrades to a harmless no-op.
var (
	fallocFlags = [...]uint32{
		unix.FALLOC_FL_KEEP_SIZE,
		unix.FALLOC_FL_KEEP_SIZE | unix.FALLOC_FL_PUNCH_HOLE,
	}
	fallocFlagsIndex atomic.Int32
)

// Preallocate implements preallocate(fd, offset, len) (§4.2 / §4.6 step
// 5): reserves space ahead of the transfer loop so the filesystem can
// lay out a contiguous extent instead of growing the file one write at
// a time. Unsupported is swallowed here, not returned, because callers
// treat preallocation purely as a performance hint (§4.6: "ignore
// unsupported").
func Preallocate(f *os.File, offset, size int64) error {
	if size <= 0 {
		return nil
	}
	idx := fallocFlagsIndex.Load()
	for {
		if idx >= int32(len(fallocFlags)) {
			return nil
		}
		err := unix.Fallocate(int(f.Fd()), fallocFlags[idx], offset, size)
		if err == nil {
			return nil
		}
		if err == unix.ENOTSUP || err == unix.EOPNOTSUPP {
			idx++
			fallocFlagsIndex.Store(idx)
			rlog.Debugf(f.Name(), "preallocate: flags combination %d/%d unsupported: %v", idx, len(fallocFlags), err)
			continue
		}
		if err == unix.ENOSPC {
			return classify.New(classify.IntegrityFailure, f.Name(), err)
		}
		return classify.New(classOf(err), f.Name(), err)
	}
}
