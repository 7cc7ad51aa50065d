//go:build linux

package fsops

import (
	"os"

	"github.com/ringcp/ringcp/internal/classify"
	"golang.org/x/sys/unix"
)

// CopyRange implements copy_range() (§4.2 / §4.6 transfer strategy 2):
// a single copy_file_range(2) call asking the kernel to move data
// between two file descriptors on the same filesystem without crossing
// into userspace, mirroring how backend/local prefers this path over a
// manual read/write loop whenever src and dst share a device. A zero
// return with a nil error means the call made no progress (e.g. dst
// already at EOF semantics for sparse regions) and the caller should
// fall back to the buffered pipeline.
func CopyRange(dst, src *os.File, dstOffset, srcOffset int64, length int) (int, error) {
	so := srcOffset
	do := dstOffset
	n, err := unix.CopyFileRange(int(src.Fd()), &so, int(dst.Fd()), &do, length, 0)
	if err != nil {
		if err == unix.EXDEV || err == unix.ENOSYS || err == unix.EOPNOTSUPP || err == unix.EINVAL {
			return 0, classify.New(classify.Unsupported, dst.Name(), err)
		}
		return 0, classify.New(classOf(err), dst.Name(), err)
	}
	return n, nil
}
