//go:build linux

package fsops

import (
	"os"

	"github.com/ringcp/ringcp/internal/classify"
	"golang.org/x/sys/unix"
)

// ficlone is the FICLONE ioctl number (include/uapi/linux/fs.h):
// _IOW(0x94, 9, int), computed the same way unix.IoctlFileClone does
// internally on newer x/sys releases; spelled out here so the call
// compiles against any x/sys/unix version the teacher's go.mod pins.
const ficlone = 0x40049409

// Reflink attempts a copy-on-write clone of src onto dst (§4.2
// reflink()). It returns a classified Unsupported error — distinct from
// Permission — when the destination filesystem cannot clone, without
// any side effect on dst, per §9's "Reflink/unsupported signaling": a
// caller must be able to tell "can't do this here" from "permission
// denied" so it knows whether falling back is safe.
func Reflink(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return classify.New(classOf(underlyingErrno(err)), srcPath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREAT|os.O_EXCL, 0o600)
	if err != nil {
		return classify.New(classOf(underlyingErrno(err)), dstPath, err)
	}
	defer dst.Close()

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, dst.Fd(), uintptr(ficlone), src.Fd())
	if errno == 0 {
		return nil
	}
	// ENOTTY: dst's filesystem doesn't implement any ioctl at all.
	// EOPNOTSUPP: filesystem implements ioctls but not cloning.
	// EXDEV: src and dst are on different filesystems.
	// None of these are "permission denied" — surface Unsupported so
	// the copy state machine (C6) falls through to range-copy/buffered
	// without treating this as a fatal per-file error.
	_ = os.Remove(dstPath)
	return classify.New(classOf(errno), dstPath, errno)
}

func underlyingErrno(err error) error {
	var errno unix.Errno
	if pe, ok := err.(*os.PathError); ok {
		if e, ok := pe.Err.(unix.Errno); ok {
			return e
		}
	}
	return errno
}
