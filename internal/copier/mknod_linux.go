//go:build linux

package copier

import (
	"github.com/ringcp/ringcp/internal/classify"
	"github.com/ringcp/ringcp/internal/fsops"
	"golang.org/x/sys/unix"
)

// mknod recreates a FIFO, socket, or device node by type and, for
// block/char devices, major/minor number (§6 --devices). Regular
// files and directories never reach this path.
func mknod(path string, meta fsops.Metadata, kind fsops.Kind) error {
	var mode uint32
	switch kind {
	case fsops.FIFO:
		mode = unix.S_IFIFO | (meta.Mode & 0o7777)
	case fsops.Socket:
		mode = unix.S_IFSOCK | (meta.Mode & 0o7777)
	case fsops.BlockDevice:
		mode = unix.S_IFBLK | (meta.Mode & 0o7777)
	case fsops.CharDevice:
		mode = unix.S_IFCHR | (meta.Mode & 0o7777)
	default:
		return classify.New(classify.Unsupported, path, errNotSpecial)
	}
	dev := int(unix.Mkdev(meta.RdevMajor, meta.RdevMinor))
	if err := unix.Mknod(path, mode, dev); err != nil {
		return classify.New(classOfMknod(err), path, err)
	}
	return nil
}

func classOfMknod(err error) classify.Class {
	switch err {
	case unix.EPERM, unix.EACCES:
		return classify.Permission
	case unix.EEXIST:
		return classify.Exists
	case unix.EOPNOTSUPP:
		return classify.Unsupported
	default:
		return classify.Fatal
	}
}

var errNotSpecial = notSpecialError{}

type notSpecialError struct{}

func (notSpecialError) Error() string { return "not a FIFO/socket/device kind" }
