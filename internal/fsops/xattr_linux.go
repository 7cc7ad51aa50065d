//go:build linux

package fsops

import (
	"sync/atomic"

	"github.com/pkg/xattr"
	"github.com/ringcp/ringcp/internal/rlog"
	"golang.org/x/sys/unix"
)

// xattrSupported tracks whether this run has seen xattrs work at all;
// once a call reports ENOTSUP/EINVAL/ENOATTR the tracker is flipped off
// so every remaining file skips the syscall instead of paying for a
// guaranteed failure, the same latch shape as backend/local's
// Fs.xattrSupported (set here with a plain Store rather than a
// CompareAndSwap).
var xattrSupportedFlag atomic.Int32

func init() { xattrSupportedFlag.Store(1) }

func xattrIsNotSupported(err error) bool {
	xerr, ok := err.(*xattr.Error)
	if !ok {
		return false
	}
	if xerr.Err == unix.ENOTSUP || xerr.Err == unix.EINVAL || xerr.Err == xattr.ENOATTR {
		return true
	}
	return false
}

// ListXattrs implements xattr_list(path) (§4.2/§4.8 metadata policy)
// reading directly off the source path rather than a ring-managed fd,
// matching xattr.go's o.getXattr preference for xattr.LList/xattr.List
// over an fd-scoped variant.
func ListXattrs(path string, followSymlinks bool) ([]string, error) {
	if xattrSupportedFlag.Load() == 0 {
		return nil, nil
	}
	var (
		list []string
		err  error
	)
	if followSymlinks {
		list, err = xattr.List(path)
	} else {
		list, err = xattr.LList(path)
	}
	if err != nil {
		if xattrIsNotSupported(err) {
			xattrSupportedFlag.Store(0)
			rlog.Debugf(path, "xattrs not supported - disabling: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

// GetXattr reads a single extended attribute's value.
func GetXattr(path, key string, followSymlinks bool) ([]byte, error) {
	if followSymlinks {
		return xattr.Get(path, key)
	}
	return xattr.LGet(path, key)
}

// SetXattr applies a single extended attribute to dst (§4.8: xattrs are
// applied first, before mode/ownership/times, so a later failure on
// those doesn't leave an attribute dangling on a half-finished entry).
func SetXattr(path, key string, value []byte, followSymlinks bool) error {
	if xattrSupportedFlag.Load() == 0 {
		return nil
	}
	var err error
	if followSymlinks {
		err = xattr.Set(path, key, value)
	} else {
		err = xattr.LSet(path, key, value)
	}
	if err != nil && xattrIsNotSupported(err) {
		xattrSupportedFlag.Store(0)
		rlog.Debugf(path, "xattrs not supported - disabling: %v", err)
		return nil
	}
	return err
}
