//go:build linux

package fsops

import (
	"os"
	"sync"
	"time"

	"github.com/ringcp/ringcp/internal/classify"
	"github.com/ringcp/ringcp/internal/rlog"
	"golang.org/x/sys/unix"
)

// ApplyMetadata implements the §4.8 metadata policy's application
// order: xattrs first, then mode, then ownership, then times last.
// Times are applied last because chmod/chown can themselves bump a
// file's ctime and, on some filesystems, its atime; applying times
// after those calls is the only ordering that leaves the final
// mtime/atime exactly as requested. xattrs go first so a later
// permission failure doesn't leave the entry with attributes but
// without the file mode its producer expected. Skips any step whose
// Policy field is unset. followSymlinks false means: apply to the
// link itself, not its target, matching the source entry's kind.
//
// A chownPath failure due to missing privilege is not propagated as
// an error here: §4.8/§7 class it as a PermissionDrop warning rather
// than a failed copy, since the file content already transferred
// successfully and running unprivileged with --owner/--group set is
// the expected common case, not a fatal condition.
func ApplyMetadata(path string, meta Metadata, xattrKeys map[string][]byte, policy Policy, followSymlinks bool) error {
	if policy.Xattrs {
		for k, v := range xattrKeys {
			if err := SetXattr(path, k, v, followSymlinks); err != nil {
				return classify.New(classOf(underlyingErrno(err)), path, err)
			}
		}
	}
	if policy.Mode {
		if err := chmodPath(path, meta.Mode&0o7777, followSymlinks); err != nil {
			return err
		}
	}
	if policy.Ownership {
		if err := chownPath(path, int(meta.UID), int(meta.GID), followSymlinks); err != nil {
			return err
		}
	}
	if policy.Times {
		if err := setTimes(path, meta.ATime, meta.MTime, followSymlinks); err != nil {
			return err
		}
	}
	if policy.CTimes {
		if err := trySetBTime(path, meta.BTime, meta.HasBTime, followSymlinks); err != nil {
			return err
		}
	}
	return nil
}

func chmodPath(path string, mode uint32, followSymlinks bool) error {
	if !followSymlinks {
		// There is no portable lchmod on Linux; symlink permission bits
		// are ignored by every consumer, so skip rather than error.
		return nil
	}
	if err := os.Chmod(path, os.FileMode(mode)); err != nil {
		return classify.New(classOf(underlyingErrno(err)), path, err)
	}
	return nil
}

// chownPath applies ownership, but a privilege failure (EPERM/EACCES —
// the ordinary outcome of running --owner/--group as a non-root user)
// is logged as a warning and swallowed rather than returned: it must
// not fail a copy whose content already transferred correctly, per the
// PermissionDrop warning class of §4.8/§7.
func chownPath(path string, uid, gid int, followSymlinks bool) error {
	var err error
	if followSymlinks {
		err = os.Chown(path, uid, gid)
	} else {
		err = os.Lchown(path, uid, gid)
	}
	if err == nil {
		return nil
	}
	class := classOf(underlyingErrno(err))
	if class == classify.Permission {
		rlog.Warnf(path, "ownership not preserved (insufficient privilege): %v", err)
		return nil
	}
	return classify.New(class, path, err)
}

func setTimes(path string, atime, mtime time.Time, followSymlinks bool) error {
	ts := [2]unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	flags := 0
	if !followSymlinks {
		flags = unix.AT_SYMLINK_NOFOLLOW
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts[:], flags); err != nil {
		return classify.New(classOf(err), path, err)
	}
	return nil
}

var (
	btimeProbeOnce sync.Once
	btimeSupported bool
)

// probeBTimeSupport mirrors stat_linux.go's probeStatx: a single
// well-defined extension point for a capability that may not exist on
// every kernel/filesystem combination, rather than scattering the
// check inline. Mainline Linux filesystems (ext4, xfs, btrfs) write
// btime once at inode creation and expose no VFS call to change it
// afterward, so there is nothing to probe for today.
func probeBTimeSupport() {
	btimeSupported = false
}

// trySetBTime attempts to preserve a birth/creation time, the
// supplemented --crtimes flag (§6, §4.8). There is currently no Linux
// syscall that sets btime after a file already exists, so this is a
// documented no-op everywhere until one of the mainline filesystems
// grows the facility; §4.8 explicitly permits a silent skip on
// filesystems that don't support a preservation category, and birth
// time is that case on every filesystem this package runs on.
func trySetBTime(path string, btime time.Time, hasBTime, followSymlinks bool) error {
	if !hasBTime {
		return nil
	}
	btimeProbeOnce.Do(probeBTimeSupport)
	if !btimeSupported {
		rlog.Debugf(path, "birth time preservation requested but unsupported on this filesystem, skipping")
		return nil
	}
	return nil
}
