//go:build linux

package fsops

import (
	"sync"
	"time"

	"github.com/ringcp/ringcp/internal/classify"
	"golang.org/x/sys/unix"
)

var (
	statxOnce      sync.Once
	statxAvailable bool
)

func probeStatx() {
	var stat unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, ".", 0, unix.STATX_ALL, &stat)
	statxAvailable = err != unix.ENOSYS
}

// StatExtended implements stat_extended(path) (§4.2): nanosecond
// timestamps, device id, inode, mode, owner, preferring statx() (Linux
// 4.11+) the same way readMetadataFromFileStatx does, with a graceful
// fallback to fstatat() (2.6.16+) identical in spirit to
// readMetadataFromFileFstatat.
func StatExtended(path string, followSymlinks bool) (Metadata, error) {
	statxOnce.Do(probeStatx)
	if statxAvailable {
		return statExtendedStatx(path, followSymlinks)
	}
	return statExtendedFstatat(path, followSymlinks)
}

func symlinkFlag(followSymlinks bool) int {
	if followSymlinks {
		return 0
	}
	return unix.AT_SYMLINK_NOFOLLOW
}

func statExtendedStatx(path string, followSymlinks bool) (Metadata, error) {
	var stat unix.Statx_t
	mask := uint32(unix.STATX_TYPE | unix.STATX_MODE | unix.STATX_UID | unix.STATX_GID |
		unix.STATX_ATIME | unix.STATX_MTIME | unix.STATX_CTIME | unix.STATX_BTIME | unix.STATX_SIZE | unix.STATX_NLINK)
	err := unix.Statx(unix.AT_FDCWD, path, symlinkFlag(followSymlinks), mask, &stat)
	if err != nil {
		return Metadata{}, classify.New(classOf(err), path, err)
	}
	m := Metadata{
		Mode:      uint32(stat.Mode),
		UID:       stat.Uid,
		GID:       stat.Gid,
		Size:      int64(stat.Size),
		Device:    uint64(stat.Dev_major)<<32 | uint64(stat.Dev_minor),
		Inode:     stat.Ino,
		NLink:     uint64(stat.Nlink),
		RdevMajor: stat.Rdev_major,
		RdevMinor: stat.Rdev_minor,
		ATime:     time.Unix(stat.Atime.Sec, int64(stat.Atime.Nsec)),
		MTime:     time.Unix(stat.Mtime.Sec, int64(stat.Mtime.Nsec)),
		CTime:     time.Unix(stat.Ctime.Sec, int64(stat.Ctime.Nsec)),
	}
	if stat.Mask&unix.STATX_BTIME != 0 {
		m.BTime = time.Unix(stat.Btime.Sec, int64(stat.Btime.Nsec))
		m.HasBTime = true
	}
	return m, nil
}

func statExtendedFstatat(path string, followSymlinks bool) (Metadata, error) {
	var stat unix.Stat_t
	err := unix.Fstatat(unix.AT_FDCWD, path, &stat, symlinkFlag(followSymlinks))
	if err != nil {
		return Metadata{}, classify.New(classOf(err), path, err)
	}
	return Metadata{
		Mode:   stat.Mode,
		UID:    stat.Uid,
		GID:    stat.Gid,
		Size:   stat.Size,
		Device: uint64(stat.Dev),
		Inode:  stat.Ino,
		NLink:  uint64(stat.Nlink),
		ATime:  time.Unix(stat.Atim.Sec, stat.Atim.Nsec),
		MTime:  time.Unix(stat.Mtim.Sec, stat.Mtim.Nsec),
		CTime:  time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec),
	}, nil
}

// classOf maps a syscall errno to the §7 taxonomy. Several Linux errno
// values alias the same number (ENOTSUP == EOPNOTSUPP on most arches),
// so this is a tagless switch of equality tests rather than a switch
// on the errno value, avoiding duplicate-case errors across
// architectures.
func classOf(err error) classify.Class {
	switch {
	case err == unix.ENOENT:
		return classify.NotFound
	case err == unix.EACCES || err == unix.EPERM:
		return classify.Permission
	case err == unix.EEXIST:
		return classify.Exists
	case err == unix.EOPNOTSUPP || err == unix.ENOTTY || err == unix.EXDEV || err == unix.ENOSYS:
		return classify.Unsupported
	case err == unix.EMFILE || err == unix.ENFILE || err == unix.ENOSPC || err == unix.EAGAIN:
		return classify.BackPressure
	default:
		return classify.Fatal
	}
}

// ClassifyPathError classifies an OS-level path error (open, create,
// stat) into the §7 taxonomy using the same classOf/underlyingErrno
// pair the data-path operations in this package use, so callers in
// other packages (the copy state machine) don't hand-roll Fatal for
// every open/read/write failure and abort sibling traversal on a
// plain ENOENT or EEXIST.
func ClassifyPathError(path string, err error) error {
	return classify.New(classOf(underlyingErrno(err)), path, err)
}

// ClassifyErrno classifies a raw errno, such as the completion result
// of an async SQ read/write, the same way ClassifyPathError classifies
// a wrapped *os.PathError.
func ClassifyErrno(path string, errno error) error {
	return classify.New(classOf(errno), path, errno)
}
