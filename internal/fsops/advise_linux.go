//go:build linux

package fsops

import (
	"os"

	"github.com/ringcp/ringcp/internal/classify"
	"golang.org/x/sys/unix"
)

func adviceFor(h Hint) int {
	switch h {
	case Sequential:
		return unix.FADV_SEQUENTIAL
	case Random:
		return unix.FADV_RANDOM
	case WillNeed:
		return unix.FADV_WILLNEED
	case DontNeed:
		return unix.FADV_DONTNEED
	case NoReuse:
		return unix.FADV_NOREUSE
	default:
		return unix.FADV_NORMAL
	}
}

// Advise implements advise(fd, offset, len, hint) (§4.2): posix_fadvise
// hints bracketing the transfer loop (SEQUENTIAL/WILLNEED going in,
// DONTNEED coming out), the same pairing fadvise_unix.go applies around
// a local-to-local copy. Like Preallocate, failures here are hints, not
// errors — an unsupported or ignored advice call never aborts a copy.
func Advise(f *os.File, offset, length int64, hint Hint) error {
	err := unix.Fadvise(int(f.Fd()), offset, length, adviceFor(hint))
	if err == nil || err == unix.ENOSYS || err == unix.EOPNOTSUPP || err == unix.ENOTTY {
		return nil
	}
	return classify.New(classOf(err), f.Name(), err)
}
