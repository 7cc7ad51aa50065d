//go:build linux

package fsops

import (
	"github.com/ringcp/ringcp/internal/classify"
	"golang.org/x/sys/unix"
)

// Mkdirat implements mkdir_at(parent_fd, name, mode) (§4.2/§4.6 bounded
// traversal: "directories are created before their children are
// scheduled"). Exists is swallowed per §4.6's merge-into-existing-
// directory edge case; any other failure is classified and returned.
func Mkdirat(dirfd int, name string, mode uint32) error {
	err := unix.Mkdirat(dirfd, name, mode)
	if err == nil || err == unix.EEXIST {
		return nil
	}
	return classify.New(classOf(err), name, err)
}

// Openat implements openat(parent_fd, name, flags, mode) so directory
// traversal and file creation never depend on a process-wide current
// working directory, the same dirfd-relative discipline
// readMetadataFromFile and the hardlink-aware Object.Open path use
// internally via os.OpenFile(path, ...): here the path is resolved
// relative to an explicit parent descriptor instead.
func Openat(dirfd int, name string, flags int, mode uint32) (int, error) {
	fd, err := unix.Openat(dirfd, name, flags, mode)
	if err != nil {
		return -1, classify.New(classOf(err), name, err)
	}
	return fd, nil
}
