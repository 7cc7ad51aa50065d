//go:build linux

package fsops

import (
	"os"

	"github.com/ringcp/ringcp/internal/classify"
)

// CreateHardlink implements link() for the second and subsequent
// discoverers of a (device, inode) identity (§4.4 / the hardlink
// Tracker's LinkTo action): an os.Link against the path the Tracker
// published as already-materialized, rather than copying the file's
// bytes a second time.
func CreateHardlink(existing, path string) error {
	if err := os.Link(existing, path); err != nil {
		return classify.New(classOf(underlyingErrno(err)), path, err)
	}
	return nil
}
