//go:build linux

package fsops

import (
	"os"

	"github.com/ringcp/ringcp/internal/classify"
)

// ReadSymlink implements readlink() for a Symlink Path Entry (§3/§4.2).
func ReadSymlink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", classify.New(classOf(underlyingErrno(err)), path, err)
	}
	return target, nil
}

// CreateSymlink materializes a symlink Path Entry pointing at target
// (§4.6 edge case: "symlink: recreate, don't follow"). The symlink is
// created fresh; callers are responsible for removing any existing
// entry first when Overwrite is set, matching the teacher's
// remove-then-recreate pattern for non-regular destination kinds.
func CreateSymlink(target, path string) error {
	if err := os.Symlink(target, path); err != nil {
		return classify.New(classOf(underlyingErrno(err)), path, err)
	}
	return nil
}
