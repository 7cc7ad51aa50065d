//go:build !linux

package ring

import "errors"

// ErrUnsupportedPlatform is returned by NewRuntime on any OS other than
// Linux: the async SQ interface this package drives is a Linux kernel
// feature (§1, §6 "Kernel-ABI bindings").
var ErrUnsupportedPlatform = errors.New("ring: io_uring is only available on linux")

type Runtime struct{}

func NewRuntime(numWorkers int, queueDepth uint32) (*Runtime, error) {
	return nil, ErrUnsupportedPlatform
}

func (rt *Runtime) NumWorkers() int { return 0 }
func (rt *Runtime) Wait()           {}
func (rt *Runtime) Close() error    { return nil }
