//go:build !linux

package fsops

import "os"

func StatExtended(path string, followSymlinks bool) (Metadata, error) {
	return Metadata{}, ErrUnsupportedPlatform
}

func Reflink(srcPath, dstPath string) error { return ErrUnsupportedPlatform }

func Preallocate(f *os.File, offset, size int64) error { return nil }

func Advise(f *os.File, offset, length int64, hint Hint) error { return nil }

func CopyRange(dst, src *os.File, dstOffset, srcOffset int64, length int) (int, error) {
	return 0, ErrUnsupportedPlatform
}

func ReadSymlink(path string) (string, error) { return os.Readlink(path) }

func CreateSymlink(target, path string) error { return os.Symlink(target, path) }

func CreateHardlink(existing, path string) error { return os.Link(existing, path) }

func ListXattrs(path string, followSymlinks bool) ([]string, error) { return nil, nil }

func GetXattr(path, key string, followSymlinks bool) ([]byte, error) {
	return nil, ErrUnsupportedPlatform
}

func SetXattr(path, key string, value []byte, followSymlinks bool) error { return nil }

func Mkdirat(dirfd int, name string, mode uint32) error { return ErrUnsupportedPlatform }

func Openat(dirfd int, name string, flags int, mode uint32) (int, error) {
	return -1, ErrUnsupportedPlatform
}

func ApplyMetadata(path string, meta Metadata, xattrKeys map[string][]byte, policy Policy, followSymlinks bool) error {
	return nil
}
