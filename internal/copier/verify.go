//go:build linux

package copier

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/ringcp/ringcp/internal/classify"
)

// verifyContents streams src and dst through independent xxhash
// digests and compares them, the supplemented --checksum check of
// §6. It never touches the ring: a post-copy verification pass is
// expected to run far less often than the transfer itself, so a
// plain buffered read is enough and keeps this check decoupled from
// whichever transfer strategy actually moved the bytes.
func verifyContents(srcPath, dstPath string) error {
	srcSum, err := sumFile(srcPath)
	if err != nil {
		return err
	}
	dstSum, err := sumFile(dstPath)
	if err != nil {
		return err
	}
	if srcSum != dstSum {
		return classify.New(classify.IntegrityFailure, dstPath, errChecksumMismatch)
	}
	return nil
}

var errChecksumMismatch = errMismatch("copied contents do not match source checksum")

type errMismatch string

func (e errMismatch) Error() string { return string(e) }

func sumFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, classify.New(classify.Of(err), path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, classify.New(classify.IntegrityFailure, path, err)
	}
	return h.Sum64(), nil
}
