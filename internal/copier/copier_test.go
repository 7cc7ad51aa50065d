//go:build linux

package copier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ringcp/ringcp/internal/classify"
	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/ringcp/ringcp/internal/hardlink"
	"github.com/stretchr/testify/require"
)

func TestCopyDefersDirectoryMetadataUntilFinalize(t *testing.T) {
	src := t.TempDir()
	dstParent := t.TempDir()
	dst := filepath.Join(dstParent, "sub")

	opts := config.Default()
	opts.Times = true
	opts.Permissions = true

	srcMTime := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	meta := fsops.Metadata{Mode: 0o040700, MTime: srcMTime, ATime: srcMTime}

	c := New(nil, hardlink.New(false), opts)
	item := Item{SrcPath: src, DstPath: dst, Meta: meta}

	_, err := c.Copy(context.Background(), item)
	require.NoError(t, err)

	before, err := os.Stat(dst)
	require.NoError(t, err)
	require.NotEqual(t, srcMTime, before.ModTime(), "Copy must not apply directory metadata before its subtree is finished")

	require.NoError(t, c.FinalizeDirectory(item))

	after, err := os.Stat(dst)
	require.NoError(t, err)
	require.WithinDuration(t, srcMTime, after.ModTime(), time.Second)
}

func TestCopyFatalsWhenHardlinkMaterializationFailed(t *testing.T) {
	tracker := hardlink.New(true)
	key := hardlink.Key{Device: 1, Inode: 42}

	// Simulate the first discoverer's materialization failing: it still
	// publishes, with an empty destination. The second discoverer below
	// resolves the key after that publish, so it gets LinkTo with the
	// empty path, and its copy must fail as Fatal.
	action := tracker.Resolve(key, "/dst/first")
	require.Equal(t, hardlink.Materialize, action.Kind)
	tracker.Publish(key, "")

	opts := config.Default()
	opts.HardLinks = true
	c := New(nil, tracker, opts)
	_, err := c.Copy(context.Background(), Item{
		SrcPath:     "/src/second",
		DstPath:     "/dst/second",
		Meta:        fsops.Metadata{NLink: 2},
		HardlinkKey: key,
	})
	require.Error(t, err)
	require.Equal(t, classify.Fatal, classify.Of(err))
}
