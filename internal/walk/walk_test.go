//go:build linux

package walk

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/stretchr/testify/require"
)

func TestExcludedHonorsNegatedOverride(t *testing.T) {
	opts := config.Default()
	opts.Filters = []string{"*.tmp", "!keep.tmp"}
	w := New(opts)

	require.True(t, w.excluded("scratch.tmp"))
	require.False(t, w.excluded("keep.tmp"))
	require.False(t, w.excluded("readme.md"))
}

func TestWalkVisitsDirectoriesBeforeChildren(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "f1.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "b", "f2.txt"), []byte("y"), 0o644))

	opts := config.Default()
	opts.Recursive = true
	w := New(opts)

	var mu sync.Mutex
	var order []string
	seenDirs := map[string]bool{src: true}

	err := w.Walk(context.Background(), src, dst, func(ctx context.Context, e Entry) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, e.SrcPath)
		if e.SrcPath != src && !seenDirs[filepath.Dir(e.SrcPath)] {
			t.Errorf("visited %s before its parent directory", e.SrcPath)
		}
		if e.Meta.Kind() == fsops.Directory {
			seenDirs[e.SrcPath] = true
		}
		return nil
	})
	require.NoError(t, err)
	require.Contains(t, order, src)
	require.Contains(t, order, filepath.Join(src, "a", "b", "f2.txt"))
}

func TestWalkNonRecursiveStopsAfterRootChildren(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "f1.txt"), []byte("y"), 0o644))

	opts := config.Default() // Recursive left false
	w := New(opts)

	var mu sync.Mutex
	var visited []string

	err := w.Walk(context.Background(), src, dst, func(ctx context.Context, e Entry) error {
		mu.Lock()
		defer mu.Unlock()
		if !e.Finalize {
			visited = append(visited, e.SrcPath)
		}
		return nil
	})
	require.NoError(t, err)
	require.Contains(t, visited, src)
	require.Contains(t, visited, filepath.Join(src, "top.txt"))
	require.Contains(t, visited, filepath.Join(src, "a"))
	require.NotContains(t, visited, filepath.Join(src, "a", "f1.txt"))
	require.NotContains(t, visited, filepath.Join(src, "a", "b"))
}

func TestWalkFinalizesDirectoryAfterChildren(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "f1.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "b", "f2.txt"), []byte("y"), 0o644))

	opts := config.Default()
	opts.Recursive = true
	w := New(opts)

	var mu sync.Mutex
	finalized := map[string]bool{}
	var violations []string

	err := w.Walk(context.Background(), src, dst, func(ctx context.Context, e Entry) error {
		mu.Lock()
		defer mu.Unlock()
		if e.Finalize {
			finalized[e.SrcPath] = true
			return nil
		}
		if parent := filepath.Dir(e.SrcPath); finalized[parent] {
			violations = append(violations, e.SrcPath)
		}
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, violations, "an entry was visited after its parent directory's metadata finalized")
	require.True(t, finalized[filepath.Join(src, "a", "b")])
	require.True(t, finalized[filepath.Join(src, "a")])
	require.True(t, finalized[src])
}
