//go:build linux

package copier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ringcp/ringcp/internal/classify"
	"github.com/stretchr/testify/require"
)

func TestVerifyContentsPassesOnMatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("identical payload"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("identical payload"), 0o644))

	require.NoError(t, verifyContents(src, dst))
}

func TestVerifyContentsFailsOnMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("original"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("corrupted"), 0o644))

	err := verifyContents(src, dst)
	require.Error(t, err)
	require.Equal(t, classify.IntegrityFailure, classify.Of(err))
}
