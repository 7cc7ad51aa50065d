package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsAccumulatesAndRendersSummary(t *testing.T) {
	s := NewStats()
	s.AddTransfer("reflink")
	s.AddBytes(4096)
	s.AddTransfer("buffered")
	s.AddBytes(1024)
	s.AddHardlink()
	s.AddDir()
	s.AddSkipped()
	s.AddWarning()
	s.AddError()

	require.EqualValues(t, 1, s.Errors())

	out := s.String()
	require.True(t, strings.Contains(out, "Files copied:"))
	require.True(t, strings.Contains(out, "reflink"))
	require.True(t, strings.Contains(out, "buffered"))
}
