package fsops

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataKindClassification(t *testing.T) {
	cases := []struct {
		mode uint32
		want Kind
	}{
		{sIFREGForTest(), Regular},
		{sIFDIR, Directory},
		{sIFLNK, Symlink},
		{sIFIFO, FIFO},
		{sIFSOCK, Socket},
		{sIFBLK, BlockDevice},
		{sIFCHR, CharDevice},
	}
	for _, c := range cases {
		m := Metadata{Mode: c.mode}
		require.Equal(t, c.want, m.Kind())
	}
}

// sIFREGForTest returns S_IFREG (0100000). Kind has no case for it:
// any mode whose type bits are not one of the non-regular kinds falls
// through to Regular by default.
func sIFREGForTest() uint32 { return 0100000 }
