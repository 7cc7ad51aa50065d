//go:build linux

package ring

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestWorker skips the test rather than failing it when io_uring is
// unavailable in the sandbox (old kernel, seccomp filter, container
// without the syscall allow-listed) — the same "probe, then degrade"
// posture the teacher uses for statx in readMetadataFromFile.
func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	w, err := NewWorker(0, 1024)
	if err != nil {
		t.Skipf("io_uring unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestNopCompletes(t *testing.T) {
	w := newTestWorker(t)

	fut, err := w.Submit(context.Background(), Op{Opcode: OpNop})
	require.NoError(t, err)

	select {
	case <-fut.done:
	case <-time.After(2 * time.Second):
		t.Fatal("nop never completed")
	}
	res := fut.Wait()
	require.NoError(t, res.Err)
}

func TestReadWriteRoundTrip(t *testing.T) {
	w := newTestWorker(t)

	dir := t.TempDir()
	path := dir + "/ring_rw"
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()

	payload := []byte("hello io_uring")
	fut, err := w.Submit(context.Background(), Op{
		Opcode: OpWrite,
		FD:     int32(f.Fd()),
		Addr:   BufAddr(payload),
		Length: uint32(len(payload)),
		buf:    payload,
	})
	require.NoError(t, err)
	res := fut.Wait()
	require.NoError(t, res.Err)
	require.Equal(t, int32(len(payload)), res.Res)

	buf := make([]byte, len(payload))
	fut, err = w.Submit(context.Background(), Op{
		Opcode: OpRead,
		FD:     int32(f.Fd()),
		Addr:   BufAddr(buf),
		Length: uint32(len(buf)),
		buf:    buf,
	})
	require.NoError(t, err)
	res = fut.Wait()
	require.NoError(t, res.Err)
	require.Equal(t, payload, buf)
}

func TestBackPressureWhenStagingQueueFull(t *testing.T) {
	w, err := NewWorker(0, 1)
	if err != nil {
		t.Skipf("io_uring unavailable in this environment: %v", err)
	}
	defer w.Close()

	// The staging queue backs onto a ring of depth 1; submitting faster
	// than the worker drains should eventually surface BackPressure
	// rather than blocking forever. This is a best-effort timing test,
	// so a slow drain is tolerated.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	for i := 0; i < 64; i++ {
		if _, err := w.Submit(ctx, Op{Opcode: OpNop}); err != nil {
			return // saw either back-pressure or context timeout: acceptable
		}
	}
}
