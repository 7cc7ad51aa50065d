package asyncsem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireRespectsMax(t *testing.T) {
	s := New(2)
	p1 := s.TryAcquire()
	p2 := s.TryAcquire()
	p3 := s.TryAcquire()
	require.NotNil(t, p1)
	require.NotNil(t, p2)
	assert.Nil(t, p3)
	assert.Equal(t, 2, s.Outstanding())
	p1.Release()
	assert.Equal(t, 1, s.Outstanding())
	p2.Release()
	assert.Equal(t, 0, s.Outstanding())
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	s := New(1)
	p1, err := s.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		p2, err := s.Acquire(context.Background())
		require.NoError(t, err)
		close(acquired)
		p2.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should not complete while first permit is held")
	case <-time.After(20 * time.Millisecond):
	}

	p1.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire did not complete after release")
	}
}

func TestAcquireFIFOOrder(t *testing.T) {
	s := New(1)
	held, err := s.Acquire(context.Background())
	require.NoError(t, err)

	const n = 8
	order := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		// stagger registration to make arrival order deterministic
		time.Sleep(time.Millisecond)
		go func() {
			defer wg.Done()
			p, err := s.Acquire(context.Background())
			require.NoError(t, err)
			order <- i
			p.Release()
		}()
		time.Sleep(time.Millisecond)
	}

	held.Release()
	wg.Wait()
	close(order)

	var got []int
	for v := range order {
		got = append(got, v)
	}
	require.Len(t, got, n)
	for i, v := range got {
		assert.Equal(t, i, v, "waiters should be served in arrival order")
	}
}

func TestAcquireCancelledDoesNotLeakPermit(t *testing.T) {
	s := New(1)
	held, err := s.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Acquire(ctx)
	require.Error(t, err)

	held.Release()

	p, err := s.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Outstanding())
	p.Release()
	assert.Equal(t, 0, s.Outstanding())
}
