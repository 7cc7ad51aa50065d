package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdmitUpToCeiling(t *testing.T) {
	s := New(4, 1)
	ctx := context.Background()

	var permits []interface {
		Release()
	}
	for i := 0; i < 4; i++ {
		p, err := s.Admit(ctx)
		require.NoError(t, err)
		permits = append(permits, p)
	}
	require.Nil(t, s.TryAdmit())
	for _, p := range permits {
		p.Release()
	}
}

func TestBackPressureHalvesCeilingAndRestores(t *testing.T) {
	s := New(8, 1)
	s.boff.Min = time.Millisecond
	s.boff.Max = 4 * time.Millisecond

	require.Equal(t, 8, s.Ceiling())
	s.ReportBackPressure()
	require.Equal(t, 4, s.Ceiling())

	require.Eventually(t, func() bool {
		return s.Ceiling() == 8
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCeilingNeverDropsBelowFloor(t *testing.T) {
	s := New(4, 2)
	s.boff.Min = time.Millisecond
	s.ReportBackPressure()
	require.Equal(t, 2, s.Ceiling())
	s.ReportBackPressure()
	require.Equal(t, 2, s.Ceiling())
}
