package copier

import (
	"testing"

	"github.com/ringcp/ringcp/internal/config"
	"github.com/stretchr/testify/require"
)

func TestPlanStrategyAutoPrefersReflinkOnSameDevice(t *testing.T) {
	got := PlanStrategy(1, 1, config.Auto)
	require.Equal(t, []Strategy{StrategyReflink, StrategyRangeCopy, StrategyBuffered}, got)
}

func TestPlanStrategyAutoSkipsReflinkAcrossDevices(t *testing.T) {
	got := PlanStrategy(1, 2, config.Auto)
	require.Equal(t, []Strategy{StrategyRangeCopy, StrategyBuffered}, got)
	for _, s := range got {
		require.NotEqual(t, StrategyReflink, s)
	}
}

func TestPlanStrategyExplicitMethodPinsChoice(t *testing.T) {
	require.Equal(t, []Strategy{StrategyBuffered}, PlanStrategy(1, 1, config.Buffered))
	require.Equal(t, []Strategy{StrategyReflink, StrategyBuffered}, PlanStrategy(1, 2, config.Reflink))
	require.Equal(t, []Strategy{StrategyRangeCopy, StrategyBuffered}, PlanStrategy(1, 1, config.RangeCopy))
}

func TestStrategyStringMatchesCopyMethodNames(t *testing.T) {
	require.Equal(t, "reflink", StrategyReflink.String())
	require.Equal(t, "range-copy", StrategyRangeCopy.String())
	require.Equal(t, "buffered", StrategyBuffered.String())
}
