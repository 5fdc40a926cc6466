package memutils_test

import (
	"math"
	"testing"

	"github.com/Krantz-XRF/memory-manager/memutils"
	"github.com/stretchr/testify/require"
)

func TestCheckPow2(t *testing.T) {
	for _, value := range []int{1, 2, 4, 256, 4096} {
		require.True(t, memutils.IsPow2(value), "value %d", value)
		require.NoError(t, memutils.CheckPow2(value, "value"))
	}

	for _, value := range []int{0, 3, 257, 6} {
		require.False(t, memutils.IsPow2(value), "value %d", value)
		err := memutils.CheckPow2(value, "value")
		require.ErrorIs(t, err, memutils.PowerOfTwoError)
	}
}

func TestCheckPow2Uintptr(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(uintptr(4096), "alignment"))
	require.ErrorIs(t, memutils.CheckPow2(uintptr(0), "alignment"), memutils.PowerOfTwoError)
}

func TestCheckMultipleOf(t *testing.T) {
	require.NoError(t, memutils.CheckMultipleOf(12288, 4096, "size"))
	require.NoError(t, memutils.CheckMultipleOf(0, 4096, "size"))
	require.ErrorIs(t, memutils.CheckMultipleOf(4097, 4096, "size"), memutils.MultipleOfError)
	require.ErrorIs(t, memutils.CheckMultipleOf(100, 0, "size"), memutils.MultipleOfError)
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, 8, memutils.AlignUp(5, 4))
	require.Equal(t, 8, memutils.AlignUp(8, 4))
	require.Equal(t, 0, memutils.AlignUp(0, 4096))
	require.Equal(t, uintptr(0x5000), memutils.AlignUp(uintptr(0x4001), uintptr(0x1000)))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 4, memutils.AlignDown(5, 4))
	require.Equal(t, 8, memutils.AlignDown(8, 4))
	require.Equal(t, uintptr(0x4000), memutils.AlignDown(uintptr(0x4fff), uintptr(0x1000)))
}

func TestDetailedStatisticsClear(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.AddObject(100)
	stats.Clear()

	require.Equal(t, memutils.DetailedStatistics{
		ObjectSizeMin:      math.MaxInt,
		ObjectSizeMax:      0,
		UnusedRangeSizeMin: math.MaxInt,
		UnusedRangeSizeMax: 0,
	}, stats)
}

func TestDetailedStatisticsAccumulate(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	stats.AddObject(32)
	stats.AddObject(8)
	stats.AddUnusedRange(4000)

	require.Equal(t, 2, stats.ObjectCount)
	require.Equal(t, 40, stats.ObjectBytes)
	require.Equal(t, 8, stats.ObjectSizeMin)
	require.Equal(t, 32, stats.ObjectSizeMax)
	require.Equal(t, 1, stats.UnusedRangeCount)
	require.Equal(t, 4000, stats.UnusedRangeSizeMin)
	require.Equal(t, 4000, stats.UnusedRangeSizeMax)

	var merged memutils.DetailedStatistics
	merged.Clear()
	merged.AddObject(16)
	merged.AddDetailedStatistics(&stats)

	require.Equal(t, 3, merged.ObjectCount)
	require.Equal(t, 56, merged.ObjectBytes)
	require.Equal(t, 8, merged.ObjectSizeMin)
	require.Equal(t, 32, merged.ObjectSizeMax)
	require.Equal(t, 1, merged.UnusedRangeCount)
}
