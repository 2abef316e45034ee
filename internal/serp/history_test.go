package serp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func record(date string, rank int) PerformanceRecord {
	return PerformanceRecord{Keyword: "plumber", RankBasisPoints: rank * 100, Date: date}
}

func TestCompareNoHistory(t *testing.T) {
	cmp := Compare("plumber", 4, nil)
	require.Equal(t, TrendNew, cmp.Trend)
	require.Equal(t, 0, cmp.RankChange)
	require.Equal(t, 0, cmp.PreviousRank)
}

func TestCompareImprovement(t *testing.T) {
	cmp := Compare("plumber", 4, []PerformanceRecord{record("2026-08-20", 10)})
	require.Equal(t, 10, cmp.PreviousRank)
	require.Equal(t, 6, cmp.RankChange)
	require.Equal(t, TrendUp, cmp.Trend)
}

func TestCompareSmallDropIsStable(t *testing.T) {
	cmp := Compare("plumber", 11, []PerformanceRecord{record("2026-08-20", 10)})
	require.Equal(t, -1, cmp.RankChange)
	require.Equal(t, TrendStable, cmp.Trend)
}

func TestCompareDown(t *testing.T) {
	cmp := Compare("plumber", 9, []PerformanceRecord{record("2026-08-20", 3)})
	require.Equal(t, -6, cmp.RankChange)
	require.Equal(t, TrendDown, cmp.Trend)
}

func TestCompareUsesMostRecentRecord(t *testing.T) {
	prior := []PerformanceRecord{
		record("2026-08-01", 30),
		record("2026-08-25", 5),
		record("2026-08-10", 20),
	}
	cmp := Compare("plumber", 5, prior)
	require.Equal(t, 5, cmp.PreviousRank)
	require.Equal(t, TrendStable, cmp.Trend)
}

func TestCompareBoundaryOfStableBand(t *testing.T) {
	cmp := Compare("plumber", 8, []PerformanceRecord{record("2026-08-20", 10)})
	require.Equal(t, StableBand, cmp.RankChange)
	require.Equal(t, TrendStable, cmp.Trend)

	cmp = Compare("plumber", 7, []PerformanceRecord{record("2026-08-20", 10)})
	require.Equal(t, TrendUp, cmp.Trend)
}
