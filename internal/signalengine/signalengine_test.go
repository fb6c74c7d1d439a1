package signalengine

import (
	"testing"

	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestPatternDistanceZeroWhenBothZeroOrMeanZero(t *testing.T) {
	assert.Equal(t, 0.0, PatternDistance(0, 0))
	assert.Equal(t, 0.0, PatternDistance(5, -5))
}

func TestPatternDistanceSymmetric(t *testing.T) {
	assert.Equal(t, PatternDistance(3, 7), PatternDistance(7, 3))
}

func TestFindMatchesOverlapAveragingHandlesShorterStoredPattern(t *testing.T) {
	// Live signal generation always queries with a 1-candle pattern even
	// though memories were built with K=2 patterns; find_matches must
	// average over only the overlapping (first) position rather than
	// erroring or zero-filling the second.
	mem := model.PatternMemory{
		Patterns:    [][]float64{{1.0, 2.0}},
		HighDiffs:   []float64{0.01},
		LowDiffs:    []float64{-0.01},
		Weights:     []float64{1.0},
		WeightsHigh: []float64{1.0},
		WeightsLow:  []float64{1.0},
		Threshold:   1.0,
	}
	matches := FindMatches([]float64{1.0}, mem)
	assert.Equal(t, []int{0}, matches)
}

func TestApplyDistanceOffsetUsesSentinelsForInactiveTimeframes(t *testing.T) {
	high, low := ApplyDistanceOffset([]float64{100}, []float64{100}, []bool{false}, DefaultDistanceOffsetPct)
	assert.Equal(t, storage.SentinelHigh, high[0])
	assert.Equal(t, storage.SentinelLow, low[0])
}

func TestApplyDistanceOffsetWidensActiveTimeframe(t *testing.T) {
	high, low := ApplyDistanceOffset([]float64{100}, []float64{100}, []bool{true}, 1.0)
	assert.InDelta(t, 101.0, high[0], 1e-9)
	assert.InDelta(t, 99.0, low[0], 1e-9)
}

func TestSortAndMergeBoundsPreservesOrderingAndPushesCrowdedValuesApart(t *testing.T) {
	high := []float64{100.0, 100.05, 200.0}
	low := []float64{90.0, 89.95, 50.0}
	mergedHigh, mergedLow := SortAndMergeBounds(high, low)
	assert.Len(t, mergedHigh, 3)
	assert.Len(t, mergedLow, 3)
	// Crowded highs (100.0 and 100.05) must end up separated beyond the raw gap.
	assert.NotEqual(t, high[1], mergedHigh[1])
}

func TestCountSignalLevelsLongAndShort(t *testing.T) {
	longCount, shortCount, sides, margins := CountSignalLevels(
		100,
		[]float64{90, 200},
		[]float64{80, 150},
		[]float64{95, 195},
		[]float64{85, 145},
	)
	assert.Equal(t, 1, longCount)  // 100 < 150
	assert.Equal(t, 1, shortCount) // 100 > 90
	assert.Equal(t, SideShort, sides[0])
	assert.Equal(t, SideLong, sides[1])
	assert.NotZero(t, margins[0])
}

func TestAggregateProfitMarginFloorsAtMinimum(t *testing.T) {
	assert.Equal(t, 0.25, AggregateProfitMargin(nil, 0.25))
	assert.Equal(t, 0.25, AggregateProfitMargin([]float64{0.1}, 0.25))
	assert.InDelta(t, 1.0, AggregateProfitMargin([]float64{1.0}, 0.25), 1e-9)
}

func TestGenerateSignalUntrainedCoinReturnsZeroLevels(t *testing.T) {
	sig := GenerateSignal("BTC", 100, 99, 100, map[string]model.PatternMemory{})
	assert.Equal(t, 0, sig.LongLevel)
	assert.Equal(t, 0, sig.ShortLevel)
	assert.Len(t, sig.LongBounds, len(storage.Timeframes))
}
