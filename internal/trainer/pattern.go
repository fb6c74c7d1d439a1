// Package trainer builds and online-tunes a PatternMemory from historical
// candles, one coin and timeframe at a time: a stateless pass over a candle
// series producing a reusable derived structure.
package trainer

import (
	"math"

	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/signalengine"
)

// PatternLength is the number of consecutive close-to-open percentage
// deltas that make up one stored pattern.
const PatternLength = 2

const (
	initialWeight   = 1.0
	initialThreshold = 1.0

	targetMatchCount  = 20
	thresholdSmallStep = 0.001
	thresholdBigStep    = 0.01
	thresholdSmallCutoff = 0.1
	thresholdMin         = 0.0
	thresholdMax         = 100.0

	toleranceBandFrac = 0.10
	weightNudge       = 0.25

	weightHighLowMin = 0.0
	weightHighLowMax = 2.0
	weightCloseMin   = -2.0
	weightCloseMax   = 2.0
)

// NormalizeCandles converts a candle series into the three percentage
// series the trainer matches on: close_pct, high_pct, low_pct, all zero
// when a candle's open is zero.
func NormalizeCandles(candles []model.Candle) (closePcts, highPcts, lowPcts []float64) {
	n := len(candles)
	closePcts = make([]float64, n)
	highPcts = make([]float64, n)
	lowPcts = make([]float64, n)
	for i, c := range candles {
		if c.Open == 0 {
			continue
		}
		closePcts[i] = 100 * (c.Close - c.Open) / c.Open
		highPcts[i] = 100 * (c.High - c.Open) / c.Open
		lowPcts[i] = 100 * (c.Low - c.Open) / c.Open
	}
	return closePcts, highPcts, lowPcts
}

// BuildPatterns constructs a fresh PatternMemory from scratch: every index
// i with i+K < N becomes a pattern whose target is the candle at i+K.
func BuildPatterns(closePcts, highPcts, lowPcts []float64) model.PatternMemory {
	n := len(closePcts)
	var mem model.PatternMemory
	mem.Threshold = initialThreshold

	for i := 0; i+PatternLength < n; i++ {
		pattern := append([]float64(nil), closePcts[i:i+PatternLength]...)
		mem.Patterns = append(mem.Patterns, pattern)
		mem.HighDiffs = append(mem.HighDiffs, highPcts[i+PatternLength]/100.0)
		mem.LowDiffs = append(mem.LowDiffs, lowPcts[i+PatternLength]/100.0)
		mem.Weights = append(mem.Weights, initialWeight)
		mem.WeightsHigh = append(mem.WeightsHigh, initialWeight)
		mem.WeightsLow = append(mem.WeightsLow, initialWeight)
	}
	return mem
}

// StopFunc is polled every killerCheckInterval inner iterations of
// AdjustWeights; returning true unwinds the pass early, preserving whatever
// has been nudged so far (the caller still persists the memory).
type StopFunc func() bool

// killerCheckInterval mirrors storage.KillerCheckInterval without importing
// storage here (trainer shouldn't depend on the IPC-path package for a pure
// numeric constant).
const killerCheckInterval = 50

// AdjustWeights runs one online pass over the given candle series against
// an existing memory, self-tuning the match threshold and nudging channel
// weights based on how each matched pattern's prediction compares to the
// realized next candle. Returns the mutated memory and whether the pass was
// interrupted by stop.
func AdjustWeights(mem model.PatternMemory, closePcts, highPcts, lowPcts []float64, stop StopFunc) (model.PatternMemory, bool) {
	n := len(closePcts)
	interrupted := false

	for pos := 0; pos <= n-PatternLength-1; pos++ {
		if stop != nil && pos%killerCheckInterval == 0 && pos > 0 && stop() {
			interrupted = true
			break
		}

		current := closePcts[pos : pos+PatternLength]
		matches := signalengine.FindMatches(current, mem)

		mem.Threshold = tuneThreshold(mem.Threshold, len(matches))

		if len(matches) == 0 {
			continue
		}

		hPred, lPred, cPred := signalengine.PredictLevels(matches, mem)

		actualHigh := highPcts[pos+PatternLength] / 100.0
		actualLow := lowPcts[pos+PatternLength] / 100.0
		actualClose := closePcts[pos+PatternLength]

		for _, idx := range matches {
			nudgeWeight(&mem.WeightsHigh[idx], actualHigh, hPred, weightHighLowMin, weightHighLowMax)
			nudgeWeight(&mem.WeightsLow[idx], actualLow, lPred, weightHighLowMin, weightHighLowMax)
			nudgeWeight(&mem.Weights[idx], actualClose, cPred, weightCloseMin, weightCloseMax)
		}
	}

	return mem, interrupted
}

// tuneThreshold nudges the memory's match threshold toward producing
// ~targetMatchCount matches per lookup, with a finer step once it has
// settled below thresholdSmallCutoff.
func tuneThreshold(threshold float64, matchCount int) float64 {
	step := thresholdBigStep
	if threshold < thresholdSmallCutoff {
		step = thresholdSmallStep
	}
	if matchCount > targetMatchCount {
		threshold -= step
	} else {
		threshold += step
	}
	if threshold < thresholdMin {
		threshold = thresholdMin
	}
	if threshold > thresholdMax {
		threshold = thresholdMax
	}
	return threshold
}

// nudgeWeight bumps *weight by +/- weightNudge when actual falls outside a
// 10% tolerance band around prediction, then clamps to [lo, hi].
func nudgeWeight(weight *float64, actual, prediction, lo, hi float64) {
	band := math.Abs(prediction) * toleranceBandFrac
	switch {
	case actual > prediction+band:
		*weight += weightNudge
	case actual < prediction-band:
		*weight -= weightNudge
	}
	if *weight < lo {
		*weight = lo
	}
	if *weight > hi {
		*weight = hi
	}
}
