// Package signalengine turns trained pattern memories and the latest candle
// into a Signal: how many of the seven timeframes' predicted boundaries the
// current price has broken through, long and short.
package signalengine

import (
	"math"
	"sort"
	"time"

	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/storage"
)

const (
	DefaultDistanceOffsetPct = 0.5
	DefaultProfitMarginPct   = 0.25
	BoundGapIncrementPct     = 0.25
	BoundMicroAdjustFrac     = 0.0005
)

// PatternDistance is the symmetric percentage distance between two pattern
// values, used identically by the trainer and the thinker.
func PatternDistance(current, memory float64) float64 {
	if current == 0.0 && memory == 0.0 {
		return 0.0
	}
	avg := (current + memory) / 2.0
	if avg == 0.0 {
		return 0.0
	}
	return math.Abs(current-memory) / math.Abs(avg) * 100.0
}

// FindMatches returns the indices of every stored pattern within the
// memory's self-tuned threshold distance of currentPattern, averaged over
// the overlapping candle positions.
func FindMatches(currentPattern []float64, mem model.PatternMemory) []int {
	if mem.IsEmpty() || len(currentPattern) == 0 {
		return nil
	}

	var matches []int
	for idx, stored := range mem.Patterns {
		if len(stored) == 0 {
			continue
		}
		n := len(currentPattern)
		if len(stored) < n {
			n = len(stored)
		}
		if n == 0 {
			continue
		}
		total := 0.0
		for j := 0; j < n; j++ {
			total += PatternDistance(currentPattern[j], stored[j])
		}
		if total/float64(n) <= mem.Threshold {
			matches = append(matches, idx)
		}
	}
	return matches
}

// PredictLevels computes the weighted-average predicted high, low, and
// close diffs across matched indices. High/low diffs are fractional
// (already /100); close is a raw weighted average of the pattern's last
// delta. Returns zero for any channel with no nonzero-weighted matches.
func PredictLevels(matches []int, mem model.PatternMemory) (highDiff, lowDiff, closeDiff float64) {
	if len(matches) == 0 {
		return 0, 0, 0
	}

	var highMoves, lowMoves, closeMoves []float64
	for _, idx := range matches {
		hDiff := at(mem.HighDiffs, idx)
		hWeight := atDefault(mem.WeightsHigh, idx, 1.0)
		if hWeight != 0.0 {
			highMoves = append(highMoves, hDiff*hWeight)
		}

		lDiff := at(mem.LowDiffs, idx)
		lWeight := atDefault(mem.WeightsLow, idx, 1.0)
		if lWeight != 0.0 {
			lowMoves = append(lowMoves, lDiff*lWeight)
		}

		var move float64
		if idx < len(mem.Patterns) && len(mem.Patterns[idx]) > 0 {
			pat := mem.Patterns[idx]
			move = pat[len(pat)-1]
		}
		cWeight := atDefault(mem.Weights, idx, 1.0)
		if cWeight != 0.0 {
			closeMoves = append(closeMoves, move*cWeight)
		}
	}

	return mean(highMoves), mean(lowMoves), mean(closeMoves)
}

// CalculatePredictedPrices converts fractional diffs into absolute price
// levels off the candle's close.
func CalculatePredictedPrices(closePrice, highDiff, lowDiff float64) (highPrice, lowPrice float64) {
	return closePrice + closePrice*highDiff, closePrice + closePrice*lowDiff
}

// ApplyDistanceOffset widens each active timeframe's predicted price by a
// fixed percentage to form a tradeable bound; inactive timeframes get
// sentinel values so they can never trigger a signal.
func ApplyDistanceOffset(highPrices, lowPrices []float64, actives []bool, distancePct float64) (highBounds, lowBounds []float64) {
	frac := distancePct / 100.0
	highBounds = make([]float64, len(highPrices))
	lowBounds = make([]float64, len(lowPrices))
	for i := range highPrices {
		if actives[i] {
			highBounds[i] = highPrices[i] + highPrices[i]*frac
			lowBounds[i] = lowPrices[i] - lowPrices[i]*frac
		} else {
			highBounds[i] = storage.SentinelHigh
			lowBounds[i] = storage.SentinelLow
		}
	}
	return highBounds, lowBounds
}

// SortAndMergeBounds de-crowds adjacent bounds (high ascending, low
// descending) so no two timeframes' levels sit within a growing tolerance
// band of each other, then remaps back to original timeframe order.
func SortAndMergeBounds(highBounds, lowBounds []float64) (mergedHigh, mergedLow []float64) {
	n := len(highBounds)
	if n <= 1 {
		return append([]float64(nil), highBounds...), append([]float64(nil), lowBounds...)
	}

	lowOrder, sortedLow := sortIndexed(lowBounds, true)
	highOrder, sortedHigh := sortIndexed(highBounds, false)

	mergeAdjacent(sortedLow, -1)
	mergeAdjacent(sortedHigh, 1)

	mergedLow = make([]float64, n)
	mergedHigh = make([]float64, n)
	for rank, orig := range lowOrder {
		mergedLow[orig] = sortedLow[rank]
	}
	for rank, orig := range highOrder {
		mergedHigh[orig] = sortedHigh[rank]
	}
	return mergedHigh, mergedLow
}

func sortIndexed(vals []float64, descending bool) (order []int, sorted []float64) {
	type pair struct {
		idx int
		val float64
	}
	pairs := make([]pair, len(vals))
	for i, v := range vals {
		pairs[i] = pair{i, v}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if descending {
			return pairs[i].val > pairs[j].val
		}
		return pairs[i].val < pairs[j].val
	})
	order = make([]int, len(pairs))
	sorted = make([]float64, len(pairs))
	for i, p := range pairs {
		order[i] = p.idx
		sorted[i] = p.val
	}
	return order, sorted
}

// mergeAdjacent pushes adjacent values apart, in place, when they sit
// closer than a growing gap tolerance or are out of the expected order.
// direction is +1 for ascending (high bounds), -1 for descending (low bounds).
func mergeAdjacent(sorted []float64, direction float64) {
	gapMod := 0.0
	i := 0
	for i < len(sorted)-1 {
		a, b := sorted[i], sorted[i+1]

		if isSentinel(a) || isSentinel(b) {
			i++
			gapMod += BoundGapIncrementPct
			continue
		}

		avg := (a + b) / 2.0
		if avg == 0.0 {
			i++
			gapMod += BoundGapIncrementPct
			continue
		}

		pctDiff := math.Abs(a-b) / math.Abs(avg) * 100.0
		threshold := BoundGapIncrementPct + gapMod

		outOfOrder := (direction > 0 && b < a) || (direction < 0 && b > a)
		if pctDiff < threshold || outOfOrder {
			sorted[i+1] = b + b*BoundMicroAdjustFrac*direction
			continue
		}

		i++
		gapMod += BoundGapIncrementPct
	}
}

func isSentinel(v float64) bool {
	return v == storage.SentinelLow || v == storage.SentinelHigh
}

// TimeframeSide is which side of the signal (if any) a timeframe's bound
// breakthrough contributed to.
type TimeframeSide string

const (
	SideLong  TimeframeSide = "long"
	SideShort TimeframeSide = "short"
	SideNone  TimeframeSide = "none"
)

// CountSignalLevels counts how many timeframes the current price has broken
// through, long (price below low bound) and short (price above high bound).
func CountSignalLevels(currentPrice float64, highBounds, lowBounds, highPredictions, lowPredictions []float64) (longCount, shortCount int, sides []TimeframeSide, margins []float64) {
	sides = make([]TimeframeSide, len(highBounds))
	margins = make([]float64, len(highBounds))

	for i := range highBounds {
		hPred, lPred := highPredictions[i], lowPredictions[i]
		if hPred == lPred {
			sides[i] = SideNone
			continue
		}

		switch {
		case currentPrice > highBounds[i]:
			sides[i] = SideShort
			if currentPrice != 0 {
				margins[i] = (hPred - currentPrice) / math.Abs(currentPrice) * 100.0
			}
		case currentPrice < lowBounds[i]:
			sides[i] = SideLong
			if currentPrice != 0 {
				margins[i] = (lPred - currentPrice) / math.Abs(currentPrice) * 100.0
			}
		default:
			sides[i] = SideNone
		}
	}

	for _, s := range sides {
		switch s {
		case SideLong:
			longCount++
		case SideShort:
			shortCount++
		}
	}
	return longCount, shortCount, sides, margins
}

// AggregateProfitMargin averages the nonzero margins, floored at a minimum
// so an untrained or barely-triggered side still reports a usable target.
func AggregateProfitMargin(margins []float64, floor float64) float64 {
	var nonzero []float64
	for _, m := range margins {
		if m != 0.0 {
			nonzero = append(nonzero, m)
		}
	}
	if len(nonzero) == 0 {
		return floor
	}
	avg := mean(nonzero)
	return math.Max(math.Abs(avg), floor)
}

// GenerateSignal runs the full pipeline for one coin's latest candle against
// its seven per-timeframe pattern memories.
func GenerateSignal(coin string, currentPrice, candleOpen, candleClose float64, memories map[string]model.PatternMemory) model.Signal {
	currentPct := 0.0
	if candleOpen != 0.0 {
		currentPct = 100.0 * (candleClose - candleOpen) / candleOpen
	}
	currentPattern := []float64{currentPct}

	highPredictions := make([]float64, len(storage.Timeframes))
	lowPredictions := make([]float64, len(storage.Timeframes))
	actives := make([]bool, len(storage.Timeframes))

	for i, tf := range storage.Timeframes {
		mem, ok := memories[tf]
		if !ok || mem.IsEmpty() {
			highPredictions[i] = candleClose
			lowPredictions[i] = candleClose
			continue
		}

		matches := FindMatches(currentPattern, mem)
		if len(matches) == 0 {
			highPredictions[i] = candleClose
			lowPredictions[i] = candleClose
			continue
		}

		hDiff, lDiff, _ := PredictLevels(matches, mem)
		hPrice, lPrice := CalculatePredictedPrices(candleClose, hDiff, lDiff)
		highPredictions[i] = hPrice
		lowPredictions[i] = lPrice
		actives[i] = true
	}

	highBounds, lowBounds := ApplyDistanceOffset(highPredictions, lowPredictions, actives, DefaultDistanceOffsetPct)
	highBounds, lowBounds = SortAndMergeBounds(highBounds, lowBounds)

	longLevel, shortLevel, sides, margins := CountSignalLevels(currentPrice, highBounds, lowBounds, highPredictions, lowPredictions)

	var longMargins, shortMargins []float64
	for i, s := range sides {
		switch s {
		case SideLong:
			longMargins = append(longMargins, margins[i])
		case SideShort:
			shortMargins = append(shortMargins, margins[i])
		}
	}

	return model.Signal{
		Coin:              coin,
		LongLevel:         longLevel,
		ShortLevel:        shortLevel,
		LongBounds:        lowBounds,
		ShortBounds:       highBounds,
		LongProfitMargin:  AggregateProfitMargin(longMargins, DefaultProfitMarginPct),
		ShortProfitMargin: AggregateProfitMargin(shortMargins, DefaultProfitMarginPct),
		Timestamp:         float64(time.Now().UnixNano()) / 1e9,
	}
}

func at(s []float64, idx int) float64 {
	if idx < 0 || idx >= len(s) {
		return 0.0
	}
	return s[idx]
}

func atDefault(s []float64, idx int, def float64) float64 {
	if idx < 0 || idx >= len(s) {
		return def
	}
	return s[idx]
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0.0
	}
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}
