package trader

import (
	"github.com/ibrahim3d/powertrader/internal/config"
	"github.com/ibrahim3d/powertrader/internal/model"
)

// TrailingEngine implements the ratcheting trailing profit-margin state
// machine: once price clears the activation line, the line ratchets upward
// with the peak and an exit fires only on a crossover from above the line
// to below it.
type TrailingEngine struct {
	cfg config.TradingConfig
}

func NewTrailingEngine(cfg config.TradingConfig) *TrailingEngine {
	return &TrailingEngine{cfg: cfg}
}

func (e *TrailingEngine) SetConfig(cfg config.TradingConfig) { e.cfg = cfg }

// PMStartLine is the activation threshold: average price plus a percentage
// offset that widens once the position has taken on any DCA buys.
func (e *TrailingEngine) PMStartLine(position model.Position) float64 {
	pct := e.cfg.PMStartPctNoDCA
	if position.HasDCA() {
		pct = e.cfg.PMStartPctWithDCA
	}
	return position.AvgPrice() * (1 + pct/100.0)
}

// ShouldExit evaluates the crossover using the PREVIOUS tick's WasAbove flag
// — callers must invoke this before UpdateTrailing on every tick, since
// UpdateTrailing overwrites WasAbove for the next comparison. Checking the
// current tick's WasAbove instead would fire the exit one tick late.
func (e *TrailingEngine) ShouldExit(position model.Position, price float64) bool {
	return position.TrailingActive && position.TrailingWasAbove && price < position.TrailingLine
}

// UpdateTrailing advances peak, line, and was_above in place for the given
// tick. The line is floored at pm_start_line and never decreases once
// active, matching the monotonic-ratchet invariant.
func (e *TrailingEngine) UpdateTrailing(position *model.Position, price float64) {
	startLine := e.PMStartLine(*position)

	if !position.TrailingActive {
		position.TrailingLine = startLine
		if price >= startLine {
			position.TrailingActive = true
			position.TrailingPeak = price
		}
	}

	if position.TrailingActive {
		if price > position.TrailingPeak {
			position.TrailingPeak = price
		}
		candidate := position.TrailingPeak * (1 - e.cfg.TrailingGapPct/100.0)
		if candidate < startLine {
			candidate = startLine
		}
		if candidate > position.TrailingLine {
			position.TrailingLine = candidate
		}
	}

	position.TrailingWasAbove = position.TrailingActive && price >= position.TrailingLine
}

// Reset clears trailing state. Called whenever a position's cost basis
// changes via a buy (entry or DCA) and after an exit closes the position.
func (e *TrailingEngine) Reset(position *model.Position) {
	position.TrailingActive = false
	position.TrailingPeak = 0
	position.TrailingLine = 0
	position.TrailingWasAbove = false
}
