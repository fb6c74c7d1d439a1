// Package trader implements the position reconciliation, entry/DCA/exit
// state machines, and order-execution loop that consume thinker signals and
// drive a TradingVenue.
package trader

import (
	"fmt"

	"github.com/ibrahim3d/powertrader/internal/config"
	"github.com/ibrahim3d/powertrader/internal/model"
)

const (
	dcaRateWindowSeconds = 24 * 60 * 60
	neuralMaxStage       = 3
	neuralLevelBase      = 4
)

// DCAEngine holds the per-coin DCA rate-limit state: buy timestamps since
// the trade's most recent sell, and the sell timestamp itself (the trade
// boundary the 24h window is measured from).
type DCAEngine struct {
	cfg           config.TradingConfig
	buyTimestamps map[string][]float64
	lastSell      map[string]float64
}

func NewDCAEngine(cfg config.TradingConfig) *DCAEngine {
	return &DCAEngine{cfg: cfg, buyTimestamps: map[string][]float64{}, lastSell: map[string]float64{}}
}

// SetConfig swaps in a freshly (re)loaded settings snapshot.
func (e *DCAEngine) SetConfig(cfg config.TradingConfig) { e.cfg = cfg }

// RecentBuyCount counts DCA buys recorded after the coin's last sell and
// within the trailing 86,400-second window ending at now.
func (e *DCAEngine) RecentBuyCount(coin string, now float64) int {
	boundary := e.lastSell[coin]
	cutoff := now - dcaRateWindowSeconds
	n := 0
	for _, ts := range e.buyTimestamps[coin] {
		if ts > boundary && ts >= cutoff {
			n++
		}
	}
	return n
}

// ShouldDCA implements should_dca(position, current_price, long_signal):
// the rate limit is checked first, then hard-threshold, then (for stages
// 0-3 only) the neural-assisted trigger. Hard takes precedence when both fire.
func (e *DCAEngine) ShouldDCA(coin string, position model.Position, currentPrice float64, longSignal int, now float64) (bool, string) {
	if e.RecentBuyCount(coin, now) >= e.cfg.MaxDCABuysPer24h {
		return false, ""
	}

	stage := position.DCACount
	hardThreshold := e.cfg.DCALevelAt(stage)
	pnl := position.PnLPct(currentPrice)
	hardHit := pnl <= hardThreshold

	neuralRequired := stage + neuralLevelBase
	neuralHit := stage <= neuralMaxStage && pnl < 0 && longSignal >= neuralRequired

	switch {
	case hardHit:
		return true, fmt.Sprintf("hard_stage_%d", stage)
	case neuralHit:
		return true, fmt.Sprintf("neural_%d", neuralRequired)
	default:
		return false, ""
	}
}

// CalculateDCAAmount returns the quote-currency size of the next DCA buy.
func (e *DCAEngine) CalculateDCAAmount(position model.Position, currentPrice float64) float64 {
	return position.Quantity * currentPrice * e.cfg.DCAMultiplier
}

// RecordBuy registers a DCA buy timestamp against coin's rate limiter.
func (e *DCAEngine) RecordBuy(coin string, ts float64) {
	e.buyTimestamps[coin] = append(e.buyTimestamps[coin], ts)
}

// RecordSell resets rate-limit state for coin: the buy list is cleared and
// the trade boundary advances to ts.
func (e *DCAEngine) RecordSell(coin string, ts float64) {
	e.buyTimestamps[coin] = nil
	e.lastSell[coin] = ts
}

// SeedFromJournal replays a coin's trade_history.jsonl records (oldest
// first) to rebuild rate-limit state after a trader restart. The in-memory
// buy list and last-sell timestamp would otherwise reset to empty on every
// process start, silently granting a full new 24h quota.
func (e *DCAEngine) SeedFromJournal(coin string, records []map[string]any) {
	for _, rec := range records {
		symbol, _ := rec["symbol"].(string)
		if symbol != coin {
			continue
		}
		ts, _ := rec["ts"].(float64)
		side, _ := rec["side"].(string)
		tag, _ := rec["tag"].(string)
		switch {
		case side == "sell":
			e.RecordSell(coin, ts)
		case side == "buy" && tag != "entry":
			e.RecordBuy(coin, ts)
		}
	}
}
