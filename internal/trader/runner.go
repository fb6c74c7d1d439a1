package trader

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ibrahim3d/powertrader/internal/config"
	"github.com/ibrahim3d/powertrader/internal/exchange"
	"github.com/ibrahim3d/powertrader/internal/logger"
	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/monitoring"
	"github.com/ibrahim3d/powertrader/internal/storage"
)

const (
	tickInterval  = 500 * time.Millisecond
	postFillPause = 5 * time.Second

	// minEntryUSD floors the first-entry size so a tiny account still
	// places an order the venue will accept.
	minEntryUSD = 0.50
)

// Runner drives the trader's per-tick loop: reconcile holdings, check exits,
// update trailing state, check DCA, scan for new entries, then journal.
// That ordering is load-bearing — see manageExisting and Run.
type Runner struct {
	Venue   exchange.TradingVenue
	Store   *storage.FileStore
	BaseDir string
	Log     *logger.Logger
	Health  *monitoring.HealthMonitor

	DCA      *DCAEngine
	Trailing *TrailingEngine

	TickInterval  time.Duration
	PostFillPause time.Duration

	positions       map[string]*model.Position
	cfg             config.TradingConfig
	settingsModTime time.Time
	loadedOnce      bool
	coinPaths       map[string]storage.CoinPaths
	stopFlag        int32
}

func NewRunner(venue exchange.TradingVenue, baseDir string, log *logger.Logger, health *monitoring.HealthMonitor) *Runner {
	cfg := config.Default()
	return &Runner{
		Venue:         venue,
		Store:         storage.NewFileStore(),
		BaseDir:       baseDir,
		Log:           log,
		Health:        health,
		DCA:           NewDCAEngine(cfg),
		Trailing:      NewTrailingEngine(cfg),
		TickInterval:  tickInterval,
		PostFillPause: postFillPause,
		positions:     map[string]*model.Position{},
		cfg:           cfg,
	}
}

func (r *Runner) Stop() { atomic.StoreInt32(&r.stopFlag, 1) }

func (r *Runner) stopped() bool { return atomic.LoadInt32(&r.stopFlag) == 1 }

func (r *Runner) settingsPath() string { return filepath.Join(r.BaseDir, storage.SettingsFilename) }
func (r *Runner) hubDir() string       { return filepath.Join(r.BaseDir, storage.HubDataDir) }
func (r *Runner) statusPath() string   { return filepath.Join(r.hubDir(), storage.TraderStatusFilename) }
func (r *Runner) journalPath() string  { return filepath.Join(r.hubDir(), storage.TradeHistoryFilename) }
func (r *Runner) accountValuePath() string {
	return filepath.Join(r.hubDir(), storage.AccountValueFilename)
}

// Run seeds position and DCA rate-limit state from the trade journal, then
// loops until Stop or ctx cancellation.
func (r *Runner) Run(ctx context.Context) {
	if err := os.MkdirAll(r.hubDir(), 0755); err != nil {
		r.logError("hub_data", err)
	}
	r.SeedFromJournal()
	for !r.stopped() {
		r.tick(ctx)
		if r.Health != nil {
			r.Health.RecordHeartbeat("trader")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.TickInterval):
		}
	}
}

// SeedFromJournal replays trade_history.jsonl to rebuild in-memory position
// cost basis, DCA stage, and the DCA rate limiter — without this, a trader
// restart would silently reset every coin's 24h DCA quota and lose its
// average entry price.
func (r *Runner) SeedFromJournal() {
	records := r.Store.ReadJSONLines(r.journalPath())
	for _, rec := range records {
		coin, _ := rec["symbol"].(string)
		if coin == "" {
			continue
		}
		side, _ := rec["side"].(string)
		tag, _ := rec["tag"].(string)
		qty, _ := rec["qty"].(float64)
		price, _ := rec["price"].(float64)
		ts, _ := rec["ts"].(float64)

		switch side {
		case "buy":
			pos, ok := r.positions[coin]
			if !ok {
				pos = &model.Position{Coin: coin}
				r.positions[coin] = pos
			}
			pos.Quantity += qty
			pos.CostBasisUSD += qty * price
			if pos.EntryPrice == 0 {
				pos.EntryPrice = price
			}
			if tag != "entry" {
				pos.DCACount++
				pos.DCATimestamps = append(pos.DCATimestamps, ts)
			}
		case "sell":
			delete(r.positions, coin)
		}
	}
	for coin, records := range r.groupByCoin(records) {
		r.DCA.SeedFromJournal(coin, records)
	}
}

func (r *Runner) groupByCoin(records []map[string]any) map[string][]map[string]any {
	out := map[string][]map[string]any{}
	for _, rec := range records {
		coin, _ := rec["symbol"].(string)
		if coin == "" {
			continue
		}
		out[coin] = append(out[coin], rec)
	}
	return out
}

func (r *Runner) reloadSettingsIfChanged() {
	info, statErr := os.Stat(r.settingsPath())
	if statErr == nil && r.loadedOnce && !info.ModTime().After(r.settingsModTime) {
		return
	}
	cfg, cfgErr := config.LoadTradingConfig(r.settingsPath())
	if cfgErr != nil {
		r.logError("gui_settings", cfgErr)
	}
	if statErr == nil {
		r.settingsModTime = info.ModTime()
	}
	r.cfg = cfg
	r.DCA.SetConfig(cfg)
	r.Trailing.SetConfig(cfg)
	r.coinPaths = storage.BuildCoinPaths(r.BaseDir, cfg.Coins, true)
	r.loadedOnce = true
}

// tick runs the strict per-tick sequence: reconcile, then per held coin
// exit-check -> trailing-update -> DCA-check, then scan for new entries,
// then journal the snapshot.
func (r *Runner) tick(ctx context.Context) {
	r.reloadSettingsIfChanged()

	prices, err := r.Venue.GetCurrentPrices(ctx, r.cfg.Coins)
	if err != nil {
		r.logError("prices", err)
		return
	}

	r.reconcile(ctx, prices)
	accountValue := r.accountValue(ctx, prices)
	monitoring.AccountValueUSD.Set(accountValue)

	for coin, pos := range r.positions {
		price := prices[coin]
		if price <= 0 {
			continue
		}
		paths, ok := r.coinPaths[coin]
		if !ok {
			paths = storage.NewCoinPaths(r.BaseDir, coin)
		}
		r.manageExisting(ctx, coin, pos, price, paths)
	}

	r.scanEntries(ctx, prices, accountValue)
	r.writeStatus(prices, accountValue)
	if err := r.Store.AppendJSONL(r.accountValuePath(), map[string]any{"ts": nowUnix(), "value_usd": accountValue}); err != nil {
		r.logError("account_value_history", err)
	}
}

// reconcile adopts externally-held coins with no tracked position (cost
// basis falls back to qty * current price per the no-journal-history case)
// and drops positions the venue no longer reports as held.
func (r *Runner) reconcile(ctx context.Context, prices map[string]float64) {
	holdings, err := r.Venue.GetHoldings(ctx)
	if err != nil {
		r.logError("reconcile", err)
		return
	}

	for coin, qty := range holdings {
		if qty <= 0 {
			continue
		}
		if pos, ok := r.positions[coin]; ok {
			pos.Quantity = qty
			continue
		}
		price := prices[coin]
		if price <= 0 {
			continue
		}
		// The true cost of an externally-originated holding is unknown;
		// qty * current price keeps the books consistent at adoption time.
		r.positions[coin] = &model.Position{Coin: coin, Quantity: qty, CostBasisUSD: qty * price, EntryPrice: price}
	}

	for coin, pos := range r.positions {
		if qty, held := holdings[coin]; !held || qty <= 0 {
			r.Trailing.Reset(pos)
			r.DCA.RecordSell(coin, nowUnix())
			delete(r.positions, coin)
		}
	}
}

func (r *Runner) accountValue(ctx context.Context, prices map[string]float64) float64 {
	balances, err := r.Venue.GetAccountBalance(ctx)
	if err != nil {
		r.logError("account_balance", err)
		return 0
	}
	total := balances[storage.QuoteAsset]
	for coin, pos := range r.positions {
		total += pos.MarketValue(prices[coin])
	}
	return total
}

// manageExisting implements exit-check -> trailing-update -> DCA-check for
// one held coin. ShouldExit MUST run before UpdateTrailing: it reads the
// WasAbove flag UpdateTrailing is about to overwrite for the next tick.
func (r *Runner) manageExisting(ctx context.Context, coin string, pos *model.Position, price float64, paths storage.CoinPaths) {
	if r.Trailing.ShouldExit(*pos, price) {
		r.executeExit(ctx, coin, pos, price)
		return
	}

	r.Trailing.UpdateTrailing(pos, price)

	longSignal := r.Store.ReadIntSignal(paths.SignalLong(), 0)
	if ok, reason := r.DCA.ShouldDCA(coin, *pos, price, longSignal, nowUnix()); ok {
		r.executeDCA(ctx, coin, pos, price, reason)
	}
}

func (r *Runner) executeExit(ctx context.Context, coin string, pos *model.Position, price float64) {
	trade, err := r.Venue.MarketSell(ctx, coin, pos.Quantity)
	if err != nil {
		r.logError("exit "+coin, err)
		return
	}
	if trade == nil {
		return
	}
	trade.Reason = "trailing_exit"
	trade.PnLPct = pos.PnLPct(price)

	r.journal(trade)
	monitoring.RecordTrade(coin, "sell", trade.Reason, trade.PnLPct, true)

	r.Trailing.Reset(pos)
	r.DCA.RecordSell(coin, trade.Timestamp)
	delete(r.positions, coin)

	r.pauseAfterFill()
}

func (r *Runner) executeDCA(ctx context.Context, coin string, pos *model.Position, price float64, reason string) {
	amount := r.DCA.CalculateDCAAmount(*pos, price)
	if amount <= 0 {
		return
	}
	trade, err := r.Venue.MarketBuy(ctx, coin, amount)
	if err != nil {
		r.logError("dca "+coin, err)
		return
	}
	if trade == nil {
		return
	}
	trade.Reason = reason

	pos.Quantity += trade.Quantity
	pos.CostBasisUSD += trade.Value
	pos.DCACount++
	pos.DCATimestamps = append(pos.DCATimestamps, trade.Timestamp)
	r.Trailing.Reset(pos)
	r.DCA.RecordBuy(coin, trade.Timestamp)

	r.journal(trade)
	monitoring.RecordTrade(coin, "buy", trade.Reason, 0, false)
	monitoring.DCACount.WithLabelValues(coin).Set(float64(pos.DCACount))

	r.pauseAfterFill()
}

// scanEntries opens a new position in every configured, untracked coin
// whose signal clears the entry gate (long_level >= trade_start_level and
// short_level == 0).
func (r *Runner) scanEntries(ctx context.Context, prices map[string]float64, accountValue float64) {
	for coin, paths := range r.coinPaths {
		if _, tracked := r.positions[coin]; tracked {
			continue
		}
		price := prices[coin]
		if price <= 0 {
			continue
		}
		sig := model.Signal{
			Coin:       coin,
			LongLevel:  r.Store.ReadIntSignal(paths.SignalLong(), 0),
			ShortLevel: r.Store.ReadIntSignal(paths.SignalShort(), 0),
		}
		if !sig.IsLongEntry(r.cfg.TradeStartLevel) {
			continue
		}

		amount := accountValue * r.cfg.StartAllocationPct
		if amount <= 0 {
			continue
		}
		if amount < minEntryUSD {
			amount = minEntryUSD
		}
		trade, err := r.Venue.MarketBuy(ctx, coin, amount)
		if err != nil {
			r.logError("entry "+coin, err)
			continue
		}
		if trade == nil {
			continue
		}
		trade.Reason = "entry"

		pos := &model.Position{Coin: coin, Quantity: trade.Quantity, CostBasisUSD: trade.Value, EntryPrice: trade.Price}
		r.Trailing.Reset(pos)
		r.positions[coin] = pos

		r.journal(trade)
		monitoring.RecordTrade(coin, "buy", trade.Reason, 0, false)

		r.pauseAfterFill()
	}
}

func (r *Runner) pauseAfterFill() {
	if r.PostFillPause > 0 {
		time.Sleep(r.PostFillPause)
	}
}

func (r *Runner) journal(trade *model.Trade) {
	if err := trade.Validate(); err != nil {
		r.logError("trade_validate", err)
		return
	}
	if err := r.Store.AppendJSONL(r.journalPath(), trade.ToJournalRecord()); err != nil {
		r.logError("journal", err)
	}
}

type statusSnapshot struct {
	Positions       map[string]positionSnapshot `json:"positions"`
	Coins           []string                    `json:"coins"`
	AccountValueUSD float64                     `json:"account_value_usd"`
	Timestamp       float64                     `json:"timestamp"`
}

type positionSnapshot struct {
	Quantity       float64 `json:"quantity"`
	AvgPrice       float64 `json:"avg_price"`
	EntryPrice     float64 `json:"entry_price"`
	CurrentPrice   float64 `json:"current_price"`
	PnLPct         float64 `json:"pnl_pct"`
	MarketValueUSD float64 `json:"market_value_usd"`
	DCACount       int     `json:"dca_count"`
	TrailingActive bool    `json:"trailing_active"`
	TrailingPeak   float64 `json:"trailing_peak"`
	TrailingLine   float64 `json:"trailing_line"`
}

func (r *Runner) writeStatus(prices map[string]float64, accountValue float64) {
	snap := statusSnapshot{
		Positions:       map[string]positionSnapshot{},
		Coins:           append([]string(nil), r.cfg.Coins...),
		AccountValueUSD: accountValue,
		Timestamp:       nowUnix(),
	}
	for coin, pos := range r.positions {
		price := prices[coin]
		snap.Positions[coin] = positionSnapshot{
			Quantity:       pos.Quantity,
			AvgPrice:       pos.AvgPrice(),
			EntryPrice:     pos.EntryPrice,
			CurrentPrice:   price,
			PnLPct:         pos.PnLPct(price),
			MarketValueUSD: pos.MarketValue(price),
			DCACount:       pos.DCACount,
			TrailingActive: pos.TrailingActive,
			TrailingPeak:   pos.TrailingPeak,
			TrailingLine:   pos.TrailingLine,
		}
	}
	if err := r.Store.WriteJSON(r.statusPath(), snap); err != nil {
		r.logError("trader_status", err)
	}
}

func (r *Runner) logError(op string, err error) {
	if r.Log != nil {
		r.Log.LogError("trader: "+op, err)
	}
	if r.Health != nil {
		r.Health.RecordError("trader", op+": "+err.Error())
	}
}

func nowUnix() float64 { return float64(time.Now().Unix()) }
