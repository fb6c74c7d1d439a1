// Package thinker drives the signal engine per coin on a ~150ms cadence,
// publishing the file-system signal, bound, and price files the trader
// reads.
package thinker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ibrahim3d/powertrader/internal/config"
	"github.com/ibrahim3d/powertrader/internal/exchange"
	"github.com/ibrahim3d/powertrader/internal/logger"
	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/monitoring"
	"github.com/ibrahim3d/powertrader/internal/signalengine"
	"github.com/ibrahim3d/powertrader/internal/storage"
)

const tickInterval = 150 * time.Millisecond

// Runner drives run(): iterate every configured coin, hot-reload the coin
// list off the settings file's modification time, and publish signals.
type Runner struct {
	Market  exchange.MarketDataSource
	Store   *storage.FileStore
	BaseDir string
	Log     *logger.Logger
	Health  *monitoring.HealthMonitor

	TickInterval time.Duration

	stopFlag        int32
	settingsModTime time.Time
	loadedOnce      bool
	coinPaths       map[string]storage.CoinPaths
}

func NewRunner(market exchange.MarketDataSource, baseDir string, log *logger.Logger, health *monitoring.HealthMonitor) *Runner {
	return &Runner{
		Market:       market,
		Store:        storage.NewFileStore(),
		BaseDir:      baseDir,
		Log:          log,
		Health:       health,
		TickInterval: tickInterval,
		coinPaths:    map[string]storage.CoinPaths{},
	}
}

// Stop requests the run loop exit at the top of its next iteration.
func (r *Runner) Stop() { atomic.StoreInt32(&r.stopFlag, 1) }

func (r *Runner) stopped() bool { return atomic.LoadInt32(&r.stopFlag) == 1 }

func (r *Runner) settingsPath() string { return filepath.Join(r.BaseDir, storage.SettingsFilename) }

// Run loops until Stop is called or ctx is canceled, ticking every coin once
// per iteration at TickInterval spacing.
func (r *Runner) Run(ctx context.Context) {
	for !r.stopped() {
		r.reloadCoinsIfChanged()

		for coin, paths := range r.coinPaths {
			r.tickCoin(ctx, coin, paths)
		}

		if r.Health != nil {
			r.Health.RecordHeartbeat("thinker")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.TickInterval):
		}
	}
}

// reloadCoinsIfChanged recomputes the tracked coin set whenever the settings
// file's mtime advances, adding freshly-discovered coins (and provisioning
// their folders) and dropping removed ones.
func (r *Runner) reloadCoinsIfChanged() {
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
	r.coinPaths = storage.BuildCoinPaths(r.BaseDir, cfg.Coins, true)
	r.loadedOnce = true
}

// tickCoin runs one signal-generation pass for coin. Any I/O, parsing, or
// network failure is caught here and logged; it never propagates to halt
// the other coins or the loop itself.
func (r *Runner) tickCoin(ctx context.Context, coin string, paths storage.CoinPaths) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logError(coin, fmt.Errorf("panic: %v", rec))
		}
	}()

	if r.isTrainingStale(paths) {
		r.writeZeroSignal(paths)
		return
	}

	memories := r.loadMemories(paths)

	price := r.Market.GetCurrentPrice(ctx, coin)
	if price <= 0 {
		return
	}

	// Two bars are fetched so the pattern is built from the last fully
	// closed 1h candle rather than one still in progress.
	candles, err := r.Market.GetKlines(ctx, coin, "1h", 2, 0, 0)
	if err != nil || len(candles) < 2 {
		return
	}
	closed := candles[len(candles)-2]

	signal := signalengine.GenerateSignal(coin, price, closed.Open, closed.Close, memories)
	r.publishSignal(paths, coin, signal, price)
}

func (r *Runner) isTrainingStale(paths storage.CoinPaths) bool {
	last := r.Store.ReadSignal(paths.TrainingTime(), 0)
	if last <= 0 {
		return true
	}
	age := time.Now().Unix() - int64(last)
	return age > storage.TrainingStaleSeconds
}

func (r *Runner) loadMemories(paths storage.CoinPaths) map[string]model.PatternMemory {
	out := make(map[string]model.PatternMemory, len(storage.Timeframes))
	for _, tf := range storage.Timeframes {
		if !r.Store.Exists(paths.MemoryFile(tf)) {
			continue
		}
		text := r.Store.ReadText(paths.MemoryFile(tf))
		weights := r.Store.ReadText(paths.WeightFile(tf))
		weightsHigh := r.Store.ReadText(paths.WeightHighFile(tf))
		weightsLow := r.Store.ReadText(paths.WeightLowFile(tf))
		threshold := r.Store.ReadSignal(paths.ThresholdFile(tf), 1.0)
		mem := model.FromMemoryText(text, weights, weightsHigh, weightsLow, threshold)
		if mem.IsEmpty() {
			continue
		}
		out[tf] = mem
	}
	return out
}

// writeZeroSignal is the freshness-gate path: the four trader-facing signal
// files are written as zero rather than left untouched, so a stale memory
// can never keep an old conviction level alive.
func (r *Runner) writeZeroSignal(paths storage.CoinPaths) {
	r.Store.WriteIntSignal(paths.SignalLong(), 0)
	r.Store.WriteIntSignal(paths.SignalShort(), 0)
	r.Store.WriteSignal(paths.ProfitMarginLong(), 0)
	r.Store.WriteSignal(paths.ProfitMarginShort(), 0)
}

func (r *Runner) publishSignal(paths storage.CoinPaths, coin string, signal model.Signal, price float64) {
	r.Store.WriteIntSignal(paths.SignalLong(), signal.LongLevel)
	r.Store.WriteIntSignal(paths.SignalShort(), signal.ShortLevel)
	r.Store.WriteSignal(paths.ProfitMarginLong(), signal.LongProfitMargin)
	r.Store.WriteSignal(paths.ProfitMarginShort(), signal.ShortProfitMargin)
	r.Store.WriteText(paths.BoundsHigh(), formatFloats(signal.ShortBounds))
	r.Store.WriteText(paths.BoundsLow(), formatFloats(signal.LongBounds))
	r.Store.WriteText(paths.CurrentPrice(), strconv.FormatFloat(price, 'f', -1, 64))

	monitoring.SignalLevel.WithLabelValues(coin, "long").Set(float64(signal.LongLevel))
	monitoring.SignalLevel.WithLabelValues(coin, "short").Set(float64(signal.ShortLevel))

	if r.Log != nil {
		r.Log.Signal("%s long=%d short=%d price=%.8f", coin, signal.LongLevel, signal.ShortLevel, price)
	}
}

func (r *Runner) logError(coin string, err error) {
	if r.Log != nil {
		r.Log.LogError("thinker: "+coin, err)
	}
	if r.Health != nil {
		r.Health.RecordError("thinker", coin+": "+err.Error())
	}
}

func formatFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}
