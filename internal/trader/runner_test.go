package trader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/storage"
)

type fakeVenue struct {
	balances map[string]float64
	holdings map[string]float64
	prices   map[string]float64
	buys     []string
	sells    []string
}

func (f *fakeVenue) GetAccountBalance(ctx context.Context) (map[string]float64, error) {
	return f.balances, nil
}
func (f *fakeVenue) GetHoldings(ctx context.Context) (map[string]float64, error) {
	return f.holdings, nil
}
func (f *fakeVenue) MarketBuy(ctx context.Context, coin string, quoteAmount float64) (*model.Trade, error) {
	f.buys = append(f.buys, coin)
	price := f.prices[coin]
	qty := quoteAmount / price
	if f.holdings == nil {
		f.holdings = map[string]float64{}
	}
	f.holdings[coin] += qty
	return &model.Trade{Coin: coin, Side: model.TradeSideBuy, Price: price, Quantity: qty, Value: quoteAmount, Timestamp: 1000}, nil
}
func (f *fakeVenue) MarketSell(ctx context.Context, coin string, quantity float64) (*model.Trade, error) {
	f.sells = append(f.sells, coin)
	price := f.prices[coin]
	delete(f.holdings, coin)
	return &model.Trade{Coin: coin, Side: model.TradeSideSell, Price: price, Quantity: quantity, Value: quantity * price, Timestamp: 2000}, nil
}
func (f *fakeVenue) GetCurrentPrices(ctx context.Context, coins []string) (map[string]float64, error) {
	return f.prices, nil
}

// E1: a coin clearing the entry gate (long_level >= trade_start_level,
// short_level == 0) with no tracked position opens a new long entry.
func TestScanEntriesOpensPositionOnQualifyingSignal(t *testing.T) {
	dir := t.TempDir()
	venue := &fakeVenue{balances: map[string]float64{"USDT": 1000}, holdings: map[string]float64{}, prices: map[string]float64{"BTC": 50000}}
	r := NewRunner(venue, dir, nil, nil)
	r.PostFillPause = 0
	r.cfg.Coins = []string{"BTC"}
	r.coinPaths = storage.BuildCoinPaths(dir, []string{"BTC"}, true)
	r.loadedOnce = true

	paths := r.coinPaths["BTC"]
	store := storage.NewFileStore()
	require.NoError(t, store.WriteIntSignal(paths.SignalLong(), 4))
	require.NoError(t, store.WriteIntSignal(paths.SignalShort(), 0))

	r.scanEntries(context.Background(), venue.prices, 1000)

	require.Contains(t, venue.buys, "BTC")
	require.Contains(t, r.positions, "BTC")
	assert.Greater(t, r.positions["BTC"].Quantity, 0.0)
}

func TestScanEntriesSkipsWhenShortLevelNonZero(t *testing.T) {
	dir := t.TempDir()
	venue := &fakeVenue{balances: map[string]float64{"USDT": 1000}, holdings: map[string]float64{}, prices: map[string]float64{"BTC": 50000}}
	r := NewRunner(venue, dir, nil, nil)
	r.PostFillPause = 0
	r.coinPaths = storage.BuildCoinPaths(dir, []string{"BTC"}, true)
	r.loadedOnce = true

	paths := r.coinPaths["BTC"]
	store := storage.NewFileStore()
	require.NoError(t, store.WriteIntSignal(paths.SignalLong(), 7))
	require.NoError(t, store.WriteIntSignal(paths.SignalShort(), 1))

	r.scanEntries(context.Background(), venue.prices, 1000)

	assert.NotContains(t, r.positions, "BTC")
	assert.Empty(t, venue.buys)
}

// E6: an externally-held coin with no tracked position is adopted with a
// cost-basis fallback of qty * current price, then dropped from tracking
// once the venue no longer reports it as held.
func TestReconcileAdoptsThenDropsExternalHolding(t *testing.T) {
	dir := t.TempDir()
	venue := &fakeVenue{holdings: map[string]float64{"BTC": 0.01}, prices: map[string]float64{"BTC": 50000}}
	r := NewRunner(venue, dir, nil, nil)

	r.reconcile(context.Background(), venue.prices)
	require.Contains(t, r.positions, "BTC")
	assert.InDelta(t, 500.0, r.positions["BTC"].CostBasisUSD, 1e-9)
	assert.InDelta(t, 0.01, r.positions["BTC"].Quantity, 1e-9)

	venue.holdings = map[string]float64{}
	r.reconcile(context.Background(), venue.prices)
	assert.NotContains(t, r.positions, "BTC")
}

func TestManageExistingExecutesExitOnCrossover(t *testing.T) {
	dir := t.TempDir()
	venue := &fakeVenue{prices: map[string]float64{"BTC": 106}}
	r := NewRunner(venue, dir, nil, nil)
	r.PostFillPause = 0
	r.cfg.PMStartPctNoDCA = 5
	r.cfg.TrailingGapPct = 0.5
	r.Trailing.SetConfig(r.cfg)

	pos := &model.Position{Coin: "BTC", Quantity: 1, CostBasisUSD: 100, TrailingActive: true, TrailingPeak: 110, TrailingLine: 109, TrailingWasAbove: true}
	r.positions["BTC"] = pos

	paths := storage.NewCoinPaths(dir, "BTC")
	r.manageExisting(context.Background(), "BTC", pos, 106, paths)

	assert.Contains(t, venue.sells, "BTC")
	assert.NotContains(t, r.positions, "BTC")
}

func TestReloadSettingsToleratesMissingSettingsFile(t *testing.T) {
	// Sanity check that a pristine directory with no settings file doesn't
	// panic reloadSettingsIfChanged and still marks the settings as loaded.
	dir := t.TempDir()
	_, err := os.Stat(filepath.Join(dir, storage.SettingsFilename))
	assert.True(t, os.IsNotExist(err))

	venue := &fakeVenue{}
	r := NewRunner(venue, dir, nil, nil)
	r.reloadSettingsIfChanged()
	assert.True(t, r.loadedOnce)
}
