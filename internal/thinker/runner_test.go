package thinker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/storage"
)

type fakeMarket struct {
	price   float64
	candles []model.Candle
	err     error
}

func (f fakeMarket) GetKlines(ctx context.Context, symbol, timeframe string, limit int, startAt, endAt int64) ([]model.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}
func (f fakeMarket) GetCurrentPrice(ctx context.Context, symbol string) float64 { return f.price }
func (f fakeMarket) GetAllKlines(ctx context.Context, symbol, timeframe string, maxCandles int) ([]model.Candle, error) {
	return f.candles, nil
}

func writeSettings(t *testing.T, dir string, coins []string) {
	t.Helper()
	data, err := json.Marshal(map[string]any{"coins": coins})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.SettingsFilename), data, 0644))
}

func TestReloadCoinsIfChangedPicksUpSettings(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, []string{"BTC", "ETH"})

	r := NewRunner(fakeMarket{}, dir, nil, nil)
	r.reloadCoinsIfChanged()

	assert.Contains(t, r.coinPaths, "BTC")
	assert.Contains(t, r.coinPaths, "ETH")
	assert.DirExists(t, filepath.Join(dir, "ETH"))
}

func TestTickCoinWritesZeroSignalWhenTrainingStale(t *testing.T) {
	dir := t.TempDir()
	paths := storage.NewCoinPaths(dir, "BTC")
	require.NoError(t, paths.EnsureDir())

	r := NewRunner(fakeMarket{price: 100}, dir, nil, nil)
	r.tickCoin(context.Background(), "BTC", paths)

	store := storage.NewFileStore()
	assert.Equal(t, 0, store.ReadIntSignal(paths.SignalLong(), -1))
	assert.Equal(t, 0, store.ReadIntSignal(paths.SignalShort(), -1))
}

func TestTickCoinSkipsWithoutTouchingFilesWhenPriceZero(t *testing.T) {
	dir := t.TempDir()
	paths := storage.NewCoinPaths(dir, "BTC")
	require.NoError(t, paths.EnsureDir())
	store := storage.NewFileStore()
	store.WriteText(paths.TrainingTime(), "9999999999") // far future, not stale

	r := NewRunner(fakeMarket{price: 0}, dir, nil, nil)
	r.tickCoin(context.Background(), "BTC", paths)

	assert.False(t, store.Exists(paths.SignalLong()))
}

func TestTickCoinPublishesSignalOnFreshMemoryAndPrice(t *testing.T) {
	dir := t.TempDir()
	paths := storage.NewCoinPaths(dir, "BTC")
	require.NoError(t, paths.EnsureDir())
	store := storage.NewFileStore()
	store.WriteText(paths.TrainingTime(), "9999999999")

	candles := []model.Candle{
		{Open: 100, Close: 101},
		{Open: 101, Close: 103},
	}

	r := NewRunner(fakeMarket{price: 100, candles: candles}, dir, nil, nil)
	r.tickCoin(context.Background(), "BTC", paths)

	assert.True(t, store.Exists(paths.SignalLong()))
	assert.True(t, store.Exists(paths.BoundsHigh()))
	assert.True(t, store.Exists(paths.BoundsLow()))
	assert.True(t, store.Exists(paths.CurrentPrice()))
}

func TestRunStopsPromptlyWhenStopCalled(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, []string{"BTC"})

	r := NewRunner(fakeMarket{}, dir, nil, nil)
	r.TickInterval = time.Millisecond

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	r.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop within 1s of Stop()")
	}
}
