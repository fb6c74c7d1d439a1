package trainer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/storage"
)

// recordingMarket is a fake MarketDataSource that returns a fixed candle
// series for every timeframe and records which timeframes were queried, so
// tests can assert a resumed run skips the timeframes before its checkpoint.
type recordingMarket struct {
	mu       sync.Mutex
	queried  []string
	candles  []model.Candle
	failFor  map[string]bool
}

func (m *recordingMarket) GetKlines(ctx context.Context, symbol, timeframe string, limit int, startAt, endAt int64) ([]model.Candle, error) {
	return m.candles, nil
}

func (m *recordingMarket) GetCurrentPrice(ctx context.Context, symbol string) float64 { return 0 }

func (m *recordingMarket) GetAllKlines(ctx context.Context, symbol, timeframe string, maxCandles int) ([]model.Candle, error) {
	m.mu.Lock()
	m.queried = append(m.queried, timeframe)
	m.mu.Unlock()
	if m.failFor[timeframe] {
		return nil, assertErr
	}
	return m.candles, nil
}

var assertErr = &fetchError{"synthetic fetch failure"}

type fetchError struct{ msg string }

func (e *fetchError) Error() string { return e.msg }

func fixtureCandles(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		base := 100.0 + float64(i%5)
		out[i] = model.Candle{Timestamp: int64(i), Open: base, High: base + 2, Low: base - 2, Close: base + 1}
	}
	return out
}

func TestTrainBuildsFreshMemoryAndFinishes(t *testing.T) {
	dir := t.TempDir()
	market := &recordingMarket{candles: fixtureCandles(20)}
	r := NewRunner(market, dir, nil, nil)

	err := r.Train(context.Background(), []string{"BTC"}, false)
	require.NoError(t, err)

	paths := storage.NewCoinPaths(dir, "BTC")
	store := storage.NewFileStore()

	for _, tf := range storage.Timeframes {
		assert.True(t, store.Exists(paths.MemoryFile(tf)), "expected memory file for %s", tf)
	}

	var status Status
	require.True(t, store.ReadJSON(paths.TrainerStatus(), &status))
	assert.Equal(t, StateFinished, status.State)
	assert.False(t, store.Exists(paths.TrainerCheckpoint()))
}

func TestTrainResumesFromCheckpointSkippingCompletedTimeframes(t *testing.T) {
	dir := t.TempDir()
	paths := storage.NewCoinPaths(dir, "ETH")
	require.NoError(t, paths.EnsureDir())
	store := storage.NewFileStore()

	// Simulate an interrupted run that had completed through index 2 (4h).
	store.WriteJSON(paths.TrainerCheckpoint(), Checkpoint{Coin: "ETH", TFIndex: 3, Timestamp: 0})
	store.WriteJSON(paths.TrainerStatus(), Status{State: StateInterrupted, Coin: "ETH", Timeframe: storage.Timeframes[2]})

	market := &recordingMarket{candles: fixtureCandles(20)}
	r := NewRunner(market, dir, nil, nil)

	err := r.Train(context.Background(), []string{"ETH"}, false)
	require.NoError(t, err)

	for _, tf := range storage.Timeframes[:3] {
		assert.NotContains(t, market.queried, tf, "resumed run should not re-query %s", tf)
	}
	for _, tf := range storage.Timeframes[3:] {
		assert.Contains(t, market.queried, tf)
	}

	var status Status
	require.True(t, store.ReadJSON(paths.TrainerStatus(), &status))
	assert.Equal(t, StateFinished, status.State)
}

func TestTrainStopsImmediatelyWhenKillerFilePresent(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewFileStore()
	store.WriteText(filepath.Join(dir, storage.KillerFilename), "yes")

	market := &recordingMarket{candles: fixtureCandles(20)}
	r := NewRunner(market, dir, nil, nil)

	err := r.Train(context.Background(), []string{"BTC"}, false)
	require.NoError(t, err)

	assert.Empty(t, market.queried, "killer.txt should stop the run before any fetch")

	paths := storage.NewCoinPaths(dir, "BTC")
	var status Status
	require.True(t, store.ReadJSON(paths.TrainerStatus(), &status))
	assert.Equal(t, StateInterrupted, status.State)
}

func TestTrainContinuesPastATimeframeFetchFailure(t *testing.T) {
	dir := t.TempDir()
	market := &recordingMarket{
		candles: fixtureCandles(20),
		failFor: map[string]bool{"4h": true},
	}
	r := NewRunner(market, dir, nil, nil)
	r.RetryBase = time.Millisecond
	r.RetryCap = time.Millisecond

	err := r.Train(context.Background(), []string{"BTC"}, false)
	require.NoError(t, err)

	paths := storage.NewCoinPaths(dir, "BTC")
	store := storage.NewFileStore()
	assert.False(t, store.Exists(paths.MemoryFile("4h")))
	assert.True(t, store.Exists(paths.MemoryFile("1h")))
	assert.True(t, store.Exists(paths.MemoryFile("1w")))

	var status Status
	require.True(t, store.ReadJSON(paths.TrainerStatus(), &status))
	assert.Equal(t, StateFinished, status.State) // other six timeframes still succeeded
}

func TestForceRetrainRebuildsFromScratch(t *testing.T) {
	dir := t.TempDir()
	market := &recordingMarket{candles: fixtureCandles(20)}
	r := NewRunner(market, dir, nil, nil)

	require.NoError(t, r.Train(context.Background(), []string{"BTC"}, false))
	require.NoError(t, r.ForceRetrain(context.Background(), "BTC"))

	paths := storage.NewCoinPaths(dir, "BTC")
	store := storage.NewFileStore()
	var status Status
	require.True(t, store.ReadJSON(paths.TrainerStatus(), &status))
	assert.Equal(t, StateFinished, status.State)
	assert.True(t, store.Exists(paths.MemoryFile("1h")))
}
