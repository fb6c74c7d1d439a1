package trainer

import (
	"context"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ibrahim3d/powertrader/internal/exchange"
	"github.com/ibrahim3d/powertrader/internal/logger"
	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/monitoring"
	"github.com/ibrahim3d/powertrader/internal/storage"
)

const (
	maxHistoryCandles = 100_000

	fetchRetryBase    = 3500 * time.Millisecond
	fetchRetryFactor  = 2.0
	fetchRetryCap     = 30 * time.Second
	fetchRetryAttempts = 3
)

// Status is the on-disk shape of trainer_status.json.
type Status struct {
	State     string  `json:"state"`
	Coin      string  `json:"coin"`
	Timeframe string  `json:"timeframe"`
	Timestamp float64 `json:"timestamp"`
}

const (
	StateTraining    = "TRAINING"
	StateInterrupted = "INTERRUPTED"
	StateFinished    = "FINISHED"
)

// Checkpoint is the on-disk shape of trainer_checkpoint.json.
type Checkpoint struct {
	Coin      string  `json:"coin"`
	TFIndex   int     `json:"tf_index"`
	Timestamp float64 `json:"timestamp"`
}

// progress is the write-only GUI progress file; core never reads it back.
type progress struct {
	Coin         string  `json:"coin"`
	Timeframe    string  `json:"timeframe"`
	TimeframeIdx int     `json:"timeframe_index"`
	TimeframeMax int     `json:"timeframe_count"`
	Timestamp    float64 `json:"timestamp"`
}

// Runner drives the trainer loop: train(coins, reprocess) strictly
// sequential across coins and, within a coin, across the seven fixed
// timeframes, checkpointing and honoring killer.txt between steps.
type Runner struct {
	Market  exchange.MarketDataSource
	Store   *storage.FileStore
	BaseDir string
	Log     *logger.Logger
	Health  *monitoring.HealthMonitor

	// Retry tuning for fetchHistoryWithRetry, defaulted by NewRunner;
	// tests shrink these to avoid real sleeps.
	RetryBase     time.Duration
	RetryFactor   float64
	RetryCap      time.Duration
	RetryAttempts int
}

func NewRunner(market exchange.MarketDataSource, baseDir string, log *logger.Logger, health *monitoring.HealthMonitor) *Runner {
	return &Runner{
		Market:        market,
		Store:         storage.NewFileStore(),
		BaseDir:       baseDir,
		Log:           log,
		Health:        health,
		RetryBase:     fetchRetryBase,
		RetryFactor:   fetchRetryFactor,
		RetryCap:      fetchRetryCap,
		RetryAttempts: fetchRetryAttempts,
	}
}

func (r *Runner) killerPath() string { return filepath.Join(r.BaseDir, storage.KillerFilename) }

// stopRequested reports whether killer.txt contains the literal "yes".
func (r *Runner) stopRequested() bool {
	return strings.TrimSpace(r.Store.ReadText(r.killerPath())) == "yes"
}

// Train runs the trainer over coins strictly sequentially. On a killer.txt
// stop it persists whatever has been produced so far, marks the current
// coin INTERRUPTED, and returns immediately — remaining coins are not
// attempted (they'll be picked up on the next invocation).
func (r *Runner) Train(ctx context.Context, coins []string, reprocess bool) error {
	for _, coin := range coins {
		paths := storage.NewCoinPaths(r.BaseDir, coin)
		if err := paths.EnsureDir(); err != nil {
			r.logError("EnsureDir", err)
			continue
		}

		startIdx := 0
		if !reprocess {
			if cp, ok := r.readCheckpoint(paths); ok && cp.Coin == coin {
				startIdx = cp.TFIndex
			}
		}

		stopped := r.trainCoin(ctx, coin, paths, reprocess, startIdx)
		if r.Health != nil {
			r.Health.RecordHeartbeat("trainer")
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// trainCoin trains one coin across timeframes[startIdx:]. Returns true if a
// killer.txt stop was observed.
func (r *Runner) trainCoin(ctx context.Context, coin string, paths storage.CoinPaths, reprocess bool, startIdx int) bool {
	anySucceeded := false

	for idx := startIdx; idx < len(storage.Timeframes); idx++ {
		tf := storage.Timeframes[idx]

		if r.stopRequested() {
			r.writeStatus(paths, StateInterrupted, coin, tf)
			return true
		}

		r.writeStatus(paths, StateTraining, coin, tf)
		r.writeCheckpoint(paths, coin, idx)

		candles, err := r.fetchHistoryWithRetry(ctx, coin, tf)
		if err != nil {
			r.logError("fetch "+coin+" "+tf, err)
			continue
		}

		closePcts, highPcts, lowPcts := NormalizeCandles(candles)

		fresh := reprocess || !r.memoryExists(paths, tf)

		var mem model.PatternMemory
		if fresh {
			mem = BuildPatterns(closePcts, highPcts, lowPcts)
		} else {
			mem = r.loadMemory(paths, tf)
			var interrupted bool
			mem, interrupted = AdjustWeights(mem, closePcts, highPcts, lowPcts, r.stopRequested)
			if interrupted {
				r.saveMemory(paths, tf, mem)
				r.writeStatus(paths, StateInterrupted, coin, tf)
				return true
			}
		}

		r.saveMemory(paths, tf, mem)
		r.Store.WriteText(paths.TrainingTime(), strconv.FormatInt(time.Now().Unix(), 10))
		monitoring.TrainingPatternCount.WithLabelValues(coin, tf).Set(float64(mem.Size()))
		r.writeProgress(paths, coin, tf, idx)
		if r.Log != nil {
			r.Log.LogTrainingProgress(coin, tf, len(candles), trainingMode(fresh))
		}
		anySucceeded = true
	}

	if anySucceeded {
		r.clearCheckpoint(paths)
		r.writeStatus(paths, StateFinished, coin, storage.Timeframes[len(storage.Timeframes)-1])
	} else {
		r.writeStatus(paths, StateInterrupted, coin, storage.Timeframes[startIdx])
	}
	return false
}

// ForceRetrain deletes every persisted artifact for coin, then trains it
// from scratch.
func (r *Runner) ForceRetrain(ctx context.Context, coin string) error {
	paths := storage.NewCoinPaths(r.BaseDir, coin)
	r.Store.Remove(paths.TrainingTime())
	r.Store.Remove(paths.TrainerStatus())
	r.Store.Remove(paths.TrainerCheckpoint())
	r.Store.Remove(paths.TrainerProgress())
	r.Store.Remove(r.killerPath())
	for _, tf := range storage.Timeframes {
		r.Store.Remove(paths.MemoryFile(tf))
		r.Store.Remove(paths.WeightFile(tf))
		r.Store.Remove(paths.WeightHighFile(tf))
		r.Store.Remove(paths.WeightLowFile(tf))
		r.Store.Remove(paths.ThresholdFile(tf))
	}
	return r.Train(ctx, []string{coin}, true)
}

func (r *Runner) fetchHistoryWithRetry(ctx context.Context, coin, tf string) ([]model.Candle, error) {
	delay := r.RetryBase
	var lastErr error
	for attempt := 0; attempt < r.RetryAttempts; attempt++ {
		candles, err := r.Market.GetAllKlines(ctx, coin, tf, maxHistoryCandles)
		if err == nil {
			return candles, nil
		}
		lastErr = err
		if attempt == r.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(math.Min(float64(delay)*r.RetryFactor, float64(r.RetryCap)))
	}
	return nil, lastErr
}

func (r *Runner) memoryExists(paths storage.CoinPaths, tf string) bool {
	return r.Store.Exists(paths.MemoryFile(tf))
}

func (r *Runner) loadMemory(paths storage.CoinPaths, tf string) model.PatternMemory {
	text := r.Store.ReadText(paths.MemoryFile(tf))
	weights := r.Store.ReadText(paths.WeightFile(tf))
	weightsHigh := r.Store.ReadText(paths.WeightHighFile(tf))
	weightsLow := r.Store.ReadText(paths.WeightLowFile(tf))
	threshold := r.Store.ReadSignal(paths.ThresholdFile(tf), initialThreshold)
	return model.FromMemoryText(text, weights, weightsHigh, weightsLow, threshold)
}

func (r *Runner) saveMemory(paths storage.CoinPaths, tf string, mem model.PatternMemory) {
	r.Store.WriteText(paths.MemoryFile(tf), mem.ToMemoryText())
	r.Store.WriteText(paths.WeightFile(tf), model.ToWeightsText(mem.Weights))
	r.Store.WriteText(paths.WeightHighFile(tf), model.ToWeightsText(mem.WeightsHigh))
	r.Store.WriteText(paths.WeightLowFile(tf), model.ToWeightsText(mem.WeightsLow))
	r.Store.WriteSignal(paths.ThresholdFile(tf), mem.Threshold)
}

func (r *Runner) writeStatus(paths storage.CoinPaths, state, coin, tf string) {
	r.Store.WriteJSON(paths.TrainerStatus(), Status{State: state, Coin: coin, Timeframe: tf, Timestamp: float64(time.Now().Unix())})
}

func (r *Runner) writeCheckpoint(paths storage.CoinPaths, coin string, idx int) {
	r.Store.WriteJSON(paths.TrainerCheckpoint(), Checkpoint{Coin: coin, TFIndex: idx, Timestamp: float64(time.Now().Unix())})
}

func (r *Runner) clearCheckpoint(paths storage.CoinPaths) {
	r.Store.Remove(paths.TrainerCheckpoint())
}

func (r *Runner) readCheckpoint(paths storage.CoinPaths) (Checkpoint, bool) {
	var cp Checkpoint
	ok := r.Store.ReadJSON(paths.TrainerCheckpoint(), &cp)
	return cp, ok
}

func (r *Runner) logError(op string, err error) {
	if r.Log != nil {
		r.Log.LogError("trainer: "+op, err)
	}
	if r.Health != nil {
		r.Health.RecordError("trainer", op+": "+err.Error())
	}
}

func (r *Runner) writeProgress(paths storage.CoinPaths, coin, tf string, idx int) {
	r.Store.WriteJSON(paths.TrainerProgress(), progress{
		Coin:         coin,
		Timeframe:    tf,
		TimeframeIdx: idx,
		TimeframeMax: len(storage.Timeframes),
		Timestamp:    float64(time.Now().Unix()),
	})
}

func trainingMode(fresh bool) string {
	if fresh {
		return "build"
	}
	return "adjust"
}
