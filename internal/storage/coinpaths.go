package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CoinPaths resolves the on-disk convention where BTC's files live directly
// under the project base directory and every other coin gets its own
// subfolder (e.g. "ETH/", "DOGE/").
type CoinPaths struct {
	Coin string
	Base string
}

// NewCoinPaths builds the CoinPaths for one coin under baseDir.
func NewCoinPaths(baseDir, coin string) CoinPaths {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	base := baseDir
	if coin != "BTC" {
		base = filepath.Join(baseDir, coin)
	}
	return CoinPaths{Coin: coin, Base: base}
}

func (p CoinPaths) MemoryFile(tf string) string      { return filepath.Join(p.Base, fmt.Sprintf("memories_%s.txt", tf)) }
func (p CoinPaths) WeightFile(tf string) string       { return filepath.Join(p.Base, fmt.Sprintf("memory_weights_%s.txt", tf)) }
func (p CoinPaths) WeightHighFile(tf string) string   { return filepath.Join(p.Base, fmt.Sprintf("memory_weights_high_%s.txt", tf)) }
func (p CoinPaths) WeightLowFile(tf string) string    { return filepath.Join(p.Base, fmt.Sprintf("memory_weights_low_%s.txt", tf)) }
func (p CoinPaths) ThresholdFile(tf string) string    { return filepath.Join(p.Base, fmt.Sprintf("neural_perfect_threshold_%s.txt", tf)) }

func (p CoinPaths) SignalLong() string  { return filepath.Join(p.Base, LongSignalFilename) }
func (p CoinPaths) SignalShort() string { return filepath.Join(p.Base, ShortSignalFilename) }

func (p CoinPaths) ProfitMarginLong() string  { return filepath.Join(p.Base, LongPMFilename) }
func (p CoinPaths) ProfitMarginShort() string { return filepath.Join(p.Base, ShortPMFilename) }

func (p CoinPaths) BoundsHigh() string { return filepath.Join(p.Base, HighBoundsFilename) }
func (p CoinPaths) BoundsLow() string  { return filepath.Join(p.Base, LowBoundsFilename) }

func (p CoinPaths) CurrentPrice() string {
	return filepath.Join(p.Base, fmt.Sprintf("%s_current_price.txt", p.Coin))
}

func (p CoinPaths) TrainingTime() string    { return filepath.Join(p.Base, TrainingTimeFilename) }
func (p CoinPaths) TrainerStatus() string   { return filepath.Join(p.Base, TrainerStatusFilename) }
func (p CoinPaths) TrainerCheckpoint() string { return filepath.Join(p.Base, TrainerCheckpointFile) }
func (p CoinPaths) TrainerProgress() string { return filepath.Join(p.Base, TrainerProgressFile) }

// EnsureDir creates the coin's folder if it does not already exist.
func (p CoinPaths) EnsureDir() error {
	return os.MkdirAll(p.Base, 0755)
}

// BuildCoinPaths builds a {coin: CoinPaths} map for every configured coin.
// Non-BTC coins are only included if their folder already exists, unless
// createMissing is set — a coin added to the settings file mid-run does not
// silently start writing files until its folder is provisioned.
func BuildCoinPaths(baseDir string, coins []string, createMissing bool) map[string]CoinPaths {
	out := make(map[string]CoinPaths, len(coins))
	for _, raw := range coins {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		cp := NewCoinPaths(baseDir, sym)
		if createMissing {
			_ = cp.EnsureDir()
		}
		if sym == "BTC" {
			out[sym] = cp
			continue
		}
		if info, err := os.Stat(cp.Base); err == nil && info.IsDir() {
			out[sym] = cp
		}
	}
	return out
}
