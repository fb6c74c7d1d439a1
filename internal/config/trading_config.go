// Package config loads the immutable per-run TradingConfig snapshot from the
// settings file the GUI and all three loops share. Unknown keys are ignored
// and missing keys fall back to defaults. trade_start_level is clamped to
// 1..7, and max_dca_buys_per_24h and the pm/trailing percentages are floored
// at 0; any other out-of-range value is kept and reported as a warning in the
// returned ConfigInvalid error rather than failing the load.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	boterrors "github.com/ibrahim3d/powertrader/internal/errors"
)

// Defaults mirror gui_settings.json's fallback values.
const (
	DefaultTradeStartLevel   = 3
	DefaultStartAllocPct     = 0.005
	DefaultDCAMultiplier     = 2.0
	DefaultMaxDCABuys24h     = 2
	DefaultPMStartPctNoDCA   = 5.0
	DefaultPMStartPctWithDCA = 2.5
	DefaultTrailingGapPct    = 0.5
	DefaultCandlesLimit      = 120
	DefaultUIRefreshSeconds  = 1.0
	DefaultChartRefreshSecs  = 10.0
)

var (
	DefaultCoins     = []string{"BTC", "ETH", "XRP", "BNB", "DOGE"}
	DefaultDCALevels = []float64{-2.5, -5.0, -10.0, -20.0, -30.0, -40.0, -50.0}
)

// TradingConfig is the immutable per-run snapshot loaded from gui_settings.json.
type TradingConfig struct {
	Coins               []string
	MainNeuralDir       string
	TradeStartLevel     int
	StartAllocationPct  float64
	DCAMultiplier       float64
	DCALevels           []float64
	MaxDCABuysPer24h    int
	PMStartPctNoDCA     float64
	PMStartPctWithDCA   float64
	TrailingGapPct      float64
	CandlesLimit        int
	UIRefreshSeconds    float64
	ChartRefreshSeconds float64
}

// Default returns the baseline configuration used when no settings file
// exists yet.
func Default() TradingConfig {
	coins := make([]string, len(DefaultCoins))
	copy(coins, DefaultCoins)
	levels := make([]float64, len(DefaultDCALevels))
	copy(levels, DefaultDCALevels)
	return TradingConfig{
		Coins:               coins,
		TradeStartLevel:     DefaultTradeStartLevel,
		StartAllocationPct:  DefaultStartAllocPct,
		DCAMultiplier:       DefaultDCAMultiplier,
		DCALevels:           levels,
		MaxDCABuysPer24h:    DefaultMaxDCABuys24h,
		PMStartPctNoDCA:     DefaultPMStartPctNoDCA,
		PMStartPctWithDCA:   DefaultPMStartPctWithDCA,
		TrailingGapPct:      DefaultTrailingGapPct,
		CandlesLimit:        DefaultCandlesLimit,
		UIRefreshSeconds:    DefaultUIRefreshSeconds,
		ChartRefreshSeconds: DefaultChartRefreshSecs,
	}
}

// LoadTradingConfig reads the settings file at path, falling back to
// defaults field-by-field on any parse failure. It always returns a usable
// configuration; a missing, corrupt or out-of-range settings file is also
// reported as a ConfigInvalid BotError, which the caller logs and continues
// past.
func LoadTradingConfig(path string) (TradingConfig, *boterrors.BotError) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, boterrors.NewConfigInvalidError("config", "LoadTradingConfig", fmt.Sprintf("could not read %s: %v", path, err))
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return cfg, boterrors.NewConfigInvalidError("config", "LoadTradingConfig", fmt.Sprintf("could not parse %s: %v", path, err))
	}

	cfg.Coins = parseCoins(data)
	cfg.MainNeuralDir = parseString(data["main_neural_dir"], "")
	cfg.TradeStartLevel = clampInt(parseInt(data["trade_start_level"], DefaultTradeStartLevel), 1, 7)
	cfg.StartAllocationPct = parseFloat(data["start_allocation_pct"], DefaultStartAllocPct)
	cfg.DCAMultiplier = parseFloat(data["dca_multiplier"], DefaultDCAMultiplier)
	cfg.DCALevels = parseDCALevels(data)
	cfg.MaxDCABuysPer24h = maxInt(0, parseInt(data["max_dca_buys_per_24h"], DefaultMaxDCABuys24h))
	cfg.PMStartPctNoDCA = maxFloat(0, parseFloat(data["pm_start_pct_no_dca"], DefaultPMStartPctNoDCA))
	cfg.PMStartPctWithDCA = maxFloat(0, parseFloat(data["pm_start_pct_with_dca"], DefaultPMStartPctWithDCA))
	cfg.TrailingGapPct = maxFloat(0, parseFloat(data["trailing_gap_pct"], DefaultTrailingGapPct))
	cfg.CandlesLimit = parseInt(data["candles_limit"], DefaultCandlesLimit)
	cfg.UIRefreshSeconds = parseFloat(data["ui_refresh_seconds"], DefaultUIRefreshSeconds)
	cfg.ChartRefreshSeconds = parseFloat(data["chart_refresh_seconds"], DefaultChartRefreshSecs)

	if warnings := cfg.Validate(); len(warnings) > 0 {
		return cfg, boterrors.NewConfigInvalidError("config", "LoadTradingConfig", strings.Join(warnings, "; "))
	}
	return cfg, nil
}

// Validate returns human-readable warnings for out-of-range values. An empty
// slice means the configuration is sound.
func (c TradingConfig) Validate() []string {
	var warnings []string
	if len(c.Coins) == 0 {
		warnings = append(warnings, "no coins configured")
	}
	if c.TradeStartLevel < 1 || c.TradeStartLevel > 7 {
		warnings = append(warnings, fmt.Sprintf("trade_start_level=%d outside 1-7 range", c.TradeStartLevel))
	}
	if c.StartAllocationPct <= 0 {
		warnings = append(warnings, fmt.Sprintf("start_allocation_pct=%v must be > 0", c.StartAllocationPct))
	}
	if c.DCAMultiplier < 0 {
		warnings = append(warnings, fmt.Sprintf("dca_multiplier=%v must be >= 0", c.DCAMultiplier))
	}
	if len(c.DCALevels) == 0 {
		warnings = append(warnings, "dca_levels is empty")
	}
	if c.MaxDCABuysPer24h < 0 {
		warnings = append(warnings, fmt.Sprintf("max_dca_buys_per_24h=%d must be >= 0", c.MaxDCABuysPer24h))
	}
	if c.PMStartPctNoDCA <= 0 {
		warnings = append(warnings, fmt.Sprintf("pm_start_pct_no_dca=%v must be > 0", c.PMStartPctNoDCA))
	}
	if c.PMStartPctWithDCA <= 0 {
		warnings = append(warnings, fmt.Sprintf("pm_start_pct_with_dca=%v must be > 0", c.PMStartPctWithDCA))
	}
	if c.TrailingGapPct <= 0 {
		warnings = append(warnings, fmt.Sprintf("trailing_gap_pct=%v must be > 0", c.TrailingGapPct))
	}
	return warnings
}

// DCALevelAt returns the DCA threshold for a zero-based stage index, with
// the last configured level repeating beyond the configured sequence.
func (c TradingConfig) DCALevelAt(stage int) float64 {
	if len(c.DCALevels) == 0 {
		return DefaultDCALevels[len(DefaultDCALevels)-1]
	}
	if stage < 0 {
		stage = 0
	}
	if stage >= len(c.DCALevels) {
		stage = len(c.DCALevels) - 1
	}
	return c.DCALevels[stage]
}

func parseCoins(data map[string]any) []string {
	raw, ok := data["coins"].([]any)
	if !ok || len(raw) == 0 {
		coins := make([]string, len(DefaultCoins))
		copy(coins, DefaultCoins)
		return coins
	}
	var coins []string
	for _, v := range raw {
		s := strings.ToUpper(strings.TrimSpace(fmt.Sprint(v)))
		if s != "" {
			coins = append(coins, s)
		}
	}
	if len(coins) == 0 {
		coins = make([]string, len(DefaultCoins))
		copy(coins, DefaultCoins)
	}
	return coins
}

func parseDCALevels(data map[string]any) []float64 {
	raw, ok := data["dca_levels"].([]any)
	if !ok || len(raw) == 0 {
		levels := make([]float64, len(DefaultDCALevels))
		copy(levels, DefaultDCALevels)
		return levels
	}
	levels := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(fmt.Sprint(v), "%")), 64)
		if err != nil {
			out := make([]float64, len(DefaultDCALevels))
			copy(out, DefaultDCALevels)
			return out
		}
		levels = append(levels, f)
	}
	return levels
}

func parseString(v any, def string) string {
	if v == nil {
		return def
	}
	return fmt.Sprint(v)
}

// parseInt and parseFloat tolerate settings values arriving as JSON numbers,
// plain strings, or percent-suffixed strings ("50%").
func parseInt(v any, def int) int {
	f := parseFloat(v, float64(def))
	return int(f)
}

func parseFloat(v any, def float64) float64 {
	if v == nil {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
