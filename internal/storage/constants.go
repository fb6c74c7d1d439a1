package storage

// Timeframes in the fixed order every trainer/thinker pass iterates.
var Timeframes = [7]string{"1h", "2h", "4h", "8h", "12h", "1d", "1w"}

// TimeframeMinutes maps each timeframe to its candle span in minutes.
var TimeframeMinutes = map[string]int{
	"1h": 60, "2h": 120, "4h": 240, "8h": 480, "12h": 720, "1d": 1440, "1w": 10080,
}

const (
	SentinelHigh = 9.9999e16
	SentinelLow  = 0.01

	QuoteAsset = "USDT"

	TrainingStaleSeconds = 14 * 24 * 60 * 60

	SettingsFilename      = "gui_settings.json"
	KillerFilename        = "killer.txt"
	KillerCheckInterval   = 50
	TrainerStatusFilename = "trainer_status.json"
	TrainerCheckpointFile = "trainer_checkpoint.json"
	TrainerProgressFile   = "trainer_progress.json"
	TrainingTimeFilename  = "trainer_last_training_time.txt"

	LongSignalFilename  = "long_dca_signal.txt"
	ShortSignalFilename = "short_dca_signal.txt"
	LongPMFilename      = "futures_long_profit_margin.txt"
	ShortPMFilename     = "futures_short_profit_margin.txt"
	HighBoundsFilename  = "high_bound_prices.html"
	LowBoundsFilename   = "low_bound_prices.html"

	HubDataDir             = "hub_data"
	TraderStatusFilename   = "trader_status.json"
	TradeHistoryFilename   = "trade_history.jsonl"
	AccountValueFilename   = "account_value_history.jsonl"
)
