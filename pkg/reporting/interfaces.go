// Package reporting renders the trader's file-based state — trade_history.jsonl,
// trader_status.json, and account_value_history.jsonl — into human- and
// spreadsheet-consumable output.
package reporting

import (
	"github.com/xuri/excelize/v2"
)

// TradeRecord is one decoded line of trade_history.jsonl, matching the shape
// written by model.Trade.ToJournalRecord().
type TradeRecord struct {
	Timestamp float64
	Coin      string
	Side      string
	Tag       string
	Quantity  float64
	Price     float64
	Value     float64
	PnLPct    float64
	HasPnL    bool
	FeesUSD   float64
	OrderID   string
}

// StatusSnapshot mirrors trader_status.json.
type StatusSnapshot struct {
	Positions       map[string]PositionSnapshot `json:"positions"`
	AccountValueUSD float64                     `json:"account_value_usd"`
	Timestamp       float64                     `json:"timestamp"`
}

// PositionSnapshot mirrors one entry of trader_status.json's "positions" map.
type PositionSnapshot struct {
	Quantity       float64 `json:"quantity"`
	AvgPrice       float64 `json:"avg_price"`
	DCACount       int     `json:"dca_count"`
	PnLPct         float64 `json:"pnl_pct"`
	TrailingActive bool    `json:"trailing_active"`
}

// TradeSummary aggregates TradeRecords into the totals the console and
// Excel reporters both print.
type TradeSummary struct {
	TotalTrades    int
	BuyCount       int
	SellCount      int
	DCACount       int
	WinningExits   int
	LosingExits    int
	RealizedPnLPct float64
	TotalFeesUSD   float64
	ByCoin         map[string]*CoinSummary
}

// CoinSummary is the per-coin breakdown within a TradeSummary.
type CoinSummary struct {
	Coin           string
	Trades         int
	Buys           int
	Sells          int
	RealizedPnLPct float64
}

// ConsoleReporter prints trade history and live status to the terminal.
type ConsoleReporter interface {
	PrintTradeSummary(records []TradeRecord)
	PrintStatus(status StatusSnapshot)
}

// FileReporter writes trade history to durable report files.
type FileReporter interface {
	WriteTradesCSV(records []TradeRecord, path string) error
	WriteTradesXLSX(records []TradeRecord, path string) error
}

// ExcelFormatter is the lower-level cell/style writer FileReporter's Excel
// path is built on.
type ExcelFormatter interface {
	WriteTradeRow(fx *excelize.File, sheet string, row int, rec TradeRecord, styles ExcelStyles)
}

// PathManager resolves default output locations for generated reports.
type PathManager interface {
	GetDefaultOutputDir(coin, label string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces.
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds the excelize style IDs shared by the sheet writers.
type ExcelStyles struct {
	HeaderStyle       int
	CurrencyStyle     int
	PercentStyle      int
	BaseStyle         int
	RedPercentStyle   int
	GreenPercentStyle int
	EntryStyle        int
	ExitStyle         int
	SummaryStyle      int
}

// ReportingConfig controls which output formats a report run produces.
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
}
