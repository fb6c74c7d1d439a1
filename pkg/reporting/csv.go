package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCSVReporter writes trade_history.jsonl records to a flat CSV file.
type DefaultCSVReporter struct{}

func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes records to path, delegating to the Excel writer when
// path carries an .xlsx extension.
func (r *DefaultCSVReporter) WriteTradesCSV(records []TradeRecord, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteTradesXLSX(records, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Timestamp", "Coin", "Side", "Tag", "Price", "Quantity", "Value", "PnL_%", "Fees_USD", "Order_ID"}); err != nil {
		return err
	}

	for _, rec := range records {
		ts := time.Unix(int64(rec.Timestamp), 0).UTC().Format("2006-01-02 15:04:05")
		pnl := ""
		if rec.HasPnL {
			pnl = fmt.Sprintf("%.4f", rec.PnLPct)
		}
		row := []string{
			ts,
			rec.Coin,
			rec.Side,
			rec.Tag,
			fmt.Sprintf("%.8f", rec.Price),
			fmt.Sprintf("%.8f", rec.Quantity),
			fmt.Sprintf("%.4f", rec.Value),
			pnl,
			fmt.Sprintf("%.6f", rec.FeesUSD),
			rec.OrderID,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	sum := Summarize(records)
	summary := fmt.Sprintf("SUMMARY: total_trades=%d; buys=%d; sells=%d; realized_pnl_pct=%.2f; total_fees_usd=%.6f",
		sum.TotalTrades, sum.BuyCount, sum.SellCount, sum.RealizedPnLPct, sum.TotalFeesUSD)
	summaryRow := make([]string, 10)
	summaryRow[9] = summary
	return w.Write(summaryRow)
}

// Package-level convenience function.
func WriteTradesCSV(records []TradeRecord, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(records, path)
}
