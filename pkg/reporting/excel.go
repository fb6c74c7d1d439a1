package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

// DefaultExcelReporter writes trade_history.jsonl records to a workbook with
// a chronological Trades sheet and a per-coin Summary sheet.
type DefaultExcelReporter struct{}

func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes records to an .xlsx workbook at path.
func (r *DefaultExcelReporter) WriteTradesXLSX(records []TradeRecord, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const summarySheet = "Summary"
	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(summarySheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, records, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, summarySheet, records, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    9,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.RedPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    9,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.GreenPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    9,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.EntryStyle, err = fx.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.ExitStyle, err = fx.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6FFE6"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 2},
			{Type: "right", Color: "000000", Style: 2},
			{Type: "top", Color: "000000", Style: 2},
			{Type: "bottom", Color: "000000", Style: 2},
		},
	})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, records []TradeRecord, styles ExcelStyles) error {
	fx.SetColWidth(sheet, "A", "A", 20) // Timestamp
	fx.SetColWidth(sheet, "B", "B", 10) // Coin
	fx.SetColWidth(sheet, "C", "C", 10) // Side
	fx.SetColWidth(sheet, "D", "D", 14) // Tag
	fx.SetColWidth(sheet, "E", "E", 14) // Price
	fx.SetColWidth(sheet, "F", "F", 16) // Quantity
	fx.SetColWidth(sheet, "G", "G", 14) // Value
	fx.SetColWidth(sheet, "H", "H", 12) // PnL %
	fx.SetColWidth(sheet, "I", "I", 12) // Fees
	fx.SetColWidth(sheet, "J", "J", 24) // Order ID

	headers := []string{"Timestamp", "Coin", "Side", "Tag", "Price", "Quantity", "Value", "PnL %", "Fees", "Order ID"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	sorted := make([]TradeRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	row := 2
	for _, rec := range sorted {
		r.WriteTradeRow(fx, sheet, row, rec, styles)
		row++
	}
	if row > 2 {
		fx.AutoFilter(sheet, fmt.Sprintf("A1:J%d", row-1), []excelize.AutoFilterOptions{})
	}
	return nil
}

// WriteTradeRow writes one trade's row, color-coding entries/exits and
// shading the PnL % column red or green.
func (r *DefaultExcelReporter) WriteTradeRow(fx *excelize.File, sheet string, row int, rec TradeRecord, styles ExcelStyles) {
	ts := time.Unix(int64(rec.Timestamp), 0).UTC().Format("2006-01-02 15:04:05")
	isEntry := rec.Side == "buy"
	rowStyle := styles.ExitStyle
	if isEntry {
		rowStyle = styles.EntryStyle
	}

	var pnl interface{} = ""
	if rec.HasPnL {
		pnl = rec.PnLPct / 100
	}

	values := []interface{}{ts, rec.Coin, rec.Side, rec.Tag, rec.Price, rec.Quantity, rec.Value, pnl, rec.FeesUSD, rec.OrderID}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		fx.SetCellValue(sheet, cell, v)
		switch i {
		case 4, 6, 8: // Price, Value, Fees
			fx.SetCellStyle(sheet, cell, cell, styles.CurrencyStyle)
		case 7: // PnL %
			if rec.HasPnL && rec.PnLPct < 0 {
				fx.SetCellStyle(sheet, cell, cell, styles.RedPercentStyle)
			} else if rec.HasPnL {
				fx.SetCellStyle(sheet, cell, cell, styles.GreenPercentStyle)
			} else {
				fx.SetCellStyle(sheet, cell, cell, styles.BaseStyle)
			}
		default:
			fx.SetCellStyle(sheet, cell, cell, rowStyle)
		}
	}
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, records []TradeRecord, styles ExcelStyles) error {
	sum := Summarize(records)

	fx.SetColWidth(sheet, "A", "A", 10)
	fx.SetColWidth(sheet, "B", "B", 10)
	fx.SetColWidth(sheet, "C", "C", 10)
	fx.SetColWidth(sheet, "D", "D", 10)
	fx.SetColWidth(sheet, "E", "E", 16)

	fx.SetCellValue(sheet, "A1", "PER-COIN SUMMARY")
	fx.MergeCell(sheet, "A1:E1", "")
	fx.SetCellStyle(sheet, "A1", "A1", styles.SummaryStyle)

	headers := []string{"Coin", "Trades", "Buys", "Sells", "Realized PnL %"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	coins := make([]string, 0, len(sum.ByCoin))
	for coin := range sum.ByCoin {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	row := 3
	for _, coin := range coins {
		c := sum.ByCoin[coin]
		values := []interface{}{c.Coin, c.Trades, c.Buys, c.Sells, c.RealizedPnLPct / 100}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			fx.SetCellValue(sheet, cell, v)
			if i == 4 {
				fx.SetCellStyle(sheet, cell, cell, styles.PercentStyle)
			} else {
				fx.SetCellStyle(sheet, cell, cell, styles.BaseStyle)
			}
		}
		row++
	}

	row++
	fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), "TOTAL")
	fx.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.HeaderStyle)
	fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), sum.TotalTrades)
	fx.SetCellValue(sheet, fmt.Sprintf("E%d", row), sum.RealizedPnLPct/100)
	fx.SetCellStyle(sheet, fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), styles.PercentStyle)

	return nil
}

// Package-level convenience function.
func WriteTradesXLSX(records []TradeRecord, path string) error {
	return NewDefaultExcelReporter().WriteTradesXLSX(records, path)
}
