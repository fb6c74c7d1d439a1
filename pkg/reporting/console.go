package reporting

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultConsoleReporter prints trade history and live status tables to the
// terminal using the same rounded table style the live trading console uses.
type DefaultConsoleReporter struct{}

func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// PrintTradeSummary renders a totals table and a per-coin breakdown table.
func (r *DefaultConsoleReporter) PrintTradeSummary(records []TradeRecord) {
	sum := Summarize(records)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRADE HISTORY SUMMARY")
	t.SetStyle(table.StyleRounded)

	winRate := 0.0
	if sum.WinningExits+sum.LosingExits > 0 {
		winRate = float64(sum.WinningExits) / float64(sum.WinningExits+sum.LosingExits) * 100
	}

	t.AppendRows([]table.Row{
		{"📊 Total Trades", sum.TotalTrades},
		{"📈 Buys", sum.BuyCount},
		{"📉 Sells", sum.SellCount},
		{"🔄 DCA Buys", sum.DCACount},
		{"✅ Winning Exits", fmt.Sprintf("%d (%.1f%%)", sum.WinningExits, winRate)},
		{"❌ Losing Exits", sum.LosingExits},
		{"💹 Realized PnL", fmt.Sprintf("%.2f%%", sum.RealizedPnLPct)},
		{"💸 Total Fees", fmt.Sprintf("$%.4f", sum.TotalFeesUSD)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Println()

	if len(sum.ByCoin) == 0 {
		return
	}

	coins := make([]string, 0, len(sum.ByCoin))
	for coin := range sum.ByCoin {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	ct := table.NewWriter()
	ct.SetOutputMirror(os.Stdout)
	ct.SetTitle("PER-COIN BREAKDOWN")
	ct.SetStyle(table.StyleRounded)
	ct.AppendHeader(table.Row{"Coin", "Trades", "Buys", "Sells", "Realized PnL %"})
	for _, coin := range coins {
		c := sum.ByCoin[coin]
		ct.AppendRow(table.Row{c.Coin, c.Trades, c.Buys, c.Sells, fmt.Sprintf("%.2f%%", c.RealizedPnLPct)})
	}
	ct.Render()
	fmt.Println()
}

// PrintStatus renders the live trader_status.json snapshot.
func (r *DefaultConsoleReporter) PrintStatus(status StatusSnapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRADER STATUS")
	t.SetStyle(table.StyleRounded)
	t.AppendRow(table.Row{"💰 Account Value", fmt.Sprintf("$%.2f", status.AccountValueUSD)})
	t.AppendRow(table.Row{"🪙 Open Positions", len(status.Positions)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Println()

	if len(status.Positions) == 0 {
		return
	}

	coins := make([]string, 0, len(status.Positions))
	for coin := range status.Positions {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	pt := table.NewWriter()
	pt.SetOutputMirror(os.Stdout)
	pt.SetTitle("OPEN POSITIONS")
	pt.SetStyle(table.StyleRounded)
	pt.AppendHeader(table.Row{"Coin", "Qty", "Avg Price", "DCA Count", "PnL %", "Trailing"})
	for _, coin := range coins {
		p := status.Positions[coin]
		trailing := "inactive"
		if p.TrailingActive {
			trailing = "active"
		}
		pnlStyle := p.PnLPct
		row := table.Row{coin, fmt.Sprintf("%.6f", p.Quantity), fmt.Sprintf("%.4f", p.AvgPrice), p.DCACount, fmt.Sprintf("%.2f%%", pnlStyle), trailing}
		pt.AppendRow(row)
	}
	pt.Render()
	fmt.Println()
}

// Package-level convenience functions.

func PrintTradeSummary(records []TradeRecord) {
	NewDefaultConsoleReporter().PrintTradeSummary(records)
}

func PrintStatus(status StatusSnapshot) {
	NewDefaultConsoleReporter().PrintStatus(status)
}
