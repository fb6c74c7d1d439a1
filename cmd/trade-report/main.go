// Command trade-report renders the trader's journal and status files into a
// console summary and, on request, CSV/XLSX report files.
//
// Usage:
//
//	trade-report [--data-root DIR] [--xlsx out.xlsx] [--csv out.csv]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ibrahim3d/powertrader/internal/storage"
	"github.com/ibrahim3d/powertrader/pkg/reporting"
)

func main() {
	var (
		dataRoot = flag.String("data-root", "data", "Data root directory shared with the trader")
		xlsxOut  = flag.String("xlsx", "", "Write the trade history to this .xlsx workbook")
		csvOut   = flag.String("csv", "", "Write the trade history to this .csv file")
	)
	flag.Parse()

	store := storage.NewFileStore()
	hubDir := filepath.Join(*dataRoot, storage.HubDataDir)

	lines := store.ReadJSONLines(filepath.Join(hubDir, storage.TradeHistoryFilename))
	records := reporting.LoadTradeRecords(lines)
	if len(records) == 0 {
		fmt.Println("no trades recorded yet")
	}

	reporter := reporting.NewDefaultReporter()
	reporter.PrintTradeSummary(records)

	var status reporting.StatusSnapshot
	if store.ReadJSON(filepath.Join(hubDir, storage.TraderStatusFilename), &status) {
		reporter.PrintStatus(status)
	}

	if *xlsxOut != "" {
		if err := reporter.WriteTradesXLSX(records, *xlsxOut); err != nil {
			fmt.Fprintf(os.Stderr, "xlsx export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *xlsxOut)
	}
	if *csvOut != "" {
		if err := reporter.WriteTradesCSV(records, *csvOut); err != nil {
			fmt.Fprintf(os.Stderr, "csv export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *csvOut)
	}
}
