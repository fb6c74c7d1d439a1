package reporting

// DefaultReporter implements the complete Reporter interface over trade
// history records.
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	paths   *DefaultPathManager
}

func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		paths:   NewDefaultPathManager(),
	}
}

func (r *DefaultReporter) PrintTradeSummary(records []TradeRecord) {
	r.console.PrintTradeSummary(records)
}

func (r *DefaultReporter) PrintStatus(status StatusSnapshot) {
	r.console.PrintStatus(status)
}

func (r *DefaultReporter) WriteTradesCSV(records []TradeRecord, path string) error {
	return r.csv.WriteTradesCSV(records, path)
}

func (r *DefaultReporter) WriteTradesXLSX(records []TradeRecord, path string) error {
	return r.excel.WriteTradesXLSX(records, path)
}

func (r *DefaultReporter) GetDefaultOutputDir(coin, label string) string {
	return r.paths.GetDefaultOutputDir(coin, label)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager drives a full report run according to a ReportingConfig:
// console tables, and CSV/Excel files under the default output directory.
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
}

func NewReportingManager(config ReportingConfig) *ReportingManager {
	return &ReportingManager{reporter: NewDefaultReporter(), config: config}
}

// ReportTrades prints and/or writes a trade history report for one coin (or
// "ALL") under label (typically a date).
func (m *ReportingManager) ReportTrades(records []TradeRecord, coin, label string) error {
	if m.config.EnableConsole {
		m.reporter.PrintTradeSummary(records)
	}

	if !m.config.EnableFiles {
		return nil
	}

	outputDir := m.config.OutputDirectory
	if outputDir == "" {
		outputDir = m.reporter.GetDefaultOutputDir(coin, label)
	}

	if m.config.CSVEnabled {
		if err := m.reporter.WriteTradesCSV(records, outputDir+"/trades.csv"); err != nil {
			return err
		}
	}
	if m.config.ExcelEnabled {
		if err := m.reporter.WriteTradesXLSX(records, outputDir+"/trades.xlsx"); err != nil {
			return err
		}
	}
	return nil
}
