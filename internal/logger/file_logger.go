// Package logger provides the dated, per-process file logger the trainer,
// thinker, and trader each open at startup.
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes level-tagged lines to a dated log file under logs/.
type Logger struct {
	process   string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logDir    string
	debugMode bool
}

// LogLevel tags the kind of entry being written.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelTrain   LogLevel = "TRAIN"
	LogLevelSignal  LogLevel = "SIGNAL"
)

// New opens (creating if needed) the dated log file for one process —
// "trainer", "thinker", or "trader".
func New(process string) (*Logger, error) {
	return NewWithDebug(process, false)
}

// NewWithDebug is New with explicit debug-mode control.
func NewWithDebug(process string, debugMode bool) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", process, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		process:   process,
		logFile:   file,
		logger:    log.New(file, "", 0),
		logDir:    logDir,
		debugMode: debugMode,
	}
	l.writeSessionHeader()
	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 %s SESSION STARTED
================================================================================
Started: %s
================================================================================
`, l.process, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted, level-tagged entry.
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

func (l *Logger) Info(format string, args ...interface{})    { l.Log(LogLevelInfo, format, args...) }
func (l *Logger) Warning(format string, args ...interface{}) { l.Log(LogLevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...interface{})   { l.Log(LogLevelError, format, args...) }
func (l *Logger) Trade(format string, args ...interface{})   { l.Log(LogLevelTrade, format, args...) }
func (l *Logger) Status(format string, args ...interface{})  { l.Log(LogLevelStatus, format, args...) }
func (l *Logger) Train(format string, args ...interface{})   { l.Log(LogLevelTrain, format, args...) }
func (l *Logger) Signal(format string, args ...interface{})  { l.Log(LogLevelSignal, format, args...) }

// Debug logs only when debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.debugMode {
		l.Log(LogLevelDebug, format, args...)
	}
}

// LogError logs an error with a short context label.
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogTradeExecution logs a fill with the full banner treatment.
func (l *Logger) LogTradeExecution(coin, side, reason, orderID string, quantity, price, value float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	tradeLog := fmt.Sprintf(`
[%s] [TRADE] ==================== %s %s EXECUTED ====================
✅ Order ID: %s | Reason: %s
📦 Quantity: %.8f %s
💰 Price: $%.4f | Value: $%.2f
=============================================================`,
		timestamp, side, coin, orderID, reason, quantity, coin, price, value)

	l.logger.Println(tradeLog)
}

// LogTrainingProgress logs one coin/timeframe step of a trainer pass.
func (l *Logger) LogTrainingProgress(coin, timeframe string, candleCount int, mode string) {
	l.Train("%s %s: %d candles, mode=%s", coin, timeframe, candleCount, mode)
}

// SetDebugMode toggles debug logging.
func (l *Logger) SetDebugMode(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMode = enabled
}

// Close writes a session footer and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	footer := fmt.Sprintf(`
================================================================================
🛑 %s SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, l.process, time.Now().Format("2006-01-02 15:04:05"))
	l.logger.Print(footer)
	return l.logFile.Close()
}

// GetLogPath returns today's log file path.
func (l *Logger) GetLogPath() string {
	filename := fmt.Sprintf("%s_%s.log", l.process, time.Now().Format("2006-01-02"))
	return filepath.Join(l.logDir, filename)
}
