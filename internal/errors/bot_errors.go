// Package errors provides a categorized error type shared by the trainer,
// thinker, and trader so callers can switch on failure kind instead of
// string-matching messages.
package errors

import (
	"fmt"
	"strings"
)

// ErrorCategory is one of the error kinds in the system's error-handling design.
type ErrorCategory string

const (
	// ConfigInvalid: settings file unreadable or out of range. Policy: log,
	// fall back to defaults, continue.
	ErrorCategoryConfigInvalid ErrorCategory = "CONFIG_INVALID"

	// MarketDataFailure: transient network/parse failure on candles or price.
	// Policy: retry, then skip the tick for that coin.
	ErrorCategoryMarketDataFailure ErrorCategory = "MARKET_DATA_FAILURE"

	// VenueAuthFailure: bad credentials on startup. Policy: fatal, exit 1.
	ErrorCategoryVenueAuthFailure ErrorCategory = "VENUE_AUTH_FAILURE"

	// VenueOrderFailure: order rejected, insufficient funds, malformed
	// request. Policy: log, return no trade, no automatic retry.
	ErrorCategoryVenueOrderFailure ErrorCategory = "VENUE_ORDER_FAILURE"

	// RateLimited: venue 429 or our own token bucket. Policy: retry with backoff.
	ErrorCategoryRateLimited ErrorCategory = "RATE_LIMITED"

	// DataCorruption: unparseable memory/trade/status line. Policy: skip that
	// record, log, continue.
	ErrorCategoryDataCorruption ErrorCategory = "DATA_CORRUPTION"

	// TrainingInterrupt: killer.txt == "yes". Policy: persist, mark
	// INTERRUPTED, return.
	ErrorCategoryTrainingInterrupt ErrorCategory = "TRAINING_INTERRUPT"
)

// BotError is a categorized error carrying component/operation context.
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s in %s: %v", e.Category, e.Component, e.Message, e.Operation, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s in %s", e.Category, e.Component, e.Message, e.Operation)
}

func (e *BotError) Unwrap() error { return e.Underlying }

func (e *BotError) IsRetryable() bool { return e.Retryable }

// IsFatal reports whether this error should stop the owning process.
func (e *BotError) IsFatal() bool {
	return e.Category == ErrorCategoryVenueAuthFailure
}

func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}
	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryMarketDataFailure, ErrorCategoryRateLimited:
		return true
	case ErrorCategoryVenueAuthFailure, ErrorCategoryConfigInvalid, ErrorCategoryVenueOrderFailure, ErrorCategoryTrainingInterrupt:
		return false
	case ErrorCategoryDataCorruption:
		return false
	default:
		return true
	}
}

// CategorizeError classifies a generic error by message heuristics, for
// wrapping errors returned from third-party exchange/market SDKs that don't
// already carry a BotError.
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}
	if botErr, ok := err.(*BotError); ok {
		return botErr
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "context deadline exceeded"),
		strings.Contains(msg, "connection"), strings.Contains(msg, "network"),
		strings.Contains(msg, "dns"), strings.Contains(msg, "dial"):
		return WrapError(err, ErrorCategoryMarketDataFailure, component, operation)
	case strings.Contains(msg, "api key"), strings.Contains(msg, "api secret"),
		strings.Contains(msg, "authentication"), strings.Contains(msg, "unauthorized"):
		return WrapError(err, ErrorCategoryVenueAuthFailure, component, operation)
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return WrapError(err, ErrorCategoryRateLimited, component, operation)
	case strings.Contains(msg, "insufficient"), strings.Contains(msg, "balance"),
		strings.Contains(msg, "rejected"), strings.Contains(msg, "minimum"), strings.Contains(msg, "maximum"):
		return WrapError(err, ErrorCategoryVenueOrderFailure, component, operation).WithRetryable(false)
	case strings.Contains(msg, "corrupt"), strings.Contains(msg, "malformed"), strings.Contains(msg, "unparseable"):
		return WrapError(err, ErrorCategoryDataCorruption, component, operation).WithRetryable(false)
	default:
		return WrapError(err, ErrorCategoryMarketDataFailure, component, operation)
	}
}

func NewMarketDataError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryMarketDataFailure, component, operation)
}

func NewVenueAuthError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryVenueAuthFailure, component, operation, message).WithRetryable(false)
}

func NewVenueOrderError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryVenueOrderFailure, component, operation).WithRetryable(false)
}

func NewRateLimitedError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryRateLimited, component, operation)
}

func NewConfigInvalidError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfigInvalid, component, operation, message).WithRetryable(false)
}

func NewDataCorruptionError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryDataCorruption, component, operation, message).WithRetryable(false)
}

func NewTrainingInterruptError(component, operation string) *BotError {
	return NewBotError(ErrorCategoryTrainingInterrupt, component, operation, "stop signal received").WithRetryable(false)
}

// RecoveryAction is the suggested handling for a BotError.
type RecoveryAction string

const (
	RecoveryActionRetry    RecoveryAction = "RETRY"
	RecoveryActionSkip     RecoveryAction = "SKIP"
	RecoveryActionStop     RecoveryAction = "STOP"
	RecoveryActionWait     RecoveryAction = "WAIT"
)

func (e *BotError) GetRecoveryAction() RecoveryAction {
	switch e.Category {
	case ErrorCategoryVenueAuthFailure, ErrorCategoryTrainingInterrupt:
		return RecoveryActionStop
	case ErrorCategoryRateLimited:
		return RecoveryActionWait
	case ErrorCategoryMarketDataFailure:
		return RecoveryActionRetry
	case ErrorCategoryConfigInvalid, ErrorCategoryDataCorruption, ErrorCategoryVenueOrderFailure:
		return RecoveryActionSkip
	default:
		return RecoveryActionRetry
	}
}

// ErrorStats tracks rolling error counts for the health monitor.
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BotError
	MaxRecentErrors  int
}

func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BotError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

func (es *ErrorStats) RecordError(err *BotError) {
	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++
	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}

func (es *ErrorStats) HasRecentErrors(category ErrorCategory, count int) bool {
	recentCount := 0
	for _, err := range es.RecentErrors {
		if err.Category == category {
			recentCount++
		}
	}
	return recentCount >= count
}
