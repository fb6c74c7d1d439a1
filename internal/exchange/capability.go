// Package exchange defines the two abstract collaborators the trading
// pipeline depends on — a read-only market data source and a trading
// venue — plus the concrete live (Bybit) and paper implementations. The
// rest of the system (trainer, thinker, trader) only ever talks to these
// small capability interfaces, never to a concrete client.
package exchange

import (
	"context"

	"github.com/ibrahim3d/powertrader/internal/model"
)

// MarketDataSource is the read-only candle and price capability every
// component (trainer, thinker, paper venue) depends on.
type MarketDataSource interface {
	// GetKlines fetches up to limit candles for symbol/timeframe, optionally
	// bounded by [startAt, endAt) (Unix seconds; zero means unbounded).
	GetKlines(ctx context.Context, symbol, timeframe string, limit int, startAt, endAt int64) ([]model.Candle, error)

	// GetCurrentPrice returns the last traded price for symbol, or 0 on failure.
	GetCurrentPrice(ctx context.Context, symbol string) float64

	// GetAllKlines walks backwards in batches of 1500 until exhausted or
	// maxCandles collected, then returns candles sorted ascending and
	// deduplicated by timestamp.
	GetAllKlines(ctx context.Context, symbol, timeframe string, maxCandles int) ([]model.Candle, error)
}

// TradingVenue is the balances/orders capability the trader depends on.
// Both order methods are responsible for lot-size rounding (decimal,
// round-down, reject below minQty) and for polling to a terminal fill
// state within 30s.
type TradingVenue interface {
	// GetAccountBalance returns total balance per asset, quote currency included.
	GetAccountBalance(ctx context.Context) (map[string]float64, error)

	// GetHoldings returns non-stablecoin asset balances currently held.
	GetHoldings(ctx context.Context) (map[string]float64, error)

	// MarketBuy spends quoteAmount of quote currency on coin. Returns nil,
	// nil (no trade, no error) when the fill could not be completed — the
	// caller logs and moves on per the no-automatic-retry order policy.
	MarketBuy(ctx context.Context, coin string, quoteAmount float64) (*model.Trade, error)

	// MarketSell sells quantity of coin.
	MarketSell(ctx context.Context, coin string, quantity float64) (*model.Trade, error)

	// GetCurrentPrices returns the last traded price for each requested coin;
	// the bid/ask mid price is not used.
	GetCurrentPrices(ctx context.Context, coins []string) (map[string]float64, error)
}
