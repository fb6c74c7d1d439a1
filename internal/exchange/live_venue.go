package exchange

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/ibrahim3d/powertrader/internal/exchange/bybit"
	boterrors "github.com/ibrahim3d/powertrader/internal/errors"
	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/monitoring"
	"github.com/ibrahim3d/powertrader/internal/safety"
)

const (
	historyBatchSize  = 1500
	orderPollInterval = 500 * time.Millisecond
	orderPollTimeout  = 30 * time.Second

	retryBaseDelay = 3500 * time.Millisecond
	retryFactor    = 2.0
	retryMaxDelay  = 30 * time.Second
	retryAttempts  = 3

	spotCategory = "spot"
)

var stablecoins = map[string]bool{"USDT": true, "USDC": true, "BUSD": true, "DAI": true}

// intervalCodes maps six of the seven fixed timeframes directly to Bybit's
// kline interval codes. Bybit has no native 8h candle; GetKlines synthesizes
// it by aggregating pairs of 4h candles (see aggregate8hCandles).
var intervalCodes = map[string]bybit.KlineInterval{
	"1h": bybit.Interval1h, "2h": bybit.Interval2h, "4h": bybit.Interval4h,
	"12h": bybit.Interval12h, "1d": bybit.Interval1d, "1w": bybit.Interval1w,
}

// bybitMarketAndTradingClient is the subset of *bybit.Client LiveVenue
// depends on, narrowed to an interface so tests can substitute a fake.
type bybitMarketAndTradingClient interface {
	GetKlines(ctx context.Context, params bybit.KlineParams) ([]bybit.Kline, error)
	GetLatestPrice(ctx context.Context, category, symbol string) (float64, error)
	GetAccountBalance(ctx context.Context, accountType bybit.AccountType, coins ...string) (*bybit.AccountInfo, error)
	PlaceMarketOrder(ctx context.Context, category, symbol string, side bybit.OrderSide, qty string) (*bybit.Order, error)
	GetOrderStatus(ctx context.Context, category, symbol, orderID string) (*bybit.Order, error)
}

// lotSizeSource resolves an instrument's quantity constraints; satisfied by
// *bybit.InstrumentManager.
type lotSizeSource interface {
	GetQuantityConstraints(ctx context.Context, category, symbol string) (minQty, maxQty, qtyStep float64, err error)
}

// LiveVenue implements both MarketDataSource and TradingVenue against a
// live Bybit spot account: klines, last price, balances, holdings, and
// market buy/sell with lot-size rounding and terminal-state polling.
type LiveVenue struct {
	client      bybitMarketAndTradingClient
	lotSizes    lotSizeSource
	marketLimit *safety.RateLimiter
	tradeLimit  *safety.RateLimiter
}

// NewLiveVenue wraps a *bybit.Client. marketCallsPerSec/tradeCallsPerSec
// configure the token buckets guarding the venue's own rate limits.
func NewLiveVenue(client *bybit.Client, marketCallsPerSec, tradeCallsPerSec int) *LiveVenue {
	return &LiveVenue{
		client:      client,
		lotSizes:    client.GetInstrumentManager(),
		marketLimit: safety.NewRateLimiter("market-data", marketCallsPerSec, marketCallsPerSec),
		tradeLimit:  safety.NewRateLimiter("trading-venue", tradeCallsPerSec, tradeCallsPerSec),
	}
}

func symbolFor(coin string) string { return coin + "USDT" }

// GetKlines fetches up to limit candles, optionally bounded by
// [startAt, endAt) (Unix seconds), returned in ascending timestamp order.
func (v *LiveVenue) GetKlines(ctx context.Context, coin, timeframe string, limit int, startAt, endAt int64) ([]model.Candle, error) {
	if timeframe == "8h" {
		return v.get8hKlines(ctx, coin, limit, startAt, endAt)
	}

	interval, ok := intervalCodes[timeframe]
	if !ok {
		return nil, boterrors.NewConfigInvalidError("exchange", "GetKlines", "unknown timeframe "+timeframe)
	}

	params := bybit.KlineParams{Category: spotCategory, Symbol: symbolFor(coin), Interval: interval, Limit: limit}
	if startAt > 0 {
		t := time.Unix(startAt, 0)
		params.Start = &t
	}
	if endAt > 0 {
		t := time.Unix(endAt, 0)
		params.End = &t
	}

	var klines []bybit.Kline
	err := v.withRetry(ctx, func() error {
		if err := v.marketLimit.Wait(ctx); err != nil {
			return err
		}
		defer observeLatency("kline")()
		var fetchErr error
		klines, fetchErr = v.client.GetKlines(ctx, params)
		return fetchErr
	})
	if err != nil {
		return nil, boterrors.NewMarketDataError("exchange", "GetKlines", err)
	}
	return sortDedupCandles(toCandles(klines)), nil
}

// get8hKlines fetches twice the requested 4h candles and pairwise-merges
// them into synthetic 8h bars, since Bybit has no native 8h interval.
func (v *LiveVenue) get8hKlines(ctx context.Context, coin string, limit int, startAt, endAt int64) ([]model.Candle, error) {
	fourH, err := v.GetKlines(ctx, coin, "4h", limit*2, startAt, endAt)
	if err != nil {
		return nil, err
	}
	return aggregate8hCandles(fourH), nil
}

// aggregate8hCandles merges ascending-ordered 4h candles into 8h candles by
// pairing each even-aligned 4h bar with its successor. A trailing unpaired
// bar is dropped rather than emitted half-formed.
func aggregate8hCandles(fourH []model.Candle) []model.Candle {
	if len(fourH) < 2 {
		return nil
	}
	out := make([]model.Candle, 0, len(fourH)/2)
	for i := 0; i+1 < len(fourH); i += 2 {
		a, b := fourH[i], fourH[i+1]
		out = append(out, model.Candle{
			Timestamp: a.Timestamp,
			Open:      a.Open,
			High:      math.Max(a.High, b.High),
			Low:       math.Min(a.Low, b.Low),
			Close:     b.Close,
			Volume:    a.Volume + b.Volume,
		})
	}
	return out
}

// GetCurrentPrice returns 0 on any failure.
func (v *LiveVenue) GetCurrentPrice(ctx context.Context, coin string) float64 {
	var price float64
	err := v.withRetry(ctx, func() error {
		if err := v.marketLimit.Wait(ctx); err != nil {
			return err
		}
		defer observeLatency("ticker")()
		var fetchErr error
		price, fetchErr = v.client.GetLatestPrice(ctx, spotCategory, symbolFor(coin))
		return fetchErr
	})
	if err != nil {
		return 0
	}
	return price
}

// GetAllKlines walks backwards in historyBatchSize-candle batches until a
// short/empty batch is returned or maxCandles is collected, then sorts
// ascending and deduplicates by timestamp.
func (v *LiveVenue) GetAllKlines(ctx context.Context, coin, timeframe string, maxCandles int) ([]model.Candle, error) {
	var all []model.Candle
	var endAt int64 // 0 means "now" on the first request
	for len(all) < maxCandles {
		remaining := maxCandles - len(all)
		batchSize := historyBatchSize
		if remaining < batchSize {
			batchSize = remaining
		}
		batch, err := v.GetKlines(ctx, coin, timeframe, batchSize, 0, endAt)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < batchSize {
			break
		}
		endAt = batch[0].Timestamp
	}
	return sortDedupCandles(all), nil
}

// GetAccountBalance returns total (walletBalance) per asset.
func (v *LiveVenue) GetAccountBalance(ctx context.Context) (map[string]float64, error) {
	info, err := v.fetchAccountInfo(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(info.Coin))
	for _, bal := range info.Coin {
		out[bal.Coin] = bal.WalletBalance
	}
	return out, nil
}

// GetHoldings returns every non-stablecoin asset balance.
func (v *LiveVenue) GetHoldings(ctx context.Context) (map[string]float64, error) {
	balances, err := v.GetAccountBalance(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for coin, qty := range balances {
		if stablecoins[coin] || qty <= 0 {
			continue
		}
		out[coin] = qty
	}
	return out, nil
}

func (v *LiveVenue) fetchAccountInfo(ctx context.Context) (*bybit.AccountInfo, error) {
	var info *bybit.AccountInfo
	err := v.withRetry(ctx, func() error {
		if err := v.marketLimit.Wait(ctx); err != nil {
			return err
		}
		defer observeLatency("wallet")()
		var fetchErr error
		info, fetchErr = v.client.GetAccountBalance(ctx, bybit.AccountTypeUnified)
		return fetchErr
	})
	if err != nil {
		return nil, boterrors.NewMarketDataError("exchange", "GetAccountBalance", err)
	}
	return info, nil
}

// GetCurrentPrices fetches the last price for each requested coin independently.
func (v *LiveVenue) GetCurrentPrices(ctx context.Context, coins []string) (map[string]float64, error) {
	out := make(map[string]float64, len(coins))
	for _, coin := range coins {
		out[coin] = v.GetCurrentPrice(ctx, coin)
	}
	return out, nil
}

// MarketBuy spends quoteAmount of USDT on coin. Order placement is never
// retried: a failure returns (nil, nil) so the caller logs and moves on
// without treating it as fatal.
func (v *LiveVenue) MarketBuy(ctx context.Context, coin string, quoteAmount float64) (*model.Trade, error) {
	price := v.GetCurrentPrice(ctx, coin)
	if price <= 0 {
		return nil, nil
	}
	rawQty := quoteAmount / price
	return v.placeMarketOrder(ctx, coin, bybit.OrderSideBuy, rawQty, "entry")
}

// MarketSell sells quantity of coin.
func (v *LiveVenue) MarketSell(ctx context.Context, coin string, quantity float64) (*model.Trade, error) {
	return v.placeMarketOrder(ctx, coin, bybit.OrderSideSell, quantity, "exit")
}

func (v *LiveVenue) placeMarketOrder(ctx context.Context, coin string, side bybit.OrderSide, rawQty float64, reason string) (*model.Trade, error) {
	symbol := symbolFor(coin)

	minQty, _, step, err := v.lotSizes.GetQuantityConstraints(ctx, spotCategory, symbol)
	if err != nil {
		return nil, boterrors.NewVenueOrderError("exchange", "MarketOrder", err)
	}
	qty, ok := AdjustedOrderQuantity(rawQty, minQty, step)
	if !ok {
		return nil, nil
	}

	if err := v.tradeLimit.Wait(ctx); err != nil {
		return nil, err
	}
	done := observeLatency("order")
	order, err := v.client.PlaceMarketOrder(ctx, spotCategory, symbol, side, strconv.FormatFloat(qty, 'f', -1, 64))
	done()
	if err != nil {
		return nil, nil // order rejected: no trade, no automatic retry
	}

	filled, err := v.pollForFill(ctx, symbol, order.OrderID)
	if err != nil || filled == nil {
		return nil, nil
	}

	tradeSide := model.TradeSideBuy
	if side == bybit.OrderSideSell {
		tradeSide = model.TradeSideSell
	}
	value := filled.qty * filled.avgPrice
	return &model.Trade{
		Coin:      coin,
		Side:      tradeSide,
		Price:     filled.avgPrice,
		Quantity:  filled.qty,
		Value:     value,
		Reason:    reason,
		Timestamp: float64(time.Now().Unix()),
		OrderID:   order.OrderID,
	}, nil
}

type filledOrder struct {
	qty      float64
	avgPrice float64
}

// pollForFill polls GetOrderStatus until a terminal state, extracting the
// volume-weighted average fill price with fallbacks.
func (v *LiveVenue) pollForFill(ctx context.Context, symbol, orderID string) (*filledOrder, error) {
	deadline := time.Now().Add(orderPollTimeout)
	for {
		order, err := v.client.GetOrderStatus(ctx, spotCategory, symbol, orderID)
		if err == nil && isTerminal(order.OrderStatus) {
			if order.OrderStatus != bybit.OrderStatusFilled && order.OrderStatus != bybit.OrderStatusPartiallyFilled {
				return nil, nil
			}
			return &filledOrder{qty: parseF(order.CumExecQty), avgPrice: vwapPrice(order)}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("order %s did not reach a terminal state within %s", orderID, orderPollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(orderPollInterval):
		}
	}
}

func isTerminal(status bybit.OrderStatus) bool {
	switch status {
	case bybit.OrderStatusFilled, bybit.OrderStatusCancelled, bybit.OrderStatusRejected, bybit.OrderStatusExpired:
		return true
	default:
		return false
	}
}

// vwapPrice prefers the order's reported average price, falling back to
// cumulative quote value over quantity.
func vwapPrice(order *bybit.Order) float64 {
	if avg := parseF(order.AvgPrice); avg > 0 {
		return avg
	}
	qty := parseF(order.CumExecQty)
	value := parseF(order.CumExecValue)
	if qty > 0 {
		return value / qty
	}
	return parseF(order.Price)
}

// observeLatency returns a closure that records the elapsed call time
// against the venue's latency histogram.
func observeLatency(endpoint string) func() {
	start := time.Now()
	return func() {
		monitoring.ExchangeLatencySeconds.WithLabelValues("bybit", endpoint).Observe(time.Since(start).Seconds())
	}
}

func parseF(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// withRetry applies bounded exponential backoff to market-data and balance
// reads only — order placement never goes through this path.
func (v *LiveVenue) withRetry(ctx context.Context, fn func() error) error {
	delay := retryBaseDelay
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == retryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(math.Min(float64(delay)*retryFactor, float64(retryMaxDelay)))
	}
	return lastErr
}

func toCandles(klines []bybit.Kline) []model.Candle {
	out := make([]model.Candle, len(klines))
	for i, k := range klines {
		out[i] = model.Candle{
			Timestamp: k.StartTime.Unix(),
			Open:      k.OpenPrice,
			High:      k.HighPrice,
			Low:       k.LowPrice,
			Close:     k.ClosePrice,
			Volume:    k.Volume,
		}
	}
	return out
}

func sortDedupCandles(candles []model.Candle) []model.Candle {
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	out := candles[:0:0]
	var lastTs int64
	first := true
	for _, c := range candles {
		if !first && c.Timestamp == lastTs {
			continue
		}
		out = append(out, c)
		lastTs = c.Timestamp
		first = false
	}
	return out
}
