package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim3d/powertrader/internal/exchange/bybit"
	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/safety"
)

func newUnlimitedLimiter() *safety.RateLimiter {
	return safety.NewRateLimiter("test", 1_000_000, 1_000_000)
}

type fakeBybitClient struct {
	klines        []bybit.Kline
	klinesErr     error
	klinesCalls   int
	price         float64
	priceErr      error
	account       *bybit.AccountInfo
	accountErr    error
	placedOrder   *bybit.Order
	placeErr      error
	statusResults []*bybit.Order
	statusIdx     int
}

func (f *fakeBybitClient) GetKlines(ctx context.Context, params bybit.KlineParams) ([]bybit.Kline, error) {
	f.klinesCalls++
	return f.klines, f.klinesErr
}
func (f *fakeBybitClient) GetLatestPrice(ctx context.Context, category, symbol string) (float64, error) {
	return f.price, f.priceErr
}
func (f *fakeBybitClient) GetAccountBalance(ctx context.Context, accountType bybit.AccountType, coins ...string) (*bybit.AccountInfo, error) {
	return f.account, f.accountErr
}
func (f *fakeBybitClient) PlaceMarketOrder(ctx context.Context, category, symbol string, side bybit.OrderSide, qty string) (*bybit.Order, error) {
	return f.placedOrder, f.placeErr
}
func (f *fakeBybitClient) GetOrderStatus(ctx context.Context, category, symbol, orderID string) (*bybit.Order, error) {
	if f.statusIdx >= len(f.statusResults) {
		return f.statusResults[len(f.statusResults)-1], nil
	}
	o := f.statusResults[f.statusIdx]
	f.statusIdx++
	return o, nil
}

type fakeLotSizes struct {
	minQty, maxQty, step float64
	err                  error
}

func (f fakeLotSizes) GetQuantityConstraints(ctx context.Context, category, symbol string) (float64, float64, float64, error) {
	return f.minQty, f.maxQty, f.step, f.err
}

func newTestVenue(client *fakeBybitClient, lots fakeLotSizes) *LiveVenue {
	return &LiveVenue{
		client:      client,
		lotSizes:    lots,
		marketLimit: newUnlimitedLimiter(),
		tradeLimit:  newUnlimitedLimiter(),
	}
}

func TestGetCurrentPriceReturnsZeroOnFailure(t *testing.T) {
	v := newTestVenue(&fakeBybitClient{priceErr: errors.New("boom")}, fakeLotSizes{})
	assert.Equal(t, 0.0, v.GetCurrentPrice(context.Background(), "BTC"))
}

func TestGetKlinesConvertsAndPropagatesCandles(t *testing.T) {
	client := &fakeBybitClient{klines: []bybit.Kline{
		{StartTime: time.Unix(1000, 0), OpenPrice: 100, HighPrice: 110, LowPrice: 90, ClosePrice: 105, Volume: 5},
	}}
	v := newTestVenue(client, fakeLotSizes{})

	candles, err := v.GetKlines(context.Background(), "ETH", "1h", 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(1000), candles[0].Timestamp)
	assert.Equal(t, 105.0, candles[0].Close)
}

func TestGetKlinesRejectsUnknownTimeframe(t *testing.T) {
	v := newTestVenue(&fakeBybitClient{}, fakeLotSizes{})
	_, err := v.GetKlines(context.Background(), "ETH", "3h", 10, 0, 0)
	assert.Error(t, err)
}

func TestAggregate8hCandlesPairsAndDropsOdd(t *testing.T) {
	fourH := []model.Candle{
		{Timestamp: 0, Open: 100, High: 105, Low: 95, Close: 102, Volume: 1},
		{Timestamp: 4 * 3600, Open: 102, High: 108, Low: 101, Close: 106, Volume: 2},
		{Timestamp: 8 * 3600, Open: 106, High: 110, Low: 104, Close: 108, Volume: 3},
		{Timestamp: 12 * 3600, Open: 108, High: 112, Low: 107, Close: 109, Volume: 4},
		{Timestamp: 16 * 3600, Open: 109, High: 111, Low: 108, Close: 110, Volume: 1}, // unpaired trailing bar
	}
	out := aggregate8hCandles(fourH)
	require.Len(t, out, 2)
	assert.Equal(t, 108.0, out[0].High) // max(105,108)
	assert.Equal(t, 95.0, out[0].Low)
	assert.Equal(t, 106.0, out[0].Close) // second bar's close
	assert.Equal(t, 3.0, out[0].Volume)  // 1+2
}

func TestMarketBuyRejectsBelowMinQty(t *testing.T) {
	client := &fakeBybitClient{price: 100}
	v := newTestVenue(client, fakeLotSizes{minQty: 1.0, step: 0.01})

	trade, err := v.MarketBuy(context.Background(), "BTC", 10) // 0.1 BTC, below minQty 1.0
	require.NoError(t, err)
	assert.Nil(t, trade)
}

func TestMarketBuyPollsToFillAndComputesVWAP(t *testing.T) {
	client := &fakeBybitClient{
		price:       100,
		placedOrder: &bybit.Order{OrderID: "abc"},
		statusResults: []*bybit.Order{
			{OrderStatus: bybit.OrderStatusNew},
			{OrderStatus: bybit.OrderStatusFilled, CumExecQty: "1.0", CumExecValue: "101.0"},
		},
	}
	v := newTestVenue(client, fakeLotSizes{minQty: 0.001, step: 0.001})

	trade, err := v.MarketBuy(context.Background(), "BTC", 100)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.InDelta(t, 101.0, trade.Price, 1e-9)
	assert.InDelta(t, 1.0, trade.Quantity, 1e-9)
}

func TestGetHoldingsExcludesStablecoins(t *testing.T) {
	client := &fakeBybitClient{account: &bybit.AccountInfo{Coin: []bybit.Balance{
		{Coin: "USDT", WalletBalance: 500},
		{Coin: "BTC", WalletBalance: 0.01},
		{Coin: "ETH", WalletBalance: 0},
	}}}
	v := newTestVenue(client, fakeLotSizes{})

	holdings, err := v.GetHoldings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC": 0.01}, holdings)
}
