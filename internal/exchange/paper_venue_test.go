package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim3d/powertrader/internal/model"
)

type fixedPriceMarket struct {
	prices map[string]float64
}

func (f fixedPriceMarket) GetKlines(ctx context.Context, symbol, timeframe string, limit int, startAt, endAt int64) ([]model.Candle, error) {
	return nil, nil
}
func (f fixedPriceMarket) GetCurrentPrice(ctx context.Context, symbol string) float64 { return f.prices[symbol] }
func (f fixedPriceMarket) GetAllKlines(ctx context.Context, symbol, timeframe string, maxCandles int) ([]model.Candle, error) {
	return nil, nil
}

func TestPaperVenueBuyDeductsFeeAndBalances(t *testing.T) {
	market := fixedPriceMarket{prices: map[string]float64{"BTC": 100}}
	v := NewPaperVenue(market, 1000)

	trade, err := v.MarketBuy(context.Background(), "BTC", 100)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.InDelta(t, 0.1, trade.FeesUSD, 1e-9)
	assert.InDelta(t, 0.999, trade.Quantity, 1e-9) // (100-0.1)/100

	holdings, _ := v.GetHoldings(context.Background())
	assert.InDelta(t, 0.999, holdings["BTC"], 1e-9)

	balances, _ := v.GetAccountBalance(context.Background())
	assert.InDelta(t, 900.0, balances["USDT"], 1e-9)
}

func TestPaperVenueBuyRejectsInsufficientBalance(t *testing.T) {
	market := fixedPriceMarket{prices: map[string]float64{"BTC": 100}}
	v := NewPaperVenue(market, 50)

	trade, err := v.MarketBuy(context.Background(), "BTC", 100)
	require.NoError(t, err)
	assert.Nil(t, trade)
}

func TestPaperVenueSellCreditsNetOfFee(t *testing.T) {
	market := fixedPriceMarket{prices: map[string]float64{"BTC": 100}}
	v := NewPaperVenue(market, 0)
	v.balances["BTC"] = 1.0

	trade, err := v.MarketSell(context.Background(), "BTC", 1.0)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.InDelta(t, 99.9, trade.Value, 1e-9)

	balances, _ := v.GetAccountBalance(context.Background())
	assert.InDelta(t, 99.9, balances["USDT"], 1e-9)
	assert.InDelta(t, 0.0, balances["BTC"], 1e-9)
}
