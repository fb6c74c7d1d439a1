package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ibrahim3d/powertrader/internal/model"
	"github.com/ibrahim3d/powertrader/internal/storage"
)

// PaperFeeRate is the simulated taker fee applied to every paper fill.
const PaperFeeRate = 0.001

// PaperVenue is the second concrete TradingVenue implementation: it prices
// fills off a live MarketDataSource but settles them against in-memory
// balances instead of a real exchange, for the trader's `--paper` mode.
type PaperVenue struct {
	market MarketDataSource

	mu        sync.Mutex
	balances  map[string]float64
	orderSeq  int
}

// NewPaperVenue seeds the simulated account with quoteBalance USDT.
func NewPaperVenue(market MarketDataSource, quoteBalance float64) *PaperVenue {
	return &PaperVenue{
		market:   market,
		balances: map[string]float64{storage.QuoteAsset: quoteBalance},
	}
}

func (p *PaperVenue) GetAccountBalance(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64, len(p.balances))
	for k, v := range p.balances {
		out[k] = v
	}
	return out, nil
}

func (p *PaperVenue) GetHoldings(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64)
	for coin, qty := range p.balances {
		if stablecoins[coin] || qty <= 0 {
			continue
		}
		out[coin] = qty
	}
	return out, nil
}

func (p *PaperVenue) GetCurrentPrices(ctx context.Context, coins []string) (map[string]float64, error) {
	out := make(map[string]float64, len(coins))
	for _, coin := range coins {
		out[coin] = p.market.GetCurrentPrice(ctx, coin)
	}
	return out, nil
}

// MarketBuy fills instantly at the live price less the simulated fee,
// deducting quote balance and crediting coin balance.
func (p *PaperVenue) MarketBuy(ctx context.Context, coin string, quoteAmount float64) (*model.Trade, error) {
	price := p.market.GetCurrentPrice(ctx, coin)
	if price <= 0 || quoteAmount <= 0 {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balances[storage.QuoteAsset] < quoteAmount {
		return nil, nil
	}
	fee := quoteAmount * PaperFeeRate
	netSpend := quoteAmount - fee
	qty := netSpend / price

	p.balances[storage.QuoteAsset] -= quoteAmount
	p.balances[coin] += qty
	p.orderSeq++

	return &model.Trade{
		Coin:      coin,
		Side:      model.TradeSideBuy,
		Price:     price,
		Quantity:  qty,
		Value:     netSpend,
		Reason:    "entry",
		Timestamp: float64(time.Now().Unix()),
		FeesUSD:   fee,
		OrderID:   fmt.Sprintf("paper-%d", p.orderSeq),
	}, nil
}

// MarketSell fills instantly at the live price less the simulated fee.
func (p *PaperVenue) MarketSell(ctx context.Context, coin string, quantity float64) (*model.Trade, error) {
	price := p.market.GetCurrentPrice(ctx, coin)
	if price <= 0 || quantity <= 0 {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balances[coin] < quantity {
		return nil, nil
	}
	gross := quantity * price
	fee := gross * PaperFeeRate
	net := gross - fee

	p.balances[coin] -= quantity
	p.balances[storage.QuoteAsset] += net
	p.orderSeq++

	return &model.Trade{
		Coin:      coin,
		Side:      model.TradeSideSell,
		Price:     price,
		Quantity:  quantity,
		Value:     net,
		Reason:    "trailing_exit",
		Timestamp: float64(time.Now().Unix()),
		FeesUSD:   fee,
		OrderID:   fmt.Sprintf("paper-%d", p.orderSeq),
	}, nil
}
