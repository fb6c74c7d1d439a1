package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// instrumentTTL bounds how long cached lot-size constraints are trusted
// before a refetch.
const instrumentTTL = time.Hour

// QuantityConstraints are the lot-size limits for one instrument.
type QuantityConstraints struct {
	MinOrderQty float64
	MaxOrderQty float64
	QtyStep     float64
}

// InstrumentManager caches per-symbol lot-size constraints so order sizing
// doesn't pay an API round trip per order.
type InstrumentManager struct {
	client *Client

	mu      sync.RWMutex
	cache   map[string]QuantityConstraints
	fetched map[string]time.Time
}

func NewInstrumentManager(client *Client) *InstrumentManager {
	return &InstrumentManager{
		client:  client,
		cache:   map[string]QuantityConstraints{},
		fetched: map[string]time.Time{},
	}
}

// GetQuantityConstraints resolves minQty/maxQty/qtyStep for symbol, serving
// from cache while the entry is fresh.
func (im *InstrumentManager) GetQuantityConstraints(ctx context.Context, category, symbol string) (minQty, maxQty, qtyStep float64, err error) {
	im.mu.RLock()
	qc, ok := im.cache[symbol]
	fresh := ok && time.Since(im.fetched[symbol]) < instrumentTTL
	im.mu.RUnlock()

	if fresh {
		return qc.MinOrderQty, qc.MaxOrderQty, qc.QtyStep, nil
	}

	qc, err = im.fetchConstraints(ctx, category, symbol)
	if err != nil {
		return 0, 0, 0, err
	}

	im.mu.Lock()
	im.cache[symbol] = qc
	im.fetched[symbol] = time.Now()
	im.mu.Unlock()

	return qc.MinOrderQty, qc.MaxOrderQty, qc.QtyStep, nil
}

func (im *InstrumentManager) fetchConstraints(ctx context.Context, category, symbol string) (QuantityConstraints, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	result, err := im.client.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
	if err != nil {
		return QuantityConstraints{}, fmt.Errorf("fetch instrument info: %w", err)
	}

	resultBytes, err := decodeResult(result)
	if err != nil {
		return QuantityConstraints{}, err
	}

	var infoResult struct {
		List []struct {
			Symbol        string `json:"symbol"`
			LotSizeFilter struct {
				MinOrderQty string `json:"minOrderQty"`
				MaxOrderQty string `json:"maxOrderQty"`
				QtyStep     string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &infoResult); err != nil {
		return QuantityConstraints{}, fmt.Errorf("unmarshal instrument info: %w", err)
	}

	for _, item := range infoResult.List {
		if item.Symbol != symbol {
			continue
		}
		return QuantityConstraints{
			MinOrderQty: parseFloat64(item.LotSizeFilter.MinOrderQty),
			MaxOrderQty: parseFloat64(item.LotSizeFilter.MaxOrderQty),
			QtyStep:     parseFloat64(item.LotSizeFilter.QtyStep),
		}, nil
	}
	return QuantityConstraints{}, fmt.Errorf("instrument %s not found", symbol)
}
