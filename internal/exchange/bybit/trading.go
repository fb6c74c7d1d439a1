package bybit

import (
	"context"
	"encoding/json"
	"fmt"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// OrderStatus is the venue-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "New"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRejected        OrderStatus = "Rejected"
	OrderStatusExpired         OrderStatus = "Expired"
)

// Order is the subset of the venue's order record the pipeline consumes:
// identity, lifecycle state, and cumulative execution totals.
type Order struct {
	OrderID      string
	Symbol       string
	Side         OrderSide
	OrderStatus  OrderStatus
	Qty          string
	Price        string
	CumExecQty   string
	CumExecValue string
	AvgPrice     string
}

// PlaceMarketOrder submits a market order for qty (base units, already
// rounded to the instrument's step size by the caller).
func (c *Client) PlaceMarketOrder(ctx context.Context, category, symbol string, side OrderSide, qty string) (*Order, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if qty == "" {
		return nil, fmt.Errorf("qty is required")
	}
	if category == "" {
		category = "spot"
	}

	params := map[string]interface{}{
		"category":  category,
		"symbol":    symbol,
		"side":      string(side),
		"orderType": "Market",
		"qty":       qty,
		// Spot market buys default to quote-denominated qty; the pipeline
		// sizes everything in base units.
		"marketUnit": "baseCoin",
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("place market order: %w", err)
	}
	return parseOrder(result)
}

// GetOrderStatus looks up one order by id via the realtime open-orders
// endpoint, which also reports recently closed spot orders.
func (c *Client) GetOrderStatus(ctx context.Context, category, symbol, orderID string) (*Order, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("get order status: %w", err)
	}

	orders, err := parseOrderList(result)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].OrderID == orderID {
			return &orders[i], nil
		}
	}
	return nil, fmt.Errorf("order %s not found", orderID)
}

// orderFields is the shared wire shape of one order in both the place-order
// and order-list responses.
type orderFields struct {
	OrderID      string `json:"orderId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrderStatus  string `json:"orderStatus"`
	Qty          string `json:"qty"`
	Price        string `json:"price"`
	CumExecQty   string `json:"cumExecQty"`
	CumExecValue string `json:"cumExecValue"`
	AvgPrice     string `json:"avgPrice"`
}

func (f orderFields) toOrder() Order {
	return Order{
		OrderID:      f.OrderID,
		Symbol:       f.Symbol,
		Side:         OrderSide(f.Side),
		OrderStatus:  OrderStatus(f.OrderStatus),
		Qty:          f.Qty,
		Price:        f.Price,
		CumExecQty:   f.CumExecQty,
		CumExecValue: f.CumExecValue,
		AvgPrice:     f.AvgPrice,
	}
}

func parseOrder(response interface{}) (*Order, error) {
	resultBytes, err := decodeResult(response)
	if err != nil {
		return nil, err
	}
	var fields orderFields
	if err := json.Unmarshal(resultBytes, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal order result: %w", err)
	}
	order := fields.toOrder()
	return &order, nil
}

func parseOrderList(response interface{}) ([]Order, error) {
	resultBytes, err := decodeResult(response)
	if err != nil {
		return nil, err
	}
	var listResult struct {
		List []orderFields `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &listResult); err != nil {
		return nil, fmt.Errorf("unmarshal order list result: %w", err)
	}
	orders := make([]Order, len(listResult.List))
	for i, fields := range listResult.List {
		orders[i] = fields.toOrder()
	}
	return orders, nil
}
