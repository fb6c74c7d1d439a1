package reporting

// LoadTradeRecords decodes the raw maps read from trade_history.jsonl (via
// storage.FileStore.ReadJSONLines) into TradeRecords, skipping any line
// missing its required fields rather than aborting the whole load.
func LoadTradeRecords(lines []map[string]any) []TradeRecord {
	out := make([]TradeRecord, 0, len(lines))
	for _, rec := range lines {
		side, _ := rec["side"].(string)
		symbol, _ := rec["symbol"].(string)
		if side == "" || symbol == "" {
			continue
		}
		tr := TradeRecord{
			Timestamp: floatField(rec, "ts"),
			Coin:      symbol,
			Side:      side,
			Tag:       stringField(rec, "tag"),
			Quantity:  floatField(rec, "qty"),
			Price:     floatField(rec, "price"),
			FeesUSD:   floatField(rec, "fees_usd"),
			OrderID:   stringField(rec, "order_id"),
		}
		tr.Value = tr.Quantity * tr.Price
		if v, ok := rec["pnl_pct"]; ok {
			tr.HasPnL = true
			tr.PnLPct, _ = v.(float64)
		}
		out = append(out, tr)
	}
	return out
}

func floatField(rec map[string]any, key string) float64 {
	v, ok := rec[key].(float64)
	if !ok {
		return 0
	}
	return v
}

func stringField(rec map[string]any, key string) string {
	v, _ := rec[key].(string)
	return v
}

// Summarize aggregates TradeRecords into the totals reporters print.
func Summarize(records []TradeRecord) TradeSummary {
	sum := TradeSummary{ByCoin: map[string]*CoinSummary{}}
	for _, r := range records {
		sum.TotalTrades++
		coin := sum.ByCoin[r.Coin]
		if coin == nil {
			coin = &CoinSummary{Coin: r.Coin}
			sum.ByCoin[r.Coin] = coin
		}
		coin.Trades++

		switch r.Side {
		case "buy":
			sum.BuyCount++
			coin.Buys++
			if r.Tag != "entry" {
				sum.DCACount++
			}
		case "sell":
			sum.SellCount++
			coin.Sells++
		}

		if r.HasPnL {
			sum.RealizedPnLPct += r.PnLPct
			coin.RealizedPnLPct += r.PnLPct
			if r.PnLPct >= 0 {
				sum.WinningExits++
			} else {
				sum.LosingExits++
			}
		}
		sum.TotalFeesUSD += r.FeesUSD
	}
	return sum
}
