package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandleDerived(t *testing.T) {
	c := Candle{Timestamp: 1, Open: 100, High: 110, Low: 95, Close: 105, Volume: 10}
	assert.InDelta(t, 5.0, c.BodyPct(), 1e-9)
	assert.True(t, c.IsBullish())
	assert.False(t, c.IsBearish())
	require.NoError(t, c.Validate())

	zero := Candle{Open: 0, High: 0, Low: 0, Close: 0}
	assert.Equal(t, 0.0, zero.BodyPct())
	assert.Equal(t, 0.0, zero.RangePct())
}

func TestCandleValidateRejectsInconsistentOHLC(t *testing.T) {
	bad := Candle{Open: 100, High: 90, Low: 80, Close: 95}
	assert.Error(t, bad.Validate())
}

func TestPatternMemoryRoundTrip(t *testing.T) {
	m := PatternMemory{
		Patterns:    [][]float64{{1.5, -0.25}, {0, 3.2}},
		HighDiffs:   []float64{0.02, -0.01},
		LowDiffs:    []float64{-0.015, 0.005},
		Weights:     []float64{1.0, -0.5},
		WeightsHigh: []float64{1.0, 0.25},
		WeightsLow:  []float64{1.0, 2.0},
		Threshold:   1.0,
	}
	require.NoError(t, m.Validate())

	text := m.ToMemoryText()
	wText := ToWeightsText(m.Weights)
	whText := ToWeightsText(m.WeightsHigh)
	wlText := ToWeightsText(m.WeightsLow)

	round := FromMemoryText(text, wText, whText, wlText, m.Threshold)
	require.NoError(t, round.Validate())

	require.Equal(t, len(m.Patterns), len(round.Patterns))
	for i := range m.Patterns {
		assert.InDeltaSlice(t, m.Patterns[i], round.Patterns[i], 1e-9)
	}
	assert.InDeltaSlice(t, m.HighDiffs, round.HighDiffs, 1e-9)
	assert.InDeltaSlice(t, m.LowDiffs, round.LowDiffs, 1e-9)
	assert.InDeltaSlice(t, m.Weights, round.Weights, 1e-9)
	assert.InDeltaSlice(t, m.WeightsHigh, round.WeightsHigh, 1e-9)
	assert.InDeltaSlice(t, m.WeightsLow, round.WeightsLow, 1e-9)
	assert.InDelta(t, m.Threshold, round.Threshold, 1e-9)
}

func TestPatternMemorySkipsCorruptEntries(t *testing.T) {
	text := "1.0{}0.02{}-0.01~~garbage{}x{}y~2.0{}0.01{}-0.02"
	m := FromMemoryText(text, "1 1", "1 1", "1 1", 1.0)
	require.Equal(t, 2, m.Size())
	assert.False(t, m.IsEmpty())
}

func TestPositionAvgPriceAndPnL(t *testing.T) {
	p := Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50}
	assert.InDelta(t, 100.0, p.AvgPrice(), 1e-9)
	assert.InDelta(t, -3.0, p.PnLPct(97), 1e-9)

	empty := Position{Coin: "BTC"}
	assert.Equal(t, 0.0, empty.AvgPrice())
	assert.Equal(t, 0.0, empty.PnLPct(100))
}

func TestSignalEntryGate(t *testing.T) {
	s := Signal{Coin: "ETH", LongLevel: 5, ShortLevel: 0}
	assert.True(t, s.IsLongEntry(3))

	blocked := Signal{Coin: "ETH", LongLevel: 5, ShortLevel: 1}
	assert.False(t, blocked.IsLongEntry(3))

	weak := Signal{Coin: "ETH", LongLevel: 2, ShortLevel: 0}
	assert.False(t, weak.IsLongEntry(3))
}

func TestTradeJournalRecord(t *testing.T) {
	tr := Trade{Coin: "BTC", Side: TradeSideSell, Price: 100, Quantity: 1, Value: 100, Reason: "trailing_exit", Timestamp: 123, PnLPct: 4.5, OrderID: "abc"}
	rec := tr.ToJournalRecord()
	assert.Equal(t, "sell", rec["side"])
	assert.Equal(t, "trailing_exit", rec["tag"])
	assert.Equal(t, 4.5, rec["pnl_pct"])
	assert.Equal(t, "abc", rec["order_id"])
}
