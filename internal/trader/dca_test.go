package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibrahim3d/powertrader/internal/config"
	"github.com/ibrahim3d/powertrader/internal/model"
)

func testConfig() config.TradingConfig {
	cfg := config.Default()
	cfg.DCALevels = []float64{-2.5, -5.0, -10.0, -20.0, -30.0, -40.0, -50.0}
	cfg.MaxDCABuysPer24h = 2
	cfg.DCAMultiplier = 2.0
	return cfg
}

// E2: hard DCA threshold fires at stage 0's -2.5% level.
func TestShouldDCAHardThresholdStage0(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50} // avg price 100

	ok, reason := engine.ShouldDCA("BTC", pos, 97, 0, 1000)
	assert.True(t, ok)
	assert.Equal(t, "hard_stage_0", reason)
}

func TestShouldDCANoTriggerAboveThresholdAndBelowNeuralLevel(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50}

	ok, reason := engine.ShouldDCA("BTC", pos, 99, 0, 1000)
	assert.False(t, ok)
	assert.Empty(t, reason)
}

func TestShouldDCANeuralAssistedStage0RequiresLevel4(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50}

	ok, reason := engine.ShouldDCA("BTC", pos, 99, 3, 1000)
	assert.False(t, ok)
	assert.Empty(t, reason)

	ok, reason = engine.ShouldDCA("BTC", pos, 99, 4, 1000)
	assert.True(t, ok)
	assert.Equal(t, "neural_4", reason)
}

func TestShouldDCANeuralDoesNotApplyPastStage3(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50, DCACount: 4}

	ok, _ := engine.ShouldDCA("BTC", pos, 99, 7, 1000)
	assert.False(t, ok)
}

func TestShouldDCAHardTakesPrecedenceOverNeural(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50}

	ok, reason := engine.ShouldDCA("BTC", pos, 97, 7, 1000)
	assert.True(t, ok)
	assert.Equal(t, "hard_stage_0", reason)
}

func TestShouldDCARateLimitBlocksAfterMaxBuysIn24h(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50}

	engine.RecordBuy("BTC", 1000)
	engine.RecordBuy("BTC", 2000)

	ok, _ := engine.ShouldDCA("BTC", pos, 90, 0, 3000)
	assert.False(t, ok, "third buy within the window should be rate-limited regardless of how far below threshold price is")
}

func TestShouldDCARateLimitWindowExpires(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50}

	engine.RecordBuy("BTC", 1000)
	engine.RecordBuy("BTC", 2000)

	now := 2000.0 + dcaRateWindowSeconds + 1
	ok, reason := engine.ShouldDCA("BTC", pos, 97, 0, now)
	assert.True(t, ok)
	assert.Equal(t, "hard_stage_0", reason)
}

func TestRecordSellResetsRateLimitWindow(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	engine.RecordBuy("BTC", 1000)
	engine.RecordBuy("BTC", 2000)
	engine.RecordSell("BTC", 2500)

	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50}
	ok, _ := engine.ShouldDCA("BTC", pos, 97, 0, 2600)
	assert.True(t, ok, "buy history before the last sell should not count toward the new position's rate limit")
}

func TestCalculateDCAAmountScalesWithMultiplier(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	pos := model.Position{Coin: "BTC", Quantity: 0.5, CostBasisUSD: 50}

	amount := engine.CalculateDCAAmount(pos, 100)
	assert.InDelta(t, 100.0, amount, 1e-9) // 0.5 * 100 * 2.0
}

func TestSeedFromJournalRebuildsRateLimitState(t *testing.T) {
	engine := NewDCAEngine(testConfig())
	records := []map[string]any{
		{"symbol": "BTC", "side": "buy", "tag": "entry", "ts": 100.0, "qty": 1.0, "price": 100.0},
		{"symbol": "BTC", "side": "buy", "tag": "hard_stage_0", "ts": 200.0, "qty": 1.0, "price": 95.0},
		{"symbol": "ETH", "side": "buy", "tag": "hard_stage_0", "ts": 150.0, "qty": 1.0, "price": 10.0},
	}
	engine.SeedFromJournal("BTC", records)

	assert.Equal(t, 1, engine.RecentBuyCount("BTC", 200))
	assert.Equal(t, 0, engine.RecentBuyCount("ETH", 200), "records for other coins must not leak into this coin's state")
}
