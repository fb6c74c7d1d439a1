package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundDownToStepTruncatesExactly(t *testing.T) {
	assert.InDelta(t, 1.23, RoundDownToStep(1.2399, 0.01), 1e-9)
	assert.InDelta(t, 0.1, RoundDownToStep(0.1999, 0.1), 1e-9)
	assert.InDelta(t, 1.0, RoundDownToStep(1.0, 0.001), 1e-9)
}

func TestRoundDownToStepZeroStepIsNoOp(t *testing.T) {
	assert.Equal(t, 1.23456, RoundDownToStep(1.23456, 0))
}

func TestAdjustedOrderQuantityRejectsBelowMinQty(t *testing.T) {
	qty, ok := AdjustedOrderQuantity(0.005, 0.01, 0.001)
	assert.False(t, ok)
	assert.Equal(t, 0.0, qty)
}

func TestAdjustedOrderQuantityRejectsZeroResult(t *testing.T) {
	qty, ok := AdjustedOrderQuantity(0.0004, 0, 0.001)
	assert.False(t, ok)
	assert.Equal(t, 0.0, qty)
}

func TestAdjustedOrderQuantityAccepts(t *testing.T) {
	qty, ok := AdjustedOrderQuantity(1.2399, 0.01, 0.01)
	assert.True(t, ok)
	assert.InDelta(t, 1.23, qty, 1e-9)
}
