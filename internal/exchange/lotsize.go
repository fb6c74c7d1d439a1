package exchange

import (
	"math/big"
	"strconv"
)

// RoundDownToStep rounds qty down to the nearest multiple of step using
// exact decimal (rational) arithmetic rather than floating point, so a
// step like 0.001 never suffers binary-fraction drift. step <= 0 returns
// qty unchanged.
func RoundDownToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	q, okQ := new(big.Rat).SetString(strconv.FormatFloat(qty, 'g', -1, 64))
	s, okS := new(big.Rat).SetString(strconv.FormatFloat(step, 'g', -1, 64))
	if !okQ || !okS || s.Sign() == 0 {
		return qty
	}

	steps := new(big.Rat).Quo(q, s)
	// Floor the (possibly negative, though quantities never are) ratio.
	floored := new(big.Int).Quo(steps.Num(), steps.Denom())
	if steps.Sign() < 0 {
		rem := new(big.Rat).Sub(steps, new(big.Rat).SetInt(floored))
		if rem.Sign() != 0 {
			floored.Sub(floored, big.NewInt(1))
		}
	}

	result := new(big.Rat).Mul(new(big.Rat).SetInt(floored), s)
	out, _ := result.Float64()
	return out
}

// AdjustedOrderQuantity rounds down to the exchange's step size and rejects
// (returns 0, false) a result of zero or below minQty.
func AdjustedOrderQuantity(rawQty, minQty, step float64) (float64, bool) {
	qty := RoundDownToStep(rawQty, step)
	if qty <= 0 || qty < minQty {
		return 0, false
	}
	return qty, true
}
