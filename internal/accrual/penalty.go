package accrual

import "github.com/shopspring/decimal"

// Penalty prices an early exit. The base is the position principal only;
// accrued interest is never part of the base, so every caller must pass
// principal here and nothing else:
//
//	max(minFloor, principal * penaltyRateBps/10000)
//
// truncated to a whole smallest unit.
func Penalty(principal decimal.Decimal, penaltyRateBps int64, minFloor decimal.Decimal) decimal.Decimal {
	penalty := decimal.Zero
	if penaltyRateBps > 0 && principal.Sign() > 0 {
		penalty = principal.Mul(decimal.NewFromInt(penaltyRateBps)).DivRound(bpsDenominator, 12).Truncate(0)
	}
	if penalty.LessThan(minFloor) {
		return minFloor
	}
	return penalty
}
