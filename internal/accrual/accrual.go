// Package accrual contains the interest and penalty arithmetic. All
// amounts are integral decimals in smallest currency units and all rates
// are annual basis points; results truncate toward zero, never up, so
// repeated ticks cannot over-credit.
package accrual

import (
	"time"

	"github.com/shopspring/decimal"
)

const secondsPerYear = 365 * 24 * 60 * 60

var bpsDenominator = decimal.NewFromInt(10_000)

// Accrue computes simple pro-rata interest for elapsed time under a plan
// of the given total duration:
//
//	principal * rateBps/10000 * elapsedSeconds/secondsPerYear
//
// Elapsed time is clamped to [0, planDuration]; interest never accrues
// past maturity. The result is truncated to a whole smallest unit.
func Accrue(principal decimal.Decimal, rateBps int64, elapsed, planDuration time.Duration) decimal.Decimal {
	elapsed = clamp(elapsed, planDuration)
	if elapsed <= 0 || rateBps <= 0 || principal.Sign() <= 0 {
		return decimal.Zero
	}

	seconds := decimal.NewFromInt(int64(elapsed / time.Second))
	numerator := principal.Mul(decimal.NewFromInt(rateBps)).Mul(seconds)
	denominator := bpsDenominator.Mul(decimal.NewFromInt(secondsPerYear))

	return numerator.DivRound(denominator, 12).Truncate(0)
}

// Tick advances a position's accrued interest for the window since the
// last accrual. It is defined as the difference of two whole-lifetime
// Accrue evaluations, so the running total after any tick schedule is
// identical to Accrue over the same total elapsed time; the tick path is
// a different scheduling of the same formula, not a different formula.
func Tick(principal decimal.Decimal, rateBps int64, createdAt, lastAccrual, now time.Time, planDuration time.Duration) decimal.Decimal {
	if !now.After(lastAccrual) {
		return decimal.Zero
	}
	total := Accrue(principal, rateBps, now.Sub(createdAt), planDuration)
	prior := Accrue(principal, rateBps, lastAccrual.Sub(createdAt), planDuration)
	delta := total.Sub(prior)
	if delta.Sign() < 0 {
		return decimal.Zero
	}
	return delta
}

func clamp(elapsed, planDuration time.Duration) time.Duration {
	if elapsed < 0 {
		return 0
	}
	if planDuration > 0 && elapsed > planDuration {
		return planDuration
	}
	return elapsed
}
