// Package portfolio derives account-level summaries from position
// records. Pure folds, recomputed on demand, never stored independently
// of their inputs.
package portfolio

import (
	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/position"
)

// Summary aggregates one owner's positions.
type Summary struct {
	TotalPrincipal    decimal.Decimal
	TotalAccrued      decimal.Decimal
	TotalCurrentValue decimal.Decimal
	ActiveCount       int
}

// Summarize folds over an owner's positions. Closed positions contribute
// history only: their principal and interest already left the vault.
func Summarize(positions []position.Position) Summary {
	s := Summary{
		TotalPrincipal:    decimal.Zero,
		TotalAccrued:      decimal.Zero,
		TotalCurrentValue: decimal.Zero,
	}
	for _, p := range positions {
		if p.State.Terminal() {
			continue
		}
		s.TotalPrincipal = s.TotalPrincipal.Add(p.Principal)
		s.TotalAccrued = s.TotalAccrued.Add(p.AccruedInterest)
		s.TotalCurrentValue = s.TotalCurrentValue.Add(p.CurrentValue())
		s.ActiveCount++
	}
	return s
}
