package service

import (
	"time"

	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/accrual"
	"savings-vault-engine/internal/ledger"
	"savings-vault-engine/internal/lifecycle"
	"savings-vault-engine/internal/position"
)

// PositionView enriches a position with the derived fields the
// presentation layer renders. PendingInterest is a display-only estimate
// of interest earned since the last on-chain accrual tick; it is never
// mixed back into position state, where the ledger-stored figure stays
// authoritative.
type PositionView struct {
	Position             position.Position
	ObservedState        lifecycle.State
	DaysRemaining        int64
	CanWithdraw          bool
	CanEmergencyWithdraw bool
	CurrentValue         decimal.Decimal
	PendingInterest      decimal.Decimal
}

// BuildView derives the presentation fields for one position at now.
func BuildView(pos position.Position, now time.Time) PositionView {
	view := PositionView{
		Position:             pos,
		ObservedState:        pos.ObservedState(now),
		CanWithdraw:          lifecycle.CanWithdraw(pos.State, now, pos.MaturityTime) == nil,
		CanEmergencyWithdraw: lifecycle.CanEmergencyWithdraw(pos.State, now, pos.MaturityTime) == nil,
		CurrentValue:         pos.CurrentValue(),
		PendingInterest:      decimal.Zero,
	}

	if remaining := pos.MaturityTime.Sub(now); remaining > 0 {
		// Partial days count as a full remaining day for the countdown.
		view.DaysRemaining = int64((remaining + 24*time.Hour - 1) / (24 * time.Hour))
	}

	if pos.State == lifecycle.StateActive {
		view.PendingInterest = accrual.Tick(
			pos.Principal, pos.RateBps,
			pos.CreatedAt, pos.LastAccrualTime, now,
			pos.PlanDuration(),
		)
	}

	return view
}

// FaucetView is the faucet countdown for display.
type FaucetView struct {
	CanClaim              bool
	SecondsUntilNextClaim int64
	Stats                 ledger.FaucetStats
}
