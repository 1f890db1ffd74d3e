// Package position owns the deposit records and every state-mutating
// operation against them. Math is delegated to accrual, transition
// legality to lifecycle, and persistence to the external ledger.
package position

import (
	"time"

	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/ledger"
	"savings-vault-engine/internal/lifecycle"
)

// Position is one time-locked deposit. Principal and AccruedInterest are
// integral decimals in smallest token units; RateBps is the annual rate
// snapshotted from the plan at creation. Once the state is terminal the
// record is immutable history.
type Position struct {
	ID              uint64
	Owner           string
	Principal       decimal.Decimal
	PlanID          uint32
	RateBps         int64
	CreatedAt       time.Time
	MaturityTime    time.Time
	LastAccrualTime time.Time
	AccruedInterest decimal.Decimal
	State           lifecycle.State
}

// FromSnapshot converts a ledger snapshot into a Position.
func FromSnapshot(snap ledger.PositionSnapshot) Position {
	return Position{
		ID:              snap.ID,
		Owner:           snap.Owner,
		Principal:       snap.Principal,
		PlanID:          snap.PlanID,
		RateBps:         snap.RateBps,
		CreatedAt:       snap.CreatedAt,
		MaturityTime:    snap.MaturityTime,
		LastAccrualTime: snap.LastAccrualTime,
		AccruedInterest: snap.AccruedInterest,
		State:           lifecycle.FromLedger(snap.StateCode),
	}
}

// PlanDuration returns the lock period implied by the position itself.
func (p Position) PlanDuration() time.Duration {
	return p.MaturityTime.Sub(p.CreatedAt)
}

// CurrentValue is principal plus ledger-stored accrued interest. Pending
// interest since the last accrual tick is a display-only estimate and is
// deliberately not part of this figure.
func (p Position) CurrentValue() decimal.Decimal {
	return p.Principal.Add(p.AccruedInterest)
}

// ObservedState derives the effective state at now.
func (p Position) ObservedState(now time.Time) lifecycle.State {
	return lifecycle.Observe(p.State, now, p.MaturityTime)
}
