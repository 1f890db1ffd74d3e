// Package ledger talks to the savings vault contract, the single
// authoritative writer for position and faucet state. Everything this
// package returns is a point-in-time snapshot, never a source of truth.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PositionSnapshot mirrors one time-locked deposit as stored on chain.
// Amounts are integral decimals in smallest token units; the stored
// AccruedInterest is authoritative and frozen once the position leaves
// the active state.
type PositionSnapshot struct {
	ID              uint64
	Owner           string
	Principal       decimal.Decimal
	PlanID          uint32
	RateBps         int64
	CreatedAt       time.Time
	MaturityTime    time.Time
	LastAccrualTime time.Time
	AccruedInterest decimal.Decimal
	StateCode       uint8
}

// On-chain position state codes. Maturity is observed from time, not stored.
const (
	StateCodeActive uint8 = iota
	StateCodeWithdrawn
	StateCodeEmergencyWithdrawn
)

// PlanRecord mirrors one savings plan as stored on chain. The plan id
// doubles as the lock duration in days.
type PlanRecord struct {
	ID           uint32
	DurationDays uint32
	RateBps      int64
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
	Active       bool
}

// FaucetStats aggregates faucet distribution state.
type FaucetStats struct {
	Distributed decimal.Decimal
	Remaining   decimal.Decimal
	UniqueUsers uint64
}

// Reader covers the side-effect-free vault operations.
type Reader interface {
	GetPosition(ctx context.Context, owner string, id uint64) (PositionSnapshot, error)
	ListPositionIDs(ctx context.Context, owner string) ([]uint64, error)
	GetPlan(ctx context.Context, planID uint32) (PlanRecord, error)
	CanClaimFaucet(ctx context.Context, address string) (bool, error)
	TimeUntilNextClaim(ctx context.Context, address string) (time.Duration, error)
	GetFaucetStats(ctx context.Context) (FaucetStats, error)
}

// Writer covers the mutating vault operations. Every call submits a
// transaction and blocks until it is confirmed, times out, or reverts;
// a submitted transaction cannot be retracted.
type Writer interface {
	Approve(ctx context.Context, amount decimal.Decimal) error
	CreatePosition(ctx context.Context, amount decimal.Decimal, planID uint32) (uint64, error)
	Withdraw(ctx context.Context, id uint64) error
	EmergencyWithdraw(ctx context.Context, id uint64) error
	ClaimFaucet(ctx context.Context) error
}

// Client is the full vault collaborator surface.
type Client interface {
	Reader
	Writer
	OwnerAddress() string
}
