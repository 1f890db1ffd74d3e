package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/lifecycle"
	"savings-vault-engine/internal/position"
)

func activePosition() position.Position {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return position.Position{
		ID:              1,
		Owner:           "0xOwner",
		Principal:       decimal.NewFromInt(1000),
		PlanID:          30,
		RateBps:         1200,
		CreatedAt:       created,
		MaturityTime:    created.Add(30 * 24 * time.Hour),
		LastAccrualTime: created,
		AccruedInterest: decimal.Zero,
		State:           lifecycle.StateActive,
	}
}

func TestBuildViewDaysRemainingRoundsUp(t *testing.T) {
	pos := activePosition()

	// 29 days and one hour remaining displays as 30 days.
	now := pos.MaturityTime.Add(-29*24*time.Hour - time.Hour)
	if got := BuildView(pos, now).DaysRemaining; got != 30 {
		t.Fatalf("days remaining = %d, want 30", got)
	}

	now = pos.MaturityTime.Add(-time.Minute)
	if got := BuildView(pos, now).DaysRemaining; got != 1 {
		t.Fatalf("最后一分钟应显示剩余 1 天, got %d", got)
	}

	if got := BuildView(pos, pos.MaturityTime).DaysRemaining; got != 0 {
		t.Fatalf("at maturity days remaining = %d, want 0", got)
	}
}

func TestBuildViewWithdrawFlags(t *testing.T) {
	pos := activePosition()

	before := BuildView(pos, pos.CreatedAt.Add(10*24*time.Hour))
	if before.CanWithdraw {
		t.Fatal("withdraw must stay locked before maturity")
	}
	if !before.CanEmergencyWithdraw {
		t.Fatal("emergency exit should be open before maturity")
	}
	if before.ObservedState != lifecycle.StateActive {
		t.Fatalf("observed state = %s", before.ObservedState)
	}

	after := BuildView(pos, pos.MaturityTime)
	if !after.CanWithdraw || after.CanEmergencyWithdraw {
		t.Fatalf("matured flags wrong: withdraw=%v emergency=%v", after.CanWithdraw, after.CanEmergencyWithdraw)
	}
	if after.ObservedState != lifecycle.StateMatured {
		t.Fatalf("observed state = %s", after.ObservedState)
	}
}

func TestBuildViewPendingInterestIsDisplayOnly(t *testing.T) {
	pos := activePosition()
	pos.AccruedInterest = decimal.NewFromInt(3)

	now := pos.CreatedAt.Add(15 * 24 * time.Hour)
	view := BuildView(pos, now)

	// CurrentValue uses only the ledger-stored accrual.
	if !view.CurrentValue.Equal(decimal.NewFromInt(1003)) {
		t.Fatalf("current value = %s, want 1003", view.CurrentValue)
	}
	if !view.PendingInterest.IsPositive() {
		t.Fatalf("mid-term active position should show a pending estimate, got %s", view.PendingInterest)
	}
	if view.CurrentValue.Add(view.PendingInterest).Equal(view.CurrentValue) {
		t.Fatal("pending estimate lost")
	}
}

func TestBuildViewClosedPositionHasNoPendingInterest(t *testing.T) {
	pos := activePosition()
	pos.State = lifecycle.StateWithdrawn
	pos.AccruedInterest = decimal.NewFromInt(9)

	view := BuildView(pos, pos.MaturityTime.Add(24*time.Hour))
	if !view.PendingInterest.Equal(decimal.Zero) {
		t.Fatalf("closed position pending interest = %s, want 0", view.PendingInterest)
	}
	if view.CanWithdraw || view.CanEmergencyWithdraw {
		t.Fatal("closed position must expose no mutations")
	}
}
