package accrual

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPenaltyOnPrincipal(t *testing.T) {
	// 1000 at 50bp = 5; payout 1000 + 20 - 5 = 1015.
	penalty := Penalty(decimal.NewFromInt(1000), 50, decimal.Zero)
	if !penalty.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("penalty = %s, want 5", penalty)
	}

	payout := decimal.NewFromInt(1000).Add(decimal.NewFromInt(20)).Sub(penalty)
	if !payout.Equal(decimal.NewFromInt(1015)) {
		t.Fatalf("payout = %s, want 1015", payout)
	}
}

func TestPenaltyFloor(t *testing.T) {
	// 100 at 50bp truncates to 0; the floor takes over.
	penalty := Penalty(decimal.NewFromInt(100), 50, decimal.NewFromInt(1))
	if !penalty.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("penalty = %s, want floor 1", penalty)
	}
}

func TestPenaltyTruncates(t *testing.T) {
	// 999 at 50bp = 4.995; must truncate down to 4.
	penalty := Penalty(decimal.NewFromInt(999), 50, decimal.Zero)
	if !penalty.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("penalty = %s, want 4", penalty)
	}
}
