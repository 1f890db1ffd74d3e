package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/lifecycle"
	"savings-vault-engine/internal/position"
)

func pos(id uint64, principal, accrued int64, state lifecycle.State) position.Position {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return position.Position{
		ID:              id,
		Owner:           "0xOwner",
		Principal:       decimal.NewFromInt(principal),
		AccruedInterest: decimal.NewFromInt(accrued),
		CreatedAt:       created,
		MaturityTime:    created.Add(30 * 24 * time.Hour),
		State:           state,
	}
}

func TestSummarizeSums(t *testing.T) {
	s := Summarize([]position.Position{
		pos(1, 1000, 9, lifecycle.StateActive),
		pos(2, 500, 2, lifecycle.StateActive),
	})

	if !s.TotalPrincipal.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("total principal = %s, want 1500", s.TotalPrincipal)
	}
	if !s.TotalAccrued.Equal(decimal.NewFromInt(11)) {
		t.Fatalf("total accrued = %s, want 11", s.TotalAccrued)
	}
	if !s.TotalCurrentValue.Equal(decimal.NewFromInt(1511)) {
		t.Fatalf("total current value = %s, want 1511", s.TotalCurrentValue)
	}
	if s.ActiveCount != 2 {
		t.Fatalf("active count = %d, want 2", s.ActiveCount)
	}
}

func TestSummarizeExcludesClosedPositions(t *testing.T) {
	s := Summarize([]position.Position{
		pos(1, 1000, 9, lifecycle.StateActive),
		pos(2, 2000, 40, lifecycle.StateWithdrawn),
		pos(3, 3000, 5, lifecycle.StateEmergencyWithdrawn),
	})

	if !s.TotalPrincipal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("closed positions leaked into the totals: %s", s.TotalPrincipal)
	}
	if s.ActiveCount != 1 {
		t.Fatalf("active count = %d, want 1", s.ActiveCount)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if !s.TotalPrincipal.Equal(decimal.Zero) || !s.TotalCurrentValue.Equal(decimal.Zero) || s.ActiveCount != 0 {
		t.Fatalf("empty portfolio should be all zeroes: %+v", s)
	}
}
