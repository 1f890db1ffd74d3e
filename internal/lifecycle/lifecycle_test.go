package lifecycle

import (
	"errors"
	"testing"
	"time"
)

var (
	maturity  = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	before    = maturity.Add(-time.Hour)
	atOrAfter = maturity
)

func TestObserveMaturity(t *testing.T) {
	if got := Observe(StateActive, before, maturity); got != StateActive {
		t.Fatalf("before maturity: got %s", got)
	}
	if got := Observe(StateActive, atOrAfter, maturity); got != StateMatured {
		t.Fatalf("at maturity: got %s", got)
	}
	if got := Observe(StateWithdrawn, atOrAfter, maturity); got != StateWithdrawn {
		t.Fatalf("terminal state must not re-mature: got %s", got)
	}
}

func TestCanWithdraw(t *testing.T) {
	if err := CanWithdraw(StateActive, before, maturity); !errors.Is(err, ErrNotYetMatured) {
		t.Fatalf("want ErrNotYetMatured, got %v", err)
	}
	if err := CanWithdraw(StateActive, atOrAfter, maturity); err != nil {
		t.Fatalf("matured position should be withdrawable: %v", err)
	}
	if err := CanWithdraw(StateWithdrawn, atOrAfter, maturity); !errors.Is(err, ErrAlreadyWithdrawn) {
		t.Fatalf("want ErrAlreadyWithdrawn, got %v", err)
	}
	if err := CanWithdraw(StateEmergencyWithdrawn, atOrAfter, maturity); !errors.Is(err, ErrAlreadyWithdrawn) {
		t.Fatalf("want ErrAlreadyWithdrawn after emergency exit, got %v", err)
	}
}

func TestCanEmergencyWithdraw(t *testing.T) {
	if err := CanEmergencyWithdraw(StateActive, before, maturity); err != nil {
		t.Fatalf("active position should allow emergency exit: %v", err)
	}
	if err := CanEmergencyWithdraw(StateActive, atOrAfter, maturity); !errors.Is(err, ErrCannotEmergencyWithdrawMatured) {
		t.Fatalf("want ErrCannotEmergencyWithdrawMatured, got %v", err)
	}
	if err := CanEmergencyWithdraw(StateWithdrawn, before, maturity); !errors.Is(err, ErrAlreadyWithdrawn) {
		t.Fatalf("want ErrAlreadyWithdrawn, got %v", err)
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []State{StateActive, StateMatured} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	for _, s := range []State{StateWithdrawn, StateEmergencyWithdrawn} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}
