package plan

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testRegistry() *Registry {
	return NewRegistry(
		Plan{ID: 30, DurationDays: 30, RateBps: 1200, MinAmount: decimal.NewFromInt(10), MaxAmount: decimal.NewFromInt(1000), Active: true},
		Plan{ID: 90, DurationDays: 90, RateBps: 1500, MinAmount: decimal.NewFromInt(10), MaxAmount: decimal.NewFromInt(1000), Active: false},
	)
}

func TestValidateOK(t *testing.T) {
	r := testRegistry()
	if err := r.Validate(decimal.NewFromInt(500), 30); err != nil {
		t.Fatalf("valid deposit rejected: %v", err)
	}
}

func TestValidateBoundsInclusive(t *testing.T) {
	r := testRegistry()
	if err := r.Validate(decimal.NewFromInt(10), 30); err != nil {
		t.Fatalf("min amount should be accepted: %v", err)
	}
	if err := r.Validate(decimal.NewFromInt(1000), 30); err != nil {
		t.Fatalf("max amount should be accepted: %v", err)
	}
}

func TestValidatePlanNotFound(t *testing.T) {
	r := testRegistry()
	if err := r.Validate(decimal.NewFromInt(500), 7); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("want ErrPlanNotFound, got %v", err)
	}
}

func TestValidatePlanInactive(t *testing.T) {
	r := testRegistry()
	if err := r.Validate(decimal.NewFromInt(500), 90); !errors.Is(err, ErrPlanInactive) {
		t.Fatalf("want ErrPlanInactive, got %v", err)
	}
}

func TestValidateAmountOutOfRange(t *testing.T) {
	r := testRegistry()
	if err := r.Validate(decimal.NewFromInt(5), 30); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("want ErrAmountOutOfRange below min, got %v", err)
	}
	if err := r.Validate(decimal.NewFromInt(1001), 30); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("want ErrAmountOutOfRange above max, got %v", err)
	}
	if err := r.Validate(decimal.Zero, 30); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("want ErrAmountOutOfRange for zero amount, got %v", err)
	}
}

func TestListOrdered(t *testing.T) {
	plans := testRegistry().List()
	if len(plans) != 2 || plans[0].ID != 30 || plans[1].ID != 90 {
		t.Fatalf("unexpected catalog order: %#v", plans)
	}
}

func TestPutReplacesForFutureValidationsOnly(t *testing.T) {
	r := testRegistry()

	updated, _ := r.Get(30)
	updated.RateBps = 600
	r.Put(updated)

	got, err := r.Get(30)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RateBps != 600 {
		t.Fatalf("rate not updated: %d", got.RateBps)
	}
}
