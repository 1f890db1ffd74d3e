package accrual

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

func TestSimpleAccrualFormula(t *testing.T) {
	// 1000 * 12% * 30/365 = 9.86..., truncated to 9.
	got := Accrue(decimal.NewFromInt(1000), 1200, 30*day, 365*day)
	if !got.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("accrue(1000, 1200bp, 30d) = %s, want 9", got)
	}
}

func TestNoAccrualPastMaturity(t *testing.T) {
	principal := decimal.NewFromInt(50_000)
	planDuration := 90 * day

	atMaturity := Accrue(principal, 800, planDuration, planDuration)
	pastMaturity := Accrue(principal, 800, planDuration+365*day, planDuration)

	if !pastMaturity.Equal(atMaturity) {
		t.Fatalf("interest accrued past maturity: %s != %s", pastMaturity, atMaturity)
	}
}

func TestAccrualMonotonic(t *testing.T) {
	principal := decimal.NewFromInt(123_456_789)
	prev := decimal.Zero
	for elapsed := time.Duration(0); elapsed <= 30*day; elapsed += 7 * time.Hour {
		got := Accrue(principal, 1500, elapsed, 30*day)
		if got.LessThan(prev) {
			t.Fatalf("accrual decreased at %s: %s < %s", elapsed, got, prev)
		}
		prev = got
	}
}

func TestAccrualNeverRoundsUp(t *testing.T) {
	// 1000 * 12% * 1/365 = 0.328...; truncation must yield 0, not 1.
	got := Accrue(decimal.NewFromInt(1000), 1200, day, 365*day)
	if !got.Equal(decimal.Zero) {
		t.Fatalf("sub-unit interest should truncate to zero, got %s", got)
	}
}

func TestAccrualClampsNegativeElapsed(t *testing.T) {
	got := Accrue(decimal.NewFromInt(1000), 1200, -time.Hour, 365*day)
	if !got.Equal(decimal.Zero) {
		t.Fatalf("negative elapsed should accrue nothing, got %s", got)
	}
}

func TestTickScheduleMatchesSimple(t *testing.T) {
	principal := decimal.NewFromInt(7_777_777)
	rateBps := int64(950)
	planDuration := 180 * day
	createdAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Irregular tick schedule, including one tick past maturity.
	offsets := []time.Duration{
		13 * time.Hour,
		3 * day,
		3*day + time.Second,
		40 * day,
		99*day + 5*time.Hour,
		181 * day,
	}

	total := decimal.Zero
	last := createdAt
	for _, offset := range offsets {
		now := createdAt.Add(offset)
		total = total.Add(Tick(principal, rateBps, createdAt, last, now, planDuration))
		last = now
	}

	want := Accrue(principal, rateBps, offsets[len(offsets)-1], planDuration)
	if !total.Equal(want) {
		t.Fatalf("累计 tick 结果 %s 应等于单次计算 %s", total, want)
	}
}

func TestTickIgnoresClockGoingBackwards(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	last := createdAt.Add(10 * day)
	now := createdAt.Add(9 * day)

	got := Tick(decimal.NewFromInt(1000), 1200, createdAt, last, now, 30*day)
	if !got.Equal(decimal.Zero) {
		t.Fatalf("backwards clock should accrue nothing, got %s", got)
	}
}
