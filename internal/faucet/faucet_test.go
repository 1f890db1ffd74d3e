package faucet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/ledger"
)

type fakeFaucetGateway struct {
	claims   int
	canClaim bool
	stats    ledger.FaucetStats
	claimErr error
}

func (g *fakeFaucetGateway) ClaimFaucet(ctx context.Context) error {
	g.claims++
	return g.claimErr
}

func (g *fakeFaucetGateway) CanClaimFaucet(ctx context.Context, address string) (bool, error) {
	return g.canClaim, nil
}

func (g *fakeFaucetGateway) TimeUntilNextClaim(ctx context.Context, address string) (time.Duration, error) {
	return 0, nil
}

func (g *fakeFaucetGateway) GetFaucetStats(ctx context.Context) (ledger.FaucetStats, error) {
	return g.stats, nil
}

var _ Gateway = (*fakeFaucetGateway)(nil)

func healthyStats() ledger.FaucetStats {
	return ledger.FaucetStats{
		Distributed: decimal.NewFromInt(100),
		Remaining:   decimal.NewFromInt(9_900),
		UniqueUsers: 1,
	}
}

func newTestLimiter(gw *fakeFaucetGateway, clock *time.Time) *RateLimiter {
	return NewRateLimiter(Options{
		Gateway:     gw,
		Cooldown:    24 * time.Hour,
		ClaimAmount: decimal.NewFromInt(100),
		Now:         func() time.Time { return *clock },
	}, zerolog.Nop())
}

func TestClaimCooldownSequence(t *testing.T) {
	clock := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	gw := &fakeFaucetGateway{canClaim: true, stats: healthyStats()}
	limiter := newTestLimiter(gw, &clock)
	addr := "0xClaimer"

	amount, err := limiter.Claim(context.Background(), addr)
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if !amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("grant = %s, want 100", amount)
	}

	clock = clock.Add(time.Second)
	if _, err := limiter.Claim(context.Background(), addr); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("want ErrCooldownActive one second after a claim, got %v", err)
	}
	if gw.claims != 1 {
		t.Fatalf("本地冷却应拦截第二次提交, claims=%d", gw.claims)
	}

	clock = clock.Add(24*time.Hour - time.Second)
	if _, err := limiter.Claim(context.Background(), addr); err != nil {
		t.Fatalf("claim after full cooldown failed: %v", err)
	}
	if gw.claims != 2 {
		t.Fatalf("claims = %d, want 2", gw.claims)
	}
}

func TestCanClaimUsesLocalGateFirst(t *testing.T) {
	clock := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	gw := &fakeFaucetGateway{canClaim: true, stats: healthyStats()}
	limiter := newTestLimiter(gw, &clock)
	addr := "0xClaimer"

	ok, err := limiter.CanClaim(context.Background(), addr)
	if err != nil || !ok {
		t.Fatalf("fresh account should be claimable: ok=%v err=%v", ok, err)
	}

	if _, err := limiter.Claim(context.Background(), addr); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	clock = clock.Add(time.Hour)
	ok, err = limiter.CanClaim(context.Background(), addr)
	if err != nil {
		t.Fatalf("CanClaim failed: %v", err)
	}
	if ok {
		t.Fatal("cooldown in progress, gate should be closed")
	}
}

func TestClaimSupplyExhaustedPreCheck(t *testing.T) {
	clock := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	gw := &fakeFaucetGateway{
		canClaim: true,
		stats: ledger.FaucetStats{
			Distributed: decimal.NewFromInt(9_950),
			Remaining:   decimal.NewFromInt(50),
			UniqueUsers: 42,
		},
	}
	limiter := newTestLimiter(gw, &clock)

	if _, err := limiter.Claim(context.Background(), "0xClaimer"); !errors.Is(err, ErrSupplyExhausted) {
		t.Fatalf("want ErrSupplyExhausted, got %v", err)
	}
	if gw.claims != 0 {
		t.Fatalf("supply pre-check should stop the submission, claims=%d", gw.claims)
	}
}

func TestClaimClassifiesContractReverts(t *testing.T) {
	cases := []struct {
		reason string
		want   error
	}{
		{"FaucetCooldownNotElapsed", ErrCooldownActive},
		{"faucet supply exhausted", ErrSupplyExhausted},
	}
	for _, tc := range cases {
		clock := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
		gw := &fakeFaucetGateway{
			canClaim: true,
			stats:    healthyStats(),
			claimErr: &ledger.RevertedError{Op: "claimFaucet", Reason: tc.reason},
		}
		limiter := newTestLimiter(gw, &clock)

		_, err := limiter.Claim(context.Background(), "0xClaimer")
		if !errors.Is(err, tc.want) {
			t.Fatalf("reason %q: want %v, got %v", tc.reason, tc.want, err)
		}
	}
}

func TestClaimFailureKeepsGateOpen(t *testing.T) {
	clock := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	gw := &fakeFaucetGateway{
		canClaim: true,
		stats:    healthyStats(),
		claimErr: &ledger.SubmissionError{Op: "claimFaucet", Err: errors.New("nonce too low")},
	}
	limiter := newTestLimiter(gw, &clock)
	addr := "0xClaimer"

	if _, err := limiter.Claim(context.Background(), addr); err == nil {
		t.Fatal("submission failure should surface")
	}

	// The failed attempt must not start a cooldown.
	gw.claimErr = nil
	if _, err := limiter.Claim(context.Background(), addr); err != nil {
		t.Fatalf("retry after submission failure rejected: %v", err)
	}
}
