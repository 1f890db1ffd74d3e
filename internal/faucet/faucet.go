// Package faucet gates test-token claims behind a per-account cooldown
// and a bounded distribution supply. The authoritative check-and-set is
// one atomic operation inside the contract; everything local is an
// advisory fast path.
package faucet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/ledger"
)

var (
	// ErrCooldownActive indicates the account claimed too recently.
	ErrCooldownActive = errors.New("faucet cooldown active")
	// ErrSupplyExhausted indicates the faucet cannot cover another claim.
	ErrSupplyExhausted = errors.New("faucet supply exhausted")
	// ErrClaimInFlight indicates a duplicate concurrent claim attempt.
	ErrClaimInFlight = errors.New("a claim is already in flight for this account")
)

// Gateway is the slice of the vault collaborator the limiter needs.
type Gateway interface {
	ClaimFaucet(ctx context.Context) error
	CanClaimFaucet(ctx context.Context, address string) (bool, error)
	TimeUntilNextClaim(ctx context.Context, address string) (time.Duration, error)
	GetFaucetStats(ctx context.Context) (ledger.FaucetStats, error)
}

// Options wire a RateLimiter. Cooldown and ClaimAmount mirror the
// contract constants for local pre-checks and display.
type Options struct {
	Gateway     Gateway
	Cooldown    time.Duration
	ClaimAmount decimal.Decimal
	Now         func() time.Time
}

// RateLimiter enforces the claim cooldown. Its lastClaim map is a local
// optimisation; a stale entry can only cause an early local rejection or
// a contract revert, never a double grant.
type RateLimiter struct {
	gw          Gateway
	cooldown    time.Duration
	claimAmount decimal.Decimal
	now         func() time.Time
	logger      zerolog.Logger

	mu        sync.Mutex
	lastClaim map[string]time.Time
	inflight  map[string]struct{}
}

// NewRateLimiter constructs the faucet gate.
func NewRateLimiter(opts Options, logger zerolog.Logger) *RateLimiter {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RateLimiter{
		gw:          opts.Gateway,
		cooldown:    opts.Cooldown,
		claimAmount: opts.ClaimAmount,
		now:         now,
		logger:      logger.With().Str("component", "faucet").Logger(),
		lastClaim:   make(map[string]time.Time),
		inflight:    make(map[string]struct{}),
	}
}

// CanClaim asks the contract whether the gate is open for address. The
// answer is advisory; Claim re-validates atomically on chain.
func (r *RateLimiter) CanClaim(ctx context.Context, address string) (bool, error) {
	if !r.gateOpen(address) {
		return false, nil
	}
	return r.gw.CanClaimFaucet(ctx, address)
}

// NextClaim returns the remaining cooldown for address.
func (r *RateLimiter) NextClaim(ctx context.Context, address string) (time.Duration, error) {
	return r.gw.TimeUntilNextClaim(ctx, address)
}

// Stats fetches aggregate faucet distribution state.
func (r *RateLimiter) Stats(ctx context.Context) (ledger.FaucetStats, error) {
	return r.gw.GetFaucetStats(ctx)
}

// Claim requests the fixed grant for address. Local gate and supply
// checks short-circuit before submission; the contract performs the
// authoritative atomic check-and-set, and its revert reasons map back
// onto the same typed errors.
func (r *RateLimiter) Claim(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := r.acquire(address); err != nil {
		return decimal.Zero, err
	}
	defer r.release(address)

	if !r.gateOpen(address) {
		return decimal.Zero, fmt.Errorf("%w: next claim for %s not yet due", ErrCooldownActive, address)
	}

	stats, err := r.gw.GetFaucetStats(ctx)
	if err == nil && stats.Remaining.LessThan(r.claimAmount) {
		return decimal.Zero, fmt.Errorf("%w: %s remaining", ErrSupplyExhausted, stats.Remaining)
	}

	if err := r.gw.ClaimFaucet(ctx); err != nil {
		return decimal.Zero, classifyClaimError(err)
	}

	now := r.now()
	r.mu.Lock()
	r.lastClaim[address] = now
	r.mu.Unlock()

	r.logger.Info().
		Str("address", address).
		Str("amount", r.claimAmount.String()).
		Msg("faucet claim confirmed")
	return r.claimAmount, nil
}

// gateOpen is the local advisory cooldown check: open when the account
// never claimed here or the cooldown has fully elapsed.
func (r *RateLimiter) gateOpen(address string) bool {
	r.mu.Lock()
	last, known := r.lastClaim[address]
	r.mu.Unlock()

	if !known || last.IsZero() {
		return true
	}
	return r.now().Sub(last) >= r.cooldown
}

func (r *RateLimiter) acquire(address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[address]; busy {
		return ErrClaimInFlight
	}
	r.inflight[address] = struct{}{}
	return nil
}

func (r *RateLimiter) release(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, address)
}

// classifyClaimError maps contract revert reasons onto the rate-limit
// taxonomy so callers see typed errors even when the local gate was
// stale.
func classifyClaimError(err error) error {
	reason, reverted := ledger.RevertReason(err)
	if !reverted {
		return err
	}
	lowered := strings.ToLower(reason)
	switch {
	case strings.Contains(lowered, "cooldown"):
		return fmt.Errorf("%w: %s", ErrCooldownActive, reason)
	case strings.Contains(lowered, "supply") || strings.Contains(lowered, "exhausted"):
		return fmt.Errorf("%w: %s", ErrSupplyExhausted, reason)
	default:
		return err
	}
}
