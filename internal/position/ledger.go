package position

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/accrual"
	"savings-vault-engine/internal/ledger"
	"savings-vault-engine/internal/lifecycle"
	"savings-vault-engine/internal/plan"
)

// ErrMutationInFlight indicates an overlapping mutating call on the same
// position. Mutations per (owner, id) are serialized; a second command
// must wait for the first outcome.
var ErrMutationInFlight = errors.New("another mutation is in flight for this position")

// Gateway is the slice of the vault collaborator the position ledger
// needs. All Writer calls block until confirmed, timed out, or reverted.
type Gateway interface {
	Approve(ctx context.Context, amount decimal.Decimal) error
	CreatePosition(ctx context.Context, amount decimal.Decimal, planID uint32) (uint64, error)
	GetPosition(ctx context.Context, owner string, id uint64) (ledger.PositionSnapshot, error)
	ListPositionIDs(ctx context.Context, owner string) ([]uint64, error)
	Withdraw(ctx context.Context, id uint64) error
	EmergencyWithdraw(ctx context.Context, id uint64) error
}

// PenaltyTerms parameterise early-exit pricing. The base is principal
// only; see accrual.Penalty.
type PenaltyTerms struct {
	RateBps  int64
	MinFloor decimal.Decimal
}

// Options wire a Ledger.
type Options struct {
	Gateway Gateway
	Plans   *plan.Registry
	Penalty PenaltyTerms
	Now     func() time.Time
}

// Ledger sequences validation, submission, confirmation, and local
// reconciliation for position mutations. Its in-process mirror is a
// read-through copy of ledger state, never a source of truth.
type Ledger struct {
	gw      Gateway
	plans   *plan.Registry
	penalty PenaltyTerms
	now     func() time.Time
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	mirror   map[string]map[uint64]Position
}

// NewLedger constructs a position ledger.
func NewLedger(opts Options, logger zerolog.Logger) *Ledger {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{
		gw:       opts.Gateway,
		plans:    opts.Plans,
		penalty:  opts.Penalty,
		now:      now,
		logger:   logger.With().Str("component", "position_ledger").Logger(),
		inflight: make(map[string]struct{}),
		mirror:   make(map[string]map[uint64]Position),
	}
}

// ExitReceipt reports the outcome of a confirmed withdrawal. Amounts
// come from the post-confirmation snapshot, so AccruedInterest is the
// ledger's frozen figure, not a local estimate.
type ExitReceipt struct {
	Position Position
	Payout   decimal.Decimal
	Penalty  decimal.Decimal
}

// Create validates a deposit request and opens a position. The ERC-20
// approval is confirmed before the deposit is submitted; issuing the two
// concurrently risks spending against a stale allowance.
func (l *Ledger) Create(ctx context.Context, owner string, amount decimal.Decimal, planID uint32) (Position, error) {
	if err := l.plans.Validate(amount, planID); err != nil {
		return Position{}, err
	}

	key := owner + "/create"
	if err := l.acquire(key); err != nil {
		return Position{}, err
	}
	defer l.release(key)

	if err := l.gw.Approve(ctx, amount); err != nil {
		return Position{}, fmt.Errorf("approve deposit: %w", err)
	}

	id, err := l.gw.CreatePosition(ctx, amount, planID)
	if err != nil {
		return Position{}, err
	}

	pos, err := l.reconcile(ctx, owner, id)
	if err != nil {
		return Position{}, fmt.Errorf("reconcile created position %d: %w", id, err)
	}

	l.logger.Info().
		Str("owner", owner).
		Uint64("position_id", id).
		Uint32("plan_id", planID).
		Str("principal", amount.String()).
		Msg("position created")
	return pos, nil
}

// Get returns a fresh snapshot of one position, falling back to the
// local mirror only when the ledger is unreachable.
func (l *Ledger) Get(ctx context.Context, owner string, id uint64) (Position, error) {
	pos, err := l.reconcile(ctx, owner, id)
	if err == nil {
		return pos, nil
	}

	l.mu.Lock()
	cached, ok := l.mirror[owner][id]
	l.mu.Unlock()
	if ok {
		l.logger.Warn().Err(err).Uint64("position_id", id).Msg("serving mirrored position; ledger unreachable")
		return cached, nil
	}
	return Position{}, err
}

// List fetches all positions for owner, newest first by creation time.
func (l *Ledger) List(ctx context.Context, owner string) ([]Position, error) {
	ids, err := l.gw.ListPositionIDs(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	positions := make([]Position, 0, len(ids))
	for _, id := range ids {
		pos, err := l.reconcile(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt.After(positions[j].CreatedAt)
	})
	return positions, nil
}

// Withdraw pays out principal plus accrued interest from a matured
// position.
func (l *Ledger) Withdraw(ctx context.Context, owner string, id uint64) (ExitReceipt, error) {
	key := mutationKey(owner, id)
	if err := l.acquire(key); err != nil {
		return ExitReceipt{}, err
	}
	defer l.release(key)

	pos, err := l.reconcile(ctx, owner, id)
	if err != nil {
		return ExitReceipt{}, err
	}

	now := l.now()
	if err := lifecycle.CanWithdraw(pos.State, now, pos.MaturityTime); err != nil {
		return ExitReceipt{}, err
	}

	if err := l.gw.Withdraw(ctx, id); err != nil {
		return ExitReceipt{}, err
	}

	final, err := l.reconcile(ctx, owner, id)
	if err != nil {
		return ExitReceipt{}, fmt.Errorf("reconcile withdrawn position %d: %w", id, err)
	}

	receipt := ExitReceipt{
		Position: final,
		Payout:   final.Principal.Add(final.AccruedInterest),
	}
	l.logger.Info().
		Str("owner", owner).
		Uint64("position_id", id).
		Str("payout", receipt.Payout.String()).
		Msg("position withdrawn")
	return receipt, nil
}

// EmergencyWithdraw exits an active position before maturity, deducting
// the penalty from the payout.
func (l *Ledger) EmergencyWithdraw(ctx context.Context, owner string, id uint64) (ExitReceipt, error) {
	key := mutationKey(owner, id)
	if err := l.acquire(key); err != nil {
		return ExitReceipt{}, err
	}
	defer l.release(key)

	pos, err := l.reconcile(ctx, owner, id)
	if err != nil {
		return ExitReceipt{}, err
	}

	now := l.now()
	if err := lifecycle.CanEmergencyWithdraw(pos.State, now, pos.MaturityTime); err != nil {
		return ExitReceipt{}, err
	}

	if err := l.gw.EmergencyWithdraw(ctx, id); err != nil {
		return ExitReceipt{}, err
	}

	final, err := l.reconcile(ctx, owner, id)
	if err != nil {
		return ExitReceipt{}, fmt.Errorf("reconcile emergency-withdrawn position %d: %w", id, err)
	}

	penalty := accrual.Penalty(final.Principal, l.penalty.RateBps, l.penalty.MinFloor)
	receipt := ExitReceipt{
		Position: final,
		Penalty:  penalty,
		Payout:   final.Principal.Add(final.AccruedInterest).Sub(penalty),
	}
	l.logger.Info().
		Str("owner", owner).
		Uint64("position_id", id).
		Str("payout", receipt.Payout.String()).
		Str("penalty", penalty.String()).
		Msg("position emergency withdrawn")
	return receipt, nil
}

// reconcile fetches the authoritative snapshot and refreshes the mirror.
func (l *Ledger) reconcile(ctx context.Context, owner string, id uint64) (Position, error) {
	snap, err := l.gw.GetPosition(ctx, owner, id)
	if err != nil {
		return Position{}, fmt.Errorf("fetch position %d: %w", id, err)
	}

	pos := FromSnapshot(snap)

	l.mu.Lock()
	byID, ok := l.mirror[owner]
	if !ok {
		byID = make(map[uint64]Position)
		l.mirror[owner] = byID
	}
	byID[id] = pos
	l.mu.Unlock()

	return pos, nil
}

func (l *Ledger) acquire(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inflight[key]; busy {
		return ErrMutationInFlight
	}
	l.inflight[key] = struct{}{}
	return nil
}

func (l *Ledger) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, key)
}

func mutationKey(owner string, id uint64) string {
	return fmt.Sprintf("%s/%d", owner, id)
}
