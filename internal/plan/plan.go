// Package plan holds the savings-plan catalog and validates proposed
// deposits against it before anything is submitted to the ledger.
package plan

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/ledger"
)

var (
	// ErrPlanNotFound indicates no plan matches the requested id.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanInactive indicates the plan no longer accepts deposits.
	ErrPlanInactive = errors.New("plan inactive")
	// ErrAmountOutOfRange indicates the amount violates the plan bounds.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// Plan is one lock-duration/rate/bounds configuration. The id doubles as
// the lock duration in days. Positions snapshot the rate at creation, so
// later registry updates never alter existing positions.
type Plan struct {
	ID           uint32
	DurationDays uint32
	RateBps      int64
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
	Active       bool
}

// Duration returns the lock period as a time.Duration.
func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// FromRecord converts a ledger plan record.
func FromRecord(rec ledger.PlanRecord) Plan {
	return Plan{
		ID:           rec.ID,
		DurationDays: rec.DurationDays,
		RateBps:      rec.RateBps,
		MinAmount:    rec.MinAmount,
		MaxAmount:    rec.MaxAmount,
		Active:       rec.Active,
	}
}

// Registry is the in-process plan catalog.
type Registry struct {
	mu    sync.RWMutex
	plans map[uint32]Plan
}

// NewRegistry builds a registry seeded with the given plans.
func NewRegistry(seed ...Plan) *Registry {
	r := &Registry{plans: make(map[uint32]Plan, len(seed))}
	for _, p := range seed {
		r.plans[p.ID] = p
	}
	return r
}

// Put inserts or replaces a plan. Existing positions keep their
// snapshotted rate regardless.
func (r *Registry) Put(p Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p
}

// Get looks up a plan by id.
func (r *Registry) Get(id uint32) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: plan %d", ErrPlanNotFound, id)
	}
	return p, nil
}

// List returns all plans ordered by id.
func (r *Registry) List() []Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plans := make([]Plan, 0, len(r.plans))
	for _, p := range r.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans
}

// Validate checks a proposed deposit against the catalog. Pure and
// synchronous; it must run before any ledger call so invalid requests
// never reach the network.
func (r *Registry) Validate(amount decimal.Decimal, planID uint32) error {
	p, err := r.Get(planID)
	if err != nil {
		return err
	}
	if !p.Active {
		return fmt.Errorf("%w: plan %d", ErrPlanInactive, planID)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrAmountOutOfRange)
	}
	if amount.LessThan(p.MinAmount) || amount.GreaterThan(p.MaxAmount) {
		return fmt.Errorf("%w: amount %s outside [%s, %s] for plan %d",
			ErrAmountOutOfRange, amount, p.MinAmount, p.MaxAmount, planID)
	}
	return nil
}
