package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"savings-vault-engine/internal/faucet"
	"savings-vault-engine/internal/ledger"
	"savings-vault-engine/internal/lifecycle"
	"savings-vault-engine/internal/plan"
	"savings-vault-engine/internal/poller"
	"savings-vault-engine/internal/portfolio"
	"savings-vault-engine/internal/position"
	"savings-vault-engine/internal/storage"
)

// PlanFetcher is the slice of the vault collaborator the plan sync needs.
type PlanFetcher interface {
	GetPlan(ctx context.Context, planID uint32) (ledger.PlanRecord, error)
}

// Options wire the engine service.
type Options struct {
	Owner       string
	PlanIDs     []uint32
	Positions   *position.Ledger
	Plans       *plan.Registry
	PlanSource  PlanFetcher
	Limiter     *faucet.RateLimiter
	Snapshots   storage.SnapshotStore
	FaucetCache storage.FaucetStatsStore
	Locker      storage.AdvisoryLocker
	LockKey     int64
	Now         func() time.Time
}

// Service orchestrates reconciliation and derives the presentation
// views. Read paths recompute after every mutation and on the bounded
// polling interval.
type Service struct {
	owner       string
	planIDs     []uint32
	positions   *position.Ledger
	plans       *plan.Registry
	planSource  PlanFetcher
	limiter     *faucet.RateLimiter
	snapshots   storage.SnapshotStore
	faucetCache storage.FaucetStatsStore
	locker      storage.AdvisoryLocker
	lockKey     int64
	now         func() time.Time
	logger      zerolog.Logger
}

// New constructs the engine service.
func New(opts Options, logger zerolog.Logger) *Service {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		owner:       opts.Owner,
		planIDs:     opts.PlanIDs,
		positions:   opts.Positions,
		plans:       opts.Plans,
		planSource:  opts.PlanSource,
		limiter:     opts.Limiter,
		snapshots:   opts.Snapshots,
		faucetCache: opts.FaucetCache,
		locker:      opts.Locker,
		lockKey:     opts.LockKey,
		now:         now,
		logger:      logger.With().Str("component", "service").Logger(),
	}
}

// SyncPlans refreshes the plan catalog from the vault. Positions keep
// their snapshotted rates; a sync only affects future validations.
func (s *Service) SyncPlans(ctx context.Context) error {
	if s.planSource == nil {
		return nil
	}
	for _, id := range s.planIDs {
		rec, err := s.planSource.GetPlan(ctx, id)
		if err != nil {
			return fmt.Errorf("sync plan %d: %w", id, err)
		}
		s.plans.Put(plan.FromRecord(rec))
	}
	s.logger.Info().Int("plans", len(s.planIDs)).Msg("plan catalog synced")
	return nil
}

// RunWith begins the reconciliation loop on the given poller.
func (s *Service) RunWith(ctx context.Context, p *poller.Poller) error {
	if p == nil {
		return fmt.Errorf("poller not configured")
	}
	return p.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes one refresh cycle, skipping when another
// instance holds the advisory lock on the shared cache.
func (s *Service) ProcessCycle(ctx context.Context, at time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", at).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.Refresh(ctx, at)
}

// Refresh reconciles positions and faucet state from the vault, rebuilds
// the views, and refreshes the snapshot cache.
func (s *Service) Refresh(ctx context.Context, at time.Time) error {
	views, summary, err := s.PositionViews(ctx)
	if err != nil {
		return fmt.Errorf("refresh positions: %w", err)
	}

	if s.snapshots != nil {
		for _, view := range views {
			if err := s.snapshots.UpsertPositionSnapshot(ctx, snapshotRow(view.Position, at)); err != nil {
				s.logger.Error().Err(err).Uint64("position_id", view.Position.ID).Msg("failed to cache position snapshot")
			}
		}
	}

	if s.faucetCache != nil && s.limiter != nil {
		stats, err := s.limiter.Stats(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to fetch faucet stats")
		} else if err := s.faucetCache.UpsertFaucetStats(ctx, storage.FaucetStatsRow{
			Distributed: stats.Distributed,
			Remaining:   stats.Remaining,
			UniqueUsers: int64(stats.UniqueUsers),
			FetchedAt:   at,
		}); err != nil {
			s.logger.Error().Err(err).Msg("failed to cache faucet stats")
		}
	}

	s.logger.Info().
		Time("cycle", at).
		Int("positions", len(views)).
		Int("active", summary.ActiveCount).
		Str("total_principal", summary.TotalPrincipal.String()).
		Str("total_accrued", summary.TotalAccrued.String()).
		Msg("refresh cycle complete")
	return nil
}

// PositionViews fetches the owner's positions and derives the
// presentation views plus the portfolio summary.
func (s *Service) PositionViews(ctx context.Context) ([]PositionView, portfolio.Summary, error) {
	positions, err := s.positions.List(ctx, s.owner)
	if err != nil {
		return nil, portfolio.Summary{}, err
	}

	now := s.now()
	views := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		views = append(views, BuildView(pos, now))
	}
	return views, portfolio.Summarize(positions), nil
}

// FaucetView derives the faucet countdown for the owner.
func (s *Service) FaucetView(ctx context.Context) (FaucetView, error) {
	if s.limiter == nil {
		return FaucetView{}, fmt.Errorf("faucet not configured")
	}

	canClaim, err := s.limiter.CanClaim(ctx, s.owner)
	if err != nil {
		return FaucetView{}, fmt.Errorf("check faucet gate: %w", err)
	}

	view := FaucetView{CanClaim: canClaim}
	if !canClaim {
		remaining, err := s.limiter.NextClaim(ctx, s.owner)
		if err != nil {
			return FaucetView{}, fmt.Errorf("fetch faucet countdown: %w", err)
		}
		view.SecondsUntilNextClaim = int64(remaining / time.Second)
	}

	stats, err := s.limiter.Stats(ctx)
	if err != nil {
		return FaucetView{}, fmt.Errorf("fetch faucet stats: %w", err)
	}
	view.Stats = stats

	return view, nil
}

// CachedViews rebuilds views from the snapshot cache when the ledger is
// unreachable. The staleness timestamp of the oldest row is returned so
// callers can surface it; the result is advisory, never authoritative.
func (s *Service) CachedViews(ctx context.Context) ([]PositionView, portfolio.Summary, time.Time, error) {
	if s.snapshots == nil {
		return nil, portfolio.Summary{}, time.Time{}, fmt.Errorf("snapshot cache not configured")
	}

	rows, err := s.snapshots.ListSnapshotsByOwner(ctx, s.owner)
	if err != nil {
		return nil, portfolio.Summary{}, time.Time{}, err
	}

	now := s.now()
	var fetchedAt time.Time
	positions := make([]position.Position, 0, len(rows))
	views := make([]PositionView, 0, len(rows))
	for _, row := range rows {
		pos := positionFromRow(row)
		positions = append(positions, pos)
		views = append(views, BuildView(pos, now))
		if fetchedAt.IsZero() || row.FetchedAt.Before(fetchedAt) {
			fetchedAt = row.FetchedAt
		}
	}
	return views, portfolio.Summarize(positions), fetchedAt, nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func snapshotRow(pos position.Position, fetchedAt time.Time) storage.PositionSnapshotRow {
	return storage.PositionSnapshotRow{
		Owner:           pos.Owner,
		PositionID:      int64(pos.ID),
		Principal:       pos.Principal,
		PlanID:          int32(pos.PlanID),
		RateBps:         pos.RateBps,
		CreatedAt:       pos.CreatedAt,
		MaturityTime:    pos.MaturityTime,
		LastAccrualTime: pos.LastAccrualTime,
		AccruedInterest: pos.AccruedInterest,
		State:           int16(pos.State),
		FetchedAt:       fetchedAt,
	}
}

func positionFromRow(row storage.PositionSnapshotRow) position.Position {
	return position.Position{
		ID:              uint64(row.PositionID),
		Owner:           row.Owner,
		Principal:       row.Principal,
		PlanID:          uint32(row.PlanID),
		RateBps:         row.RateBps,
		CreatedAt:       row.CreatedAt,
		MaturityTime:    row.MaturityTime,
		LastAccrualTime: row.LastAccrualTime,
		AccruedInterest: row.AccruedInterest,
		State:           lifecycle.State(row.State),
	}
}
