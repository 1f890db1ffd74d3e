package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNoStats indicates no cached faucet stats exist yet.
	ErrNoStats = errors.New("storage: no cached faucet stats")
)

const (
	upsertPositionSnapshotSQL = `INSERT INTO position_snapshots (
        owner,
        position_id,
        principal,
        plan_id,
        rate_bps,
        created_at,
        maturity_time,
        last_accrual_time,
        accrued_interest,
        state,
        fetched_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (owner, position_id) DO UPDATE
    SET
        principal         = EXCLUDED.principal,
        plan_id           = EXCLUDED.plan_id,
        rate_bps          = EXCLUDED.rate_bps,
        created_at        = EXCLUDED.created_at,
        maturity_time     = EXCLUDED.maturity_time,
        last_accrual_time = EXCLUDED.last_accrual_time,
        accrued_interest  = EXCLUDED.accrued_interest,
        state             = EXCLUDED.state,
        fetched_at        = EXCLUDED.fetched_at;`

	listSnapshotsByOwnerSQL = `SELECT
        owner,
        position_id,
        principal,
        plan_id,
        rate_bps,
        created_at,
        maturity_time,
        last_accrual_time,
        accrued_interest,
        state,
        fetched_at
    FROM position_snapshots
    WHERE owner = $1
    ORDER BY created_at DESC;`

	deleteSnapshotsForOwnerSQL = `DELETE FROM position_snapshots WHERE owner = $1;`

	upsertFaucetStatsSQL = `INSERT INTO faucet_stats (
        id,
        distributed,
        remaining,
        unique_users,
        fetched_at
    ) VALUES (
        1,$1,$2,$3,$4
    )
    ON CONFLICT (id) DO UPDATE
    SET distributed  = EXCLUDED.distributed,
        remaining    = EXCLUDED.remaining,
        unique_users = EXCLUDED.unique_users,
        fetched_at   = EXCLUDED.fetched_at;`

	getFaucetStatsSQL = `SELECT distributed, remaining, unique_users, fetched_at
    FROM faucet_stats
    WHERE id = 1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines operations for the position snapshot cache.
type SnapshotStore interface {
	UpsertPositionSnapshot(ctx context.Context, row PositionSnapshotRow) error
	ListSnapshotsByOwner(ctx context.Context, owner string) ([]PositionSnapshotRow, error)
	DeleteSnapshotsForOwner(ctx context.Context, owner string) error
}

// FaucetStatsStore defines operations for the faucet stats cache.
type FaucetStatsStore interface {
	UpsertFaucetStats(ctx context.Context, row FaucetStatsRow) error
	GetFaucetStats(ctx context.Context) (FaucetStatsRow, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to the snapshot cache.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best effort; releasing the connection drops the lock regardless.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// UpsertPositionSnapshot persists or refreshes one cached position.
func (s *Store) UpsertPositionSnapshot(ctx context.Context, row PositionSnapshotRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertPositionSnapshotSQL,
		row.Owner,
		row.PositionID,
		row.Principal.String(),
		row.PlanID,
		row.RateBps,
		row.CreatedAt,
		row.MaturityTime,
		row.LastAccrualTime,
		row.AccruedInterest.String(),
		row.State,
		row.FetchedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert position snapshot: %w", execErr)
	}
	return nil
}

// ListSnapshotsByOwner lists cached positions for one owner, newest first.
func (s *Store) ListSnapshotsByOwner(ctx context.Context, owner string) ([]PositionSnapshotRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsByOwnerSQL, owner)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots by owner: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]PositionSnapshotRow, 0)
	for rows.Next() {
		row, scanErr := scanPositionSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// DeleteSnapshotsForOwner drops an owner's cached positions.
func (s *Store) DeleteSnapshotsForOwner(ctx context.Context, owner string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteSnapshotsForOwnerSQL, owner); execErr != nil {
		return fmt.Errorf("delete snapshots for owner: %w", execErr)
	}
	return nil
}

// UpsertFaucetStats refreshes the cached faucet aggregate.
func (s *Store) UpsertFaucetStats(ctx context.Context, row FaucetStatsRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertFaucetStatsSQL,
		row.Distributed.String(),
		row.Remaining.String(),
		row.UniqueUsers,
		row.FetchedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert faucet stats: %w", execErr)
	}
	return nil
}

// GetFaucetStats returns the cached faucet aggregate.
func (s *Store) GetFaucetStats(ctx context.Context) (FaucetStatsRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return FaucetStatsRow{}, err
	}

	var (
		row            FaucetStatsRow
		distributedStr string
		remainingStr   string
	)
	scanErr := pool.QueryRow(ctx, getFaucetStatsSQL).Scan(&distributedStr, &remainingStr, &row.UniqueUsers, &row.FetchedAt)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return FaucetStatsRow{}, ErrNoStats
		}
		return FaucetStatsRow{}, fmt.Errorf("get faucet stats: %w", scanErr)
	}

	if row.Distributed, err = decimal.NewFromString(distributedStr); err != nil {
		return FaucetStatsRow{}, fmt.Errorf("parse distributed total: %w", err)
	}
	if row.Remaining, err = decimal.NewFromString(remainingStr); err != nil {
		return FaucetStatsRow{}, fmt.Errorf("parse remaining supply: %w", err)
	}
	return row, nil
}

func scanPositionSnapshot(rows pgx.Rows) (PositionSnapshotRow, error) {
	var (
		row          PositionSnapshotRow
		principalStr string
		accruedStr   string
	)

	if err := rows.Scan(
		&row.Owner,
		&row.PositionID,
		&principalStr,
		&row.PlanID,
		&row.RateBps,
		&row.CreatedAt,
		&row.MaturityTime,
		&row.LastAccrualTime,
		&accruedStr,
		&row.State,
		&row.FetchedAt,
	); err != nil {
		return PositionSnapshotRow{}, err
	}

	principal, err := decimal.NewFromString(principalStr)
	if err != nil {
		return PositionSnapshotRow{}, fmt.Errorf("parse principal: %w", err)
	}
	accrued, err := decimal.NewFromString(accruedStr)
	if err != nil {
		return PositionSnapshotRow{}, fmt.Errorf("parse accrued interest: %w", err)
	}

	row.Principal = principal
	row.AccruedInterest = accrued
	return row, nil
}
