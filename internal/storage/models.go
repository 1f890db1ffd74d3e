package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSnapshotRow is one cached mirror of an on-chain position. The
// cache is keyed by owner and carries an explicit staleness timestamp;
// it is never authoritative.
type PositionSnapshotRow struct {
	Owner           string
	PositionID      int64
	Principal       decimal.Decimal
	PlanID          int32
	RateBps         int64
	CreatedAt       time.Time
	MaturityTime    time.Time
	LastAccrualTime time.Time
	AccruedInterest decimal.Decimal
	State           int16
	FetchedAt       time.Time
}

// FaucetStatsRow caches the aggregate faucet figures.
type FaucetStatsRow struct {
	Distributed decimal.Decimal
	Remaining   decimal.Decimal
	UniqueUsers int64
	FetchedAt   time.Time
}
