package domain

import "github.com/shopspring/decimal"

// PoolStatus is the lifecycle state of a liquidity pool.
type PoolStatus string

// Pool lifecycle states.
const (
	PoolStatusPending  PoolStatus = "pending"
	PoolStatusActive   PoolStatus = "active"
	PoolStatusLocked   PoolStatus = "locked"
	PoolStatusUnlocked PoolStatus = "unlocked"
)

// LiquidityPool pairs a deployed token with a base asset on a venue.
// Invariant: LockedUntil is set iff LockPeriodDays > 0, and the pool
// never transitions to unlocked before LockedUntil has elapsed.
type LiquidityPool struct {
	ID             string // UUID
	TokenID        string
	Network        Network
	Venue          Venue
	InitialAmount  decimal.Decimal
	LockPeriodDays int
	LockedUntil    *int64 // Unix ms; nil when LockPeriodDays == 0
	PoolAddress    string
	Status         PoolStatus
	CreatedAt      int64 // Unix timestamp in milliseconds
	UpdatedAt      int64
}

// LockExpiry computes the lock expiry for a pool created at createdAt.
// Returns nil when lockPeriodDays is zero.
func LockExpiry(createdAt int64, lockPeriodDays int) *int64 {
	if lockPeriodDays <= 0 {
		return nil
	}
	expiry := createdAt + int64(lockPeriodDays)*24*60*60*1000
	return &expiry
}

// CanUnlock reports whether the pool may transition to unlocked at now.
func (p *LiquidityPool) CanUnlock(now int64) bool {
	if p.Status != PoolStatusLocked {
		return false
	}
	return p.LockedUntil != nil && now >= *p.LockedUntil
}
