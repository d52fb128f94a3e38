package domain

import "testing"

func TestLockExpiry_ZeroLockPeriod(t *testing.T) {
	if got := LockExpiry(1700000000000, 0); got != nil {
		t.Errorf("expected nil expiry for zero lock period, got %d", *got)
	}
}

func TestLockExpiry_Set(t *testing.T) {
	createdAt := int64(1700000000000)
	got := LockExpiry(createdAt, 30)
	if got == nil {
		t.Fatal("expected expiry, got nil")
	}

	want := createdAt + 30*24*60*60*1000
	if *got != want {
		t.Errorf("expected expiry %d, got %d", want, *got)
	}
}

func TestPool_CanUnlock(t *testing.T) {
	createdAt := int64(1700000000000)
	until := createdAt + 24*60*60*1000

	pool := &LiquidityPool{
		Status:         PoolStatusLocked,
		LockPeriodDays: 1,
		LockedUntil:    &until,
	}

	if pool.CanUnlock(createdAt) {
		t.Error("pool should not unlock before lock expiry")
	}
	if pool.CanUnlock(until - 1) {
		t.Error("pool should not unlock one ms before expiry")
	}
	if !pool.CanUnlock(until) {
		t.Error("pool should unlock at expiry")
	}

	// Active pools have nothing to unlock.
	pool.Status = PoolStatusActive
	if pool.CanUnlock(until + 1000) {
		t.Error("active pool should not report CanUnlock")
	}
}
