package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

func testPool(id, tokenID string, createdAt int64) *domain.LiquidityPool {
	return &domain.LiquidityPool{
		ID:            id,
		TokenID:       tokenID,
		Network:       domain.NetworkEthereum,
		Venue:         domain.VenueUniswap,
		InitialAmount: decimal.NewFromInt(100),
		Status:        domain.PoolStatusPending,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestPoolStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewPoolStore()

	if err := store.Insert(ctx, testPool("pool-1", "tok-1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pool-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Venue != domain.VenueUniswap {
		t.Errorf("expected venue uniswap, got %s", got.Venue)
	}

	err = store.Insert(ctx, testPool("pool-1", "tok-2", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPoolStoreGetByToken(t *testing.T) {
	ctx := context.Background()
	store := NewPoolStore()

	for i, id := range []string{"pool-c", "pool-a", "pool-b"} {
		if err := store.Insert(ctx, testPool(id, "tok-1", int64(3000-i*1000))); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}
	if err := store.Insert(ctx, testPool("pool-x", "tok-2", 100)); err != nil {
		t.Fatalf("Insert pool-x failed: %v", err)
	}

	got, err := store.GetByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 pools, got %d", len(got))
	}
	want := []string{"pool-b", "pool-a", "pool-c"}
	for i, p := range got {
		if p.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], p.ID)
		}
	}
}

func TestPoolStoreUpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := NewPoolStore()

	if err := store.Insert(ctx, testPool("pool-1", "tok-1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.UpdateStatus(ctx, "pool-1", domain.PoolStatusActive, 2000); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pool-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.PoolStatusActive {
		t.Errorf("expected status active, got %s", got.Status)
	}
	if got.UpdatedAt != 2000 {
		t.Errorf("expected updatedAt 2000, got %d", got.UpdatedAt)
	}

	err = store.UpdateStatus(ctx, "nope", domain.PoolStatusActive, 2000)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPoolStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewPoolStore()

	until := int64(5000)
	pool := testPool("pool-1", "tok-1", 1000)
	pool.LockPeriodDays = 30
	pool.LockedUntil = &until
	pool.Status = domain.PoolStatusLocked
	if err := store.Insert(ctx, pool); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pool-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	*got.LockedUntil = 0
	got.Status = domain.PoolStatusUnlocked

	fresh, err := store.GetByID(ctx, "pool-1")
	if err != nil {
		t.Fatalf("second GetByID failed: %v", err)
	}
	if fresh.LockedUntil == nil || *fresh.LockedUntil != 5000 {
		t.Error("mutating a returned pool's lock expiry leaked into the store")
	}
	if fresh.Status != domain.PoolStatusLocked {
		t.Error("mutating a returned pool's status leaked into the store")
	}
}
