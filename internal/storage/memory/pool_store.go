package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LiquidityPool // keyed by pool id
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[string]*domain.LiquidityPool),
	}
}

// Insert adds a new pool. Returns ErrDuplicateKey if the id exists.
func (s *PoolStore) Insert(_ context.Context, p *domain.LiquidityPool) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[p.ID] = copyPool(p)
	return nil
}

// GetByID retrieves a pool by id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(_ context.Context, id string) (*domain.LiquidityPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyPool(p), nil
}

// GetByToken retrieves all pools for a token, ordered by creation time ASC.
func (s *PoolStore) GetByToken(_ context.Context, tokenID string) ([]*domain.LiquidityPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquidityPool
	for _, p := range s.data {
		if p.TokenID == tokenID {
			result = append(result, copyPool(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})

	return result, nil
}

// UpdateStatus transitions a pool's status.
func (s *PoolStore) UpdateStatus(_ context.Context, id string, status domain.PoolStatus, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	p.Status = status
	p.UpdatedAt = updatedAt
	return nil
}

// copyPool copies a pool to prevent external mutation.
func copyPool(p *domain.LiquidityPool) *domain.LiquidityPool {
	poolCopy := *p
	if p.LockedUntil != nil {
		until := *p.LockedUntil
		poolCopy.LockedUntil = &until
	}
	return &poolCopy
}

// Verify interface compliance at compile time.
var _ storage.PoolStore = (*PoolStore)(nil)
