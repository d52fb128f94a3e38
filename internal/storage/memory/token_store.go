package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by token id
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Insert adds a new token with Version 1. Returns ErrDuplicateKey if the id exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	tokenCopy := copyToken(t)
	tokenCopy.Version = 1
	s.data[t.ID] = tokenCopy
	return nil
}

// GetByID retrieves a token by id. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(_ context.Context, id string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyToken(t), nil
}

// GetByCreator retrieves all tokens created by a wallet address.
func (s *TokenStore) GetByCreator(_ context.Context, creator string) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		if t.Creator == creator {
			result = append(result, copyToken(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})

	return result, nil
}

// Update applies a patch under an optimistic version check.
func (s *TokenStore) Update(_ context.Context, id string, expectedVersion int64, patch storage.TokenPatch) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	if t.Version != expectedVersion {
		return nil, storage.ErrVersionConflict
	}

	updated := copyToken(t)
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.Records != nil {
		updated.Records = append([]domain.DeploymentRecord(nil), patch.Records...)
	}
	updated.Version = t.Version + 1
	updated.UpdatedAt = time.Now().UnixMilli()
	s.data[id] = updated

	return copyToken(updated), nil
}

// copyToken deep-copies a token to prevent external mutation.
func copyToken(t *domain.Token) *domain.Token {
	tokenCopy := *t
	tokenCopy.Records = append([]domain.DeploymentRecord(nil), t.Records...)
	if t.Spec.Networks != nil {
		tokenCopy.Spec.Networks = append([]domain.Network(nil), t.Spec.Networks...)
	}
	if t.Spec.Liquidity != nil {
		liq := *t.Spec.Liquidity
		tokenCopy.Spec.Liquidity = &liq
	}
	return &tokenCopy
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
