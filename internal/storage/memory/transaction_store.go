package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransactionRecord // keyed by record id
	seq  []string                             // ids in append order
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.TransactionRecord),
	}
}

// Append adds an audit record. Returns ErrDuplicateKey when the id was
// already appended.
func (s *TransactionStore) Append(_ context.Context, rec *domain.TransactionRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[rec.ID] = copyTransaction(rec)
	s.seq = append(s.seq, rec.ID)
	return nil
}

// GetByToken retrieves all records for a token, ordered by creation time ASC.
func (s *TransactionStore) GetByToken(_ context.Context, tokenID string) ([]*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionRecord
	for _, id := range s.seq {
		rec := s.data[id]
		if rec.TokenID == tokenID {
			result = append(result, copyTransaction(rec))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})

	return result, nil
}

// GetRecent retrieves the most recent records, newest first.
func (s *TransactionStore) GetRecent(_ context.Context, limit int) ([]*domain.TransactionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TransactionRecord, 0, len(s.seq))
	for _, id := range s.seq {
		result = append(result, copyTransaction(s.data[id]))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// copyTransaction copies a record to prevent external mutation.
func copyTransaction(rec *domain.TransactionRecord) *domain.TransactionRecord {
	recCopy := *rec
	if rec.Amount != nil {
		amount := *rec.Amount
		recCopy.Amount = &amount
	}
	return &recCopy
}

// Verify interface compliance at compile time.
var _ storage.TransactionStore = (*TransactionStore)(nil)
