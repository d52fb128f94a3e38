package storage

import (
	"context"

	"token-launchpad/internal/domain"
)

// TokenPatch is the partial update applied to a token aggregate.
// Nil fields are left unchanged.
type TokenPatch struct {
	Status  *domain.TokenStatus
	Records []domain.DeploymentRecord // full replacement when non-nil
}

// TokenStore provides access to token aggregate storage.
type TokenStore interface {
	// Insert adds a new token with Version 1. Returns ErrDuplicateKey
	// if the id exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByID retrieves a token by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Token, error)

	// GetByCreator retrieves all tokens created by a wallet address,
	// ordered by creation time ASC.
	GetByCreator(ctx context.Context, creator string) ([]*domain.Token, error)

	// Update applies a patch when the stored version equals
	// expectedVersion, incrementing the version. Returns
	// ErrVersionConflict when stale, ErrNotFound when absent.
	Update(ctx context.Context, id string, expectedVersion int64, patch TokenPatch) (*domain.Token, error)
}

// PoolStore provides access to liquidity pool storage.
type PoolStore interface {
	// Insert adds a new pool. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, p *domain.LiquidityPool) error

	// GetByID retrieves a pool by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.LiquidityPool, error)

	// GetByToken retrieves all pools for a token, ordered by creation
	// time ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*domain.LiquidityPool, error)

	// UpdateStatus transitions a pool's status.
	UpdateStatus(ctx context.Context, id string, status domain.PoolStatus, updatedAt int64) error
}

// TransactionStore provides access to the append-only audit trail.
// Records are never mutated after creation.
type TransactionStore interface {
	// Append adds an audit record. Returns ErrDuplicateKey when a
	// record with the same id was already appended, which callers use
	// for exactly-once emission under retries.
	Append(ctx context.Context, rec *domain.TransactionRecord) error

	// GetByToken retrieves all records for a token, ordered by creation
	// time ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*domain.TransactionRecord, error)

	// GetRecent retrieves the most recent records, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.TransactionRecord, error)
}
