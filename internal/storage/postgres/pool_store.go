package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Insert adds a new pool. Returns ErrDuplicateKey if the id exists.
func (s *PoolStore) Insert(ctx context.Context, p *domain.LiquidityPool) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO liquidity_pools (
			pool_id, token_id, network, venue, initial_amount,
			lock_period_days, locked_until, pool_address, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		p.ID,
		p.TokenID,
		string(p.Network),
		string(p.Venue),
		p.InitialAmount.String(),
		p.LockPeriodDays,
		p.LockedUntil,
		p.PoolAddress,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// GetByID retrieves a pool by id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, id string) (*domain.LiquidityPool, error) {
	row := s.pool.QueryRow(ctx, selectPool+` WHERE pool_id = $1`, id)
	p, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by id: %w", err)
	}
	return p, nil
}

// GetByToken retrieves all pools for a token, ordered by creation time ASC.
func (s *PoolStore) GetByToken(ctx context.Context, tokenID string) ([]*domain.LiquidityPool, error) {
	rows, err := s.pool.Query(ctx, selectPool+` WHERE token_id = $1 ORDER BY created_at ASC, pool_id ASC`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get pools by token: %w", err)
	}
	defer rows.Close()

	var pools []*domain.LiquidityPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}
	return pools, nil
}

// UpdateStatus transitions a pool's status.
func (s *PoolStore) UpdateStatus(ctx context.Context, id string, status domain.PoolStatus, updatedAt int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE liquidity_pools SET status = $2, updated_at = $3 WHERE pool_id = $1`,
		id, string(status), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update pool status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const selectPool = `
	SELECT pool_id, token_id, network, venue, initial_amount,
	       lock_period_days, locked_until, pool_address, status,
	       created_at, updated_at
	FROM liquidity_pools
`

// scanPool scans a single pool row.
func scanPool(row pgx.Row) (*domain.LiquidityPool, error) {
	var p domain.LiquidityPool
	var networkStr, venueStr, amountStr, statusStr string

	err := row.Scan(
		&p.ID,
		&p.TokenID,
		&networkStr,
		&venueStr,
		&amountStr,
		&p.LockPeriodDays,
		&p.LockedUntil,
		&p.PoolAddress,
		&statusStr,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse initial amount %q: %w", amountStr, err)
	}
	p.InitialAmount = amount
	p.Network = domain.Network(networkStr)
	p.Venue = domain.Venue(venueStr)
	p.Status = domain.PoolStatus(statusStr)
	return &p, nil
}
