package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL. The token
// row carries the spec and derived status; deployment records live in
// their own table keyed by (token_id, network).
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token with Version 1. Returns ErrDuplicateKey if
// the id exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert token: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tokens (
			token_id, name, symbol, decimals, total_supply,
			description, logo_url, website, twitter, telegram, discord,
			mintable, burnable, pausable, networks,
			liquidity_amount, liquidity_lock_days, liquidity_venue,
			creator, status, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, 1, $21, $22
		)
	`

	networks := make([]string, len(t.Spec.Networks))
	for i, n := range t.Spec.Networks {
		networks[i] = string(n)
	}

	var liqAmount, liqVenue *string
	var liqLockDays *int
	if t.Spec.Liquidity != nil {
		amount := t.Spec.Liquidity.Amount.String()
		venue := string(t.Spec.Liquidity.Venue)
		days := t.Spec.Liquidity.LockPeriodDays
		liqAmount, liqVenue, liqLockDays = &amount, &venue, &days
	}

	_, err = tx.Exec(ctx, query,
		t.ID,
		t.Spec.Name,
		t.Spec.Symbol,
		t.Spec.Decimals,
		t.Spec.TotalSupply.String(),
		t.Spec.Description,
		t.Spec.LogoURL,
		t.Spec.Website,
		t.Spec.Twitter,
		t.Spec.Telegram,
		t.Spec.Discord,
		t.Spec.Mintable,
		t.Spec.Burnable,
		t.Spec.Pausable,
		networks,
		liqAmount,
		liqLockDays,
		liqVenue,
		t.Creator,
		string(t.Status),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}

	if err := replaceRecords(ctx, tx, t.ID, t.Records); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert token: %w", err)
	}
	return nil
}

// GetByID retrieves a token by id. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	row := s.pool.QueryRow(ctx, selectToken+` WHERE token_id = $1`, id)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}

	records, err := s.loadRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Records = records
	return t, nil
}

// GetByCreator retrieves all tokens created by a wallet address,
// ordered by creation time ASC.
func (s *TokenStore) GetByCreator(ctx context.Context, creator string) ([]*domain.Token, error) {
	rows, err := s.pool.Query(ctx, selectToken+` WHERE creator = $1 ORDER BY created_at ASC, token_id ASC`, creator)
	if err != nil {
		return nil, fmt.Errorf("get tokens by creator: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	for _, t := range tokens {
		records, err := s.loadRecords(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Records = records
	}
	return tokens, nil
}

// Update applies a patch when the stored version equals expectedVersion,
// incrementing the version. Returns ErrVersionConflict when stale.
func (s *TokenStore) Update(ctx context.Context, id string, expectedVersion int64, patch storage.TokenPatch) (*domain.Token, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update token: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE tokens
		SET status = COALESCE($3, status),
		    version = version + 1,
		    updated_at = (EXTRACT(EPOCH FROM now()) * 1000)::BIGINT
		WHERE token_id = $1 AND version = $2
	`

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	tag, err := tx.Exec(ctx, query, id, expectedVersion, status)
	if err != nil {
		return nil, fmt.Errorf("update token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing token from a stale version.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tokens WHERE token_id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check token existence: %w", err)
		}
		if !exists {
			return nil, storage.ErrNotFound
		}
		return nil, storage.ErrVersionConflict
	}

	if patch.Records != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM deployment_records WHERE token_id = $1`, id); err != nil {
			return nil, fmt.Errorf("clear deployment records: %w", err)
		}
		if err := replaceRecords(ctx, tx, id, patch.Records); err != nil {
			return nil, err
		}
	}

	row := tx.QueryRow(ctx, selectToken+` WHERE token_id = $1`, id)
	t, err := scanToken(row)
	if err != nil {
		return nil, fmt.Errorf("reload updated token: %w", err)
	}
	records, err := loadRecordsTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	t.Records = records

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update token: %w", err)
	}
	return t, nil
}

const selectToken = `
	SELECT token_id, name, symbol, decimals, total_supply,
	       description, logo_url, website, twitter, telegram, discord,
	       mintable, burnable, pausable, networks,
	       liquidity_amount, liquidity_lock_days, liquidity_venue,
	       creator, status, version, created_at, updated_at
	FROM tokens
`

const selectRecords = `
	SELECT network, state, contract_address, tx_ref, failure_reason,
	       retryable, started_at, completed_at
	FROM deployment_records
	WHERE token_id = $1
	ORDER BY network ASC
`

// replaceRecords inserts deployment records for a token.
func replaceRecords(ctx context.Context, tx pgx.Tx, tokenID string, records []domain.DeploymentRecord) error {
	query := `
		INSERT INTO deployment_records (
			token_id, network, state, contract_address, tx_ref,
			failure_reason, retryable, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, r := range records {
		_, err := tx.Exec(ctx, query,
			tokenID,
			string(r.Network),
			string(r.State),
			r.ContractAddress,
			r.TxRef,
			r.FailureReason,
			r.Retryable,
			r.StartedAt,
			r.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("insert deployment record: %w", err)
		}
	}
	return nil
}

func (s *TokenStore) loadRecords(ctx context.Context, tokenID string) ([]domain.DeploymentRecord, error) {
	rows, err := s.pool.Query(ctx, selectRecords, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get deployment records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func loadRecordsTx(ctx context.Context, tx pgx.Tx, tokenID string) ([]domain.DeploymentRecord, error) {
	rows, err := tx.Query(ctx, selectRecords, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get deployment records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// scanToken scans a single token row without its deployment records.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	var supplyStr, statusStr string
	var networks []string
	var liqAmount, liqVenue *string
	var liqLockDays *int

	err := row.Scan(
		&t.ID,
		&t.Spec.Name,
		&t.Spec.Symbol,
		&t.Spec.Decimals,
		&supplyStr,
		&t.Spec.Description,
		&t.Spec.LogoURL,
		&t.Spec.Website,
		&t.Spec.Twitter,
		&t.Spec.Telegram,
		&t.Spec.Discord,
		&t.Spec.Mintable,
		&t.Spec.Burnable,
		&t.Spec.Pausable,
		&networks,
		&liqAmount,
		&liqLockDays,
		&liqVenue,
		&t.Creator,
		&statusStr,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	supply, err := decimal.NewFromString(supplyStr)
	if err != nil {
		return nil, fmt.Errorf("parse total supply %q: %w", supplyStr, err)
	}
	t.Spec.TotalSupply = supply
	t.Status = domain.TokenStatus(statusStr)

	t.Spec.Networks = make([]domain.Network, len(networks))
	for i, n := range networks {
		t.Spec.Networks[i] = domain.Network(n)
	}

	if liqAmount != nil {
		amount, err := decimal.NewFromString(*liqAmount)
		if err != nil {
			return nil, fmt.Errorf("parse liquidity amount %q: %w", *liqAmount, err)
		}
		liq := &domain.LiquidityParams{Amount: amount}
		if liqLockDays != nil {
			liq.LockPeriodDays = *liqLockDays
		}
		if liqVenue != nil {
			liq.Venue = domain.Venue(*liqVenue)
		}
		t.Spec.Liquidity = liq
	}

	return &t, nil
}

// scanRecords scans deployment record rows.
func scanRecords(rows pgx.Rows) ([]domain.DeploymentRecord, error) {
	var records []domain.DeploymentRecord
	for rows.Next() {
		var r domain.DeploymentRecord
		var networkStr, stateStr string

		err := rows.Scan(
			&networkStr,
			&stateStr,
			&r.ContractAddress,
			&r.TxRef,
			&r.FailureReason,
			&r.Retryable,
			&r.StartedAt,
			&r.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan deployment record row: %w", err)
		}

		r.Network = domain.Network(networkStr)
		r.State = domain.DeploymentState(stateStr)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployment record rows: %w", err)
	}
	return records, nil
}
