package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
// The table is append-only; there is no update path.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Append adds an audit record. Returns ErrDuplicateKey when the id was
// already appended.
func (s *TransactionStore) Append(ctx context.Context, rec *domain.TransactionRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transactions (
			tx_id, type, token_id, network, amount,
			from_address, to_address, status, fee, net_amount,
			tx_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var amount *string
	if rec.Amount != nil {
		a := rec.Amount.String()
		amount = &a
	}

	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		string(rec.Type),
		rec.TokenID,
		string(rec.Network),
		amount,
		rec.FromAddress,
		rec.ToAddress,
		rec.Status,
		rec.Fee.String(),
		rec.NetAmount.String(),
		rec.TxHash,
		rec.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// GetByToken retrieves all records for a token, ordered by creation time ASC.
func (s *TransactionStore) GetByToken(ctx context.Context, tokenID string) ([]*domain.TransactionRecord, error) {
	rows, err := s.pool.Query(ctx, selectTransaction+` WHERE token_id = $1 ORDER BY created_at ASC, tx_id ASC`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get transactions by token: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// GetRecent retrieves the most recent records, newest first.
func (s *TransactionStore) GetRecent(ctx context.Context, limit int) ([]*domain.TransactionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, selectTransaction+` ORDER BY created_at DESC, tx_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const selectTransaction = `
	SELECT tx_id, type, token_id, network, amount,
	       from_address, to_address, status, fee, net_amount,
	       tx_hash, created_at
	FROM transactions
`

// scanTransactions scans transaction rows.
func scanTransactions(rows pgx.Rows) ([]*domain.TransactionRecord, error) {
	var records []*domain.TransactionRecord
	for rows.Next() {
		var rec domain.TransactionRecord
		var typeStr, networkStr, feeStr, netStr string
		var amountStr *string

		err := rows.Scan(
			&rec.ID,
			&typeStr,
			&rec.TokenID,
			&networkStr,
			&amountStr,
			&rec.FromAddress,
			&rec.ToAddress,
			&rec.Status,
			&feeStr,
			&netStr,
			&rec.TxHash,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}

		rec.Type = domain.TransactionType(typeStr)
		rec.Network = domain.Network(networkStr)

		if amountStr != nil {
			amount, err := decimal.NewFromString(*amountStr)
			if err != nil {
				return nil, fmt.Errorf("parse amount %q: %w", *amountStr, err)
			}
			rec.Amount = &amount
		}
		fee, err := decimal.NewFromString(feeStr)
		if err != nil {
			return nil, fmt.Errorf("parse fee %q: %w", feeStr, err)
		}
		rec.Fee = fee
		net, err := decimal.NewFromString(netStr)
		if err != nil {
			return nil, fmt.Errorf("parse net amount %q: %w", netStr, err)
		}
		rec.NetAmount = net

		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return records, nil
}
