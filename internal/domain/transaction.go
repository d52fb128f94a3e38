package domain

import "github.com/shopspring/decimal"

// TransactionType classifies audit trail entries.
type TransactionType string

// Audit entry types, one per state-changing operation.
const (
	TxTypeDeploy          TransactionType = "deploy"
	TxTypePoolCreate      TransactionType = "pool_create"
	TxTypeLiquidityAdd    TransactionType = "liquidity_add"
	TxTypeLiquidityRemove TransactionType = "liquidity_remove"
	TxTypeWithdrawal      TransactionType = "withdrawal"
)

// TransactionRecord is an append-only audit entry. Never mutated
// after creation.
type TransactionRecord struct {
	ID          string // UUID
	Type        TransactionType
	TokenID     string
	Network     Network
	Amount      *decimal.Decimal // nil for operations without an amount
	FromAddress string
	ToAddress   string
	Status      string          // resulting status of the operation
	Fee         decimal.Decimal // 0 for the admin wallet and fee-exempt tokens
	NetAmount   decimal.Decimal
	TxHash      string // external transaction hash, if any
	CreatedAt   int64  // Unix timestamp in milliseconds
}
