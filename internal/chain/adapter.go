// Package chain defines the uniform capability interface implemented
// once per supported network, plus the failure taxonomy shared by all
// adapters.
package chain

import (
	"context"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
)

// DeployRequest carries the token parameters an adapter needs to
// create a fungible token on its network.
type DeployRequest struct {
	Name        string
	Symbol      string
	Decimals    int
	TotalSupply decimal.Decimal
	Owner       string // requester wallet, receives the minted supply
	MetadataURI string

	Mintable bool
	Burnable bool
	Pausable bool
}

// DeployResult is the success outcome of a token deployment.
type DeployResult struct {
	ContractAddress string
	TxRef           string
}

// PoolResult is the success outcome of a pool creation.
type PoolResult struct {
	PoolAddress string
	TxRef       string
}

// Adapter is the per-network capability set. Implementations must be
// safe for concurrent use; every blocking operation honors the
// context deadline.
type Adapter interface {
	// Network returns the chain this adapter serves.
	Network() domain.Network

	// Enabled reports whether the network currently accepts operations.
	// A disabled adapter fails every operation with ErrUnsupported.
	Enabled() bool

	// DeployToken creates a fungible token. Callers must not re-invoke
	// it for a (token, network) pair whose deployment record is already
	// terminal; the chain offers no idempotency of its own.
	DeployToken(ctx context.Context, req DeployRequest) (*DeployResult, error)

	// CreateLiquidityPool pairs a deployed token with the network's base
	// asset. amount must be > 0 and lockPeriodDays >= 0.
	CreateLiquidityPool(ctx context.Context, contractAddress string, amount decimal.Decimal, lockPeriodDays int) (*PoolResult, error)

	// GetBalance returns the balance of address, of the native asset
	// when tokenContract is empty. Malformed addresses yield zero, not
	// an error; balance call sites must never crash a page render.
	GetBalance(ctx context.Context, address, tokenContract string) (decimal.Decimal, error)
}
