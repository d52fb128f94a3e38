package domain

import "github.com/shopspring/decimal"

// TokenStatus is the derived lifecycle state of a Token aggregate.
type TokenStatus string

// Token lifecycle states.
const (
	TokenStatusPending           TokenStatus = "pending"
	TokenStatusDeploying         TokenStatus = "deploying"
	TokenStatusDeployed          TokenStatus = "deployed"
	TokenStatusPartiallyDeployed TokenStatus = "partially_deployed"
	TokenStatusFailed            TokenStatus = "failed"
)

// LiquidityParams describes the optional liquidity request attached to a spec.
type LiquidityParams struct {
	Amount         decimal.Decimal // initial liquidity, must be > 0
	LockPeriodDays int             // 0 means no lock
	Venue          Venue           // empty means the network's default venue
}

// TokenSpec is the immutable input describing the token to create.
type TokenSpec struct {
	Name        string
	Symbol      string
	Decimals    int             // 0-18; 0 means network default
	TotalSupply decimal.Decimal // arbitrary precision, never float
	Description string
	LogoURL     string

	// Social links, all optional.
	Website  string
	Twitter  string
	Telegram string
	Discord  string

	// Contract capability flags.
	Mintable bool
	Burnable bool
	Pausable bool

	Networks  []Network // non-empty set of deployment targets
	Liquidity *LiquidityParams
}

// Token is the persisted aggregate: spec plus per-network deployment
// records and a single derived status. Mutated only by the reconciler
// through an optimistic version check.
type Token struct {
	ID        string // UUID
	Spec      TokenSpec
	Creator   string // requester wallet address
	Records   []DeploymentRecord
	Status    TokenStatus
	Version   int64 // optimistic concurrency token, incremented on every update
	CreatedAt int64 // Unix timestamp in milliseconds
	UpdatedAt int64
}

// RecordFor returns the deployment record for a network, if present.
func (t *Token) RecordFor(network Network) (*DeploymentRecord, bool) {
	for i := range t.Records {
		if t.Records[i].Network == network {
			return &t.Records[i], true
		}
	}
	return nil, false
}

// AllRecordsTerminal reports whether every deployment record has
// reached a terminal state.
func (t *Token) AllRecordsTerminal() bool {
	if len(t.Records) == 0 {
		return false
	}
	for i := range t.Records {
		if !t.Records[i].Terminal() {
			return false
		}
	}
	return true
}
