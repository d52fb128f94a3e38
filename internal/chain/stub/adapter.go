// Package stub provides a scriptable chain.Adapter for testing.
package stub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
)

// Adapter implements chain.Adapter with scripted outcomes.
type Adapter struct {
	ChainNetwork domain.Network
	Disabled     bool

	// DeployErr, when set, fails every DeployToken call.
	DeployErr error
	// PoolErr, when set, fails every CreateLiquidityPool call.
	PoolErr error
	// DeployDelay blocks DeployToken until the context is done,
	// simulating a stuck network.
	DeployDelay bool

	// Balances keyed by "address" or "address/contract".
	mu       sync.Mutex
	Balances map[string]decimal.Decimal

	deployCalls atomic.Int64
	poolCalls   atomic.Int64
}

// New creates a stub adapter for the given network.
func New(network domain.Network) *Adapter {
	return &Adapter{
		ChainNetwork: network,
		Balances:     make(map[string]decimal.Decimal),
	}
}

var _ chain.Adapter = (*Adapter)(nil)

// Network returns the configured network.
func (a *Adapter) Network() domain.Network { return a.ChainNetwork }

// Enabled reports the scripted enablement.
func (a *Adapter) Enabled() bool { return !a.Disabled }

// DeployToken returns a deterministic fake contract address, or the
// scripted error.
func (a *Adapter) DeployToken(ctx context.Context, req chain.DeployRequest) (*chain.DeployResult, error) {
	a.deployCalls.Add(1)

	if a.Disabled {
		return nil, chain.ErrUnsupported
	}
	if a.DeployDelay {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if a.DeployErr != nil {
		return nil, a.DeployErr
	}

	n := a.deployCalls.Load()
	return &chain.DeployResult{
		ContractAddress: fmt.Sprintf("%s-contract-%s-%d", a.ChainNetwork, req.Symbol, n),
		TxRef:           fmt.Sprintf("%s-tx-%d", a.ChainNetwork, n),
	}, nil
}

// CreateLiquidityPool returns a deterministic fake pool address, or
// the scripted error.
func (a *Adapter) CreateLiquidityPool(_ context.Context, contractAddress string, amount decimal.Decimal, lockPeriodDays int) (*chain.PoolResult, error) {
	a.poolCalls.Add(1)

	if a.Disabled {
		return nil, chain.ErrUnsupported
	}
	if a.PoolErr != nil {
		return nil, a.PoolErr
	}
	if !amount.IsPositive() || lockPeriodDays < 0 {
		return nil, chain.ErrInvalidParameters
	}

	n := a.poolCalls.Load()
	return &chain.PoolResult{
		PoolAddress: fmt.Sprintf("%s-pool-%s-%d", a.ChainNetwork, contractAddress, n),
		TxRef:       fmt.Sprintf("%s-pooltx-%d", a.ChainNetwork, n),
	}, nil
}

// GetBalance returns the scripted balance, zero when absent.
func (a *Adapter) GetBalance(_ context.Context, address, tokenContract string) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := address
	if tokenContract != "" {
		key = address + "/" + tokenContract
	}
	if b, ok := a.Balances[key]; ok {
		return b, nil
	}
	return decimal.Zero, nil
}

// SetBalance scripts a balance for an address (native when
// tokenContract is empty).
func (a *Adapter) SetBalance(address, tokenContract string, balance decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := address
	if tokenContract != "" {
		key = address + "/" + tokenContract
	}
	a.Balances[key] = balance
}

// DeployCalls returns how many times DeployToken was invoked.
func (a *Adapter) DeployCalls() int64 { return a.deployCalls.Load() }

// PoolCalls returns how many times CreateLiquidityPool was invoked.
func (a *Adapter) PoolCalls() int64 { return a.poolCalls.Load() }
