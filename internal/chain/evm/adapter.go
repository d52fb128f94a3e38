package evm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
)

// Receipt polling defaults.
const (
	DefaultReceiptInterval = 2 * time.Second
)

// Config configures an EVM adapter.
type Config struct {
	Network  domain.Network
	Client   *Client
	Deployer string // platform deployer account managed by the node
	Factory  string // token factory contract
	Router   string // liquidity router contract

	// ReceiptInterval is the polling interval while waiting for a
	// transaction receipt. Zero means DefaultReceiptInterval.
	ReceiptInterval time.Duration
}

// Adapter implements chain.Adapter for an EVM-family network.
type Adapter struct {
	network         domain.Network
	client          *Client
	deployer        string
	factory         string
	router          string
	receiptInterval time.Duration
}

// NewAdapter creates an EVM adapter from config.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("evm adapter: client is required")
	}
	if !ValidAddress(cfg.Deployer) {
		return nil, fmt.Errorf("evm adapter: malformed deployer address %q", cfg.Deployer)
	}
	if !ValidAddress(cfg.Factory) || !ValidAddress(cfg.Router) {
		return nil, fmt.Errorf("evm adapter: malformed factory/router address")
	}

	interval := cfg.ReceiptInterval
	if interval == 0 {
		interval = DefaultReceiptInterval
	}

	return &Adapter{
		network:         cfg.Network,
		client:          cfg.Client,
		deployer:        cfg.Deployer,
		factory:         cfg.Factory,
		router:          cfg.Router,
		receiptInterval: interval,
	}, nil
}

var _ chain.Adapter = (*Adapter)(nil)

// Network returns the chain this adapter serves.
func (a *Adapter) Network() domain.Network { return a.network }

// Enabled always reports true; EVM networks are never soft-disabled.
func (a *Adapter) Enabled() bool { return true }

// DeployToken creates the token through the factory contract and waits
// for the deployment transaction to be mined. The token address is
// taken from the first factory log.
func (a *Adapter) DeployToken(ctx context.Context, req chain.DeployRequest) (*chain.DeployResult, error) {
	supply := req.TotalSupply.Shift(int32(req.Decimals)).BigInt()

	data, err := encodeCreateToken(req.Name, req.Symbol, req.Decimals, supply, req.Owner,
		req.Mintable, req.Burnable, req.Pausable)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrInvalidParameters, err)
	}

	txHash, err := a.client.SendTransaction(ctx, a.deployer, a.factory, data)
	if err != nil {
		return nil, classify(err)
	}

	receipt, err := a.waitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != "0x1" {
		return nil, fmt.Errorf("%w: factory call reverted (tx %s)", chain.ErrInvalidParameters, txHash)
	}
	if len(receipt.Logs) == 0 {
		return nil, fmt.Errorf("%w: factory emitted no logs (tx %s)", chain.ErrNetworkUnavailable, txHash)
	}

	return &chain.DeployResult{
		ContractAddress: receipt.Logs[0].Address,
		TxRef:           txHash,
	}, nil
}

// CreateLiquidityPool creates a pool through the router contract.
func (a *Adapter) CreateLiquidityPool(ctx context.Context, contractAddress string, amount decimal.Decimal, lockPeriodDays int) (*chain.PoolResult, error) {
	data, err := encodeCreatePool(contractAddress, amount.Shift(18).BigInt(), lockPeriodDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrInvalidParameters, err)
	}

	txHash, err := a.client.SendTransaction(ctx, a.deployer, a.router, data)
	if err != nil {
		return nil, classify(err)
	}

	receipt, err := a.waitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != "0x1" {
		return nil, fmt.Errorf("%w: router call reverted (tx %s)", chain.ErrInvalidParameters, txHash)
	}
	if len(receipt.Logs) == 0 {
		return nil, fmt.Errorf("%w: router emitted no logs (tx %s)", chain.ErrNetworkUnavailable, txHash)
	}

	return &chain.PoolResult{
		PoolAddress: receipt.Logs[0].Address,
		TxRef:       txHash,
	}, nil
}

// GetBalance returns the native balance when tokenContract is empty,
// otherwise the ERC-20 balance scaled by the token's decimals.
// Malformed addresses yield zero.
func (a *Adapter) GetBalance(ctx context.Context, address, tokenContract string) (decimal.Decimal, error) {
	if !ValidAddress(address) {
		return decimal.Zero, nil
	}

	if tokenContract == "" {
		hex, err := a.client.GetBalance(ctx, address)
		if err != nil {
			return decimal.Zero, classify(err)
		}
		wei, err := decodeQuantity(hex)
		if err != nil {
			return decimal.Zero, nil
		}
		return decimal.NewFromBigInt(wei, -18), nil
	}

	if !ValidAddress(tokenContract) {
		return decimal.Zero, nil
	}

	decHex, err := a.client.CallContract(ctx, tokenContract, encodeDecimals())
	if err != nil {
		return decimal.Zero, classify(err)
	}
	decs, err := decodeQuantity(decHex)
	if err != nil {
		return decimal.Zero, nil
	}

	balHex, err := a.client.CallContract(ctx, tokenContract, encodeBalanceOf(address))
	if err != nil {
		return decimal.Zero, classify(err)
	}
	raw, err := decodeQuantity(balHex)
	if err != nil {
		return decimal.Zero, nil
	}

	return decimal.NewFromBigInt(raw, -int32(decs.Int64())), nil
}

// waitMined polls for the transaction receipt until the context is done.
func (a *Adapter) waitMined(ctx context.Context, txHash string) (*Receipt, error) {
	ticker := time.NewTicker(a.receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := a.client.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, classify(err)
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: tx %s not mined before deadline", chain.ErrNetworkUnavailable, txHash)
		case <-ticker.C:
		}
	}
}

// classify maps transport and node errors onto the adapter taxonomy.
func classify(err error) error {
	var rpcErr *rpcError
	if errors.As(err, &rpcErr) {
		msg := strings.ToLower(rpcErr.Message)
		switch {
		case strings.Contains(msg, "insufficient funds"):
			return fmt.Errorf("%w: %s", chain.ErrInsufficientFunds, rpcErr.Message)
		case rpcErr.Code == -32602 || strings.Contains(msg, "invalid"):
			return fmt.Errorf("%w: %s", chain.ErrInvalidParameters, rpcErr.Message)
		default:
			return fmt.Errorf("%w: %s", chain.ErrNetworkUnavailable, rpcErr.Message)
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", chain.ErrNetworkUnavailable, err)
}
