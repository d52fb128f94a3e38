package gorr

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

// DefaultPollInterval is used when no event feed is configured.
const DefaultPollInterval = 2 * time.Second

// finalCheckTimeout bounds the direct node query made when the event
// feed fails to deliver a confirmation in time.
const finalCheckTimeout = 5 * time.Second

// Adapter implements chain.Adapter for the Gorrillazz ledger.
type Adapter struct {
	client       *Client
	feed         *Feed // optional; poll GetTx when nil
	pollInterval time.Duration
}

// NewAdapter creates a ledger adapter. feed may be nil, in which case
// transaction finality is polled over HTTP.
func NewAdapter(client *Client, feed *Feed) *Adapter {
	return &Adapter{
		client:       client,
		feed:         feed,
		pollInterval: DefaultPollInterval,
	}
}

var _ chain.Adapter = (*Adapter)(nil)

// Network returns the Gorrillazz network.
func (a *Adapter) Network() domain.Network { return domain.NetworkGorrillazz }

// Enabled always reports true for the platform's own ledger.
func (a *Adapter) Enabled() bool { return true }

// DeployToken submits a token creation transaction and waits for the
// ledger to confirm it.
func (a *Adapter) DeployToken(ctx context.Context, req chain.DeployRequest) (*chain.DeployResult, error) {
	if !ValidAddress(req.Owner) {
		return nil, fmt.Errorf("%w: malformed owner address %q", chain.ErrInvalidParameters, req.Owner)
	}

	submit, err := a.client.SubmitToken(ctx, CreateTokenRequest{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Decimals:    req.Decimals,
		TotalSupply: req.TotalSupply.String(),
		Owner:       req.Owner,
		MetadataURI: req.MetadataURI,
	})
	if err != nil {
		return nil, classify(err)
	}

	status, err := a.awaitTx(ctx, submit.TxID)
	if err != nil {
		return nil, err
	}
	if status.Status == "rejected" {
		return nil, fmt.Errorf("%w: %s", chain.ErrInvalidParameters, status.Reason)
	}

	return &chain.DeployResult{
		ContractAddress: status.TokenAddr,
		TxRef:           submit.TxID,
	}, nil
}

// CreateLiquidityPool submits a pool creation transaction and waits
// for confirmation.
func (a *Adapter) CreateLiquidityPool(ctx context.Context, contractAddress string, amount decimal.Decimal, lockPeriodDays int) (*chain.PoolResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be > 0", chain.ErrInvalidParameters)
	}
	if lockPeriodDays < 0 {
		return nil, fmt.Errorf("%w: lock period must be >= 0", chain.ErrInvalidParameters)
	}

	submit, err := a.client.SubmitPool(ctx, CreatePoolRequest{
		TokenAddress:   contractAddress,
		Amount:         amount.String(),
		LockPeriodDays: lockPeriodDays,
	})
	if err != nil {
		return nil, classify(err)
	}

	status, err := a.awaitTx(ctx, submit.TxID)
	if err != nil {
		return nil, err
	}
	if status.Status == "rejected" {
		return nil, fmt.Errorf("%w: %s", chain.ErrInvalidParameters, status.Reason)
	}

	return &chain.PoolResult{
		PoolAddress: status.PoolAddr,
		TxRef:       submit.TxID,
	}, nil
}

// GetBalance returns an account balance. Malformed addresses yield zero.
func (a *Adapter) GetBalance(ctx context.Context, address, tokenContract string) (decimal.Decimal, error) {
	if !ValidAddress(address) {
		return decimal.Zero, nil
	}

	result, err := a.client.GetBalance(ctx, address, tokenContract)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Code == "not_found" {
			return decimal.Zero, nil
		}
		return decimal.Zero, classify(err)
	}

	amount, err := decimal.NewFromString(result.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed balance %q", chain.ErrNetworkUnavailable, result.Amount)
	}
	return amount, nil
}

// awaitTx waits for a submitted transaction to become terminal,
// through the event feed when available, polling otherwise.
func (a *Adapter) awaitTx(ctx context.Context, txID string) (*TxStatus, error) {
	if a.feed != nil {
		event, err := a.feed.WaitFor(ctx, txID)
		if err == nil {
			return &TxStatus{
				TxID:      event.TxID,
				Status:    event.Status,
				Reason:    event.Reason,
				TokenAddr: event.TokenAddr,
				PoolAddr:  event.PoolAddr,
			}, nil
		}

		// The confirmation may have been pushed before the waiter was
		// registered. Ask the node once before reporting a transient
		// failure; a confirmed tx reported as retryable would invite a
		// duplicate submission.
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalCheckTimeout)
		defer cancel()
		if status, checkErr := a.client.GetTx(checkCtx, txID); checkErr == nil && status.Status != "pending" {
			return status, nil
		}
		return nil, fmt.Errorf("%w: awaiting tx %s: %v", chain.ErrNetworkUnavailable, txID, err)
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		status, err := a.client.GetTx(ctx, txID)
		if err != nil {
			return nil, classify(err)
		}
		if status.Status != "pending" {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: tx %s not confirmed before deadline", chain.ErrNetworkUnavailable, txID)
		case <-ticker.C:
		}
	}
}

// classify maps transport and node errors onto the adapter taxonomy.
func classify(err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == "insufficient_funds":
			return fmt.Errorf("%w: %s", chain.ErrInsufficientFunds, apiErr.Message)
		case strings.HasPrefix(apiErr.Code, "invalid_"):
			return fmt.Errorf("%w: %s", chain.ErrInvalidParameters, apiErr.Message)
		default:
			return fmt.Errorf("%w: %s", chain.ErrNetworkUnavailable, apiErr.Message)
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", chain.ErrNetworkUnavailable, err)
}
