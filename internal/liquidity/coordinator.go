// Package liquidity provisions pools for deployed tokens and manages
// their lock lifecycle. Provisioning is independent of deployment: a
// pool failure never changes the token status, and a failed attempt
// may be retried without re-deploying the token.
package liquidity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/reconciler"
	"token-launchpad/internal/storage"
)

// Coordinator errors surfaced to callers.
var (
	// ErrNotDeployed rejects provisioning against a network whose
	// deployment record is not deployed.
	ErrNotDeployed = errors.New("token not deployed on network")

	// ErrStillLocked rejects unlocking before the lock has elapsed.
	ErrStillLocked = errors.New("pool lock has not elapsed")
)

// DefaultPoolTimeout bounds a single pool-creation adapter call.
const DefaultPoolTimeout = 90 * time.Second

// Request describes the pool to create.
type Request struct {
	Amount         decimal.Decimal
	LockPeriodDays int
	Venue          domain.Venue // empty selects the network's default venue
}

// Coordinator invokes the matching adapter's pool-creation capability
// and records the resulting pool.
type Coordinator struct {
	registry *chain.Registry
	tokens   storage.TokenStore
	pools    storage.PoolStore
	rec      *reconciler.Reconciler
	timeout  time.Duration
	logger   *log.Logger

	now   func() int64
	newID func() string
}

// Options contains configuration for creating a Coordinator.
type Options struct {
	Registry   *chain.Registry
	TokenStore storage.TokenStore
	PoolStore  storage.PoolStore
	Reconciler *reconciler.Reconciler
	Timeout    time.Duration // Default: 90s
	Logger     *log.Logger

	// Clock and id source, overridable in tests.
	Now   func() int64
	NewID func() string
}

// New creates a new Coordinator.
func New(opts Options) *Coordinator {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultPoolTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Coordinator{
		registry: opts.Registry,
		tokens:   opts.TokenStore,
		pools:    opts.PoolStore,
		rec:      opts.Reconciler,
		timeout:  timeout,
		logger:   logger,
		now:      now,
		newID:    newID,
	}
}

// Provision creates a liquidity pool for a token already deployed on
// the given network. Re-invoking after a pool exists returns the
// existing pool instead of creating a second one.
func (c *Coordinator) Provision(ctx context.Context, tokenID string, network domain.Network, req Request) (*domain.LiquidityPool, error) {
	token, err := c.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("load token %s: %w", tokenID, err)
	}

	record, ok := token.RecordFor(network)
	if !ok || record.State != domain.DeploymentDeployed {
		return nil, fmt.Errorf("token %s on %s: %w", tokenID, network, ErrNotDeployed)
	}

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", chain.ErrInvalidParameters, req.Amount)
	}
	if req.LockPeriodDays < 0 {
		return nil, fmt.Errorf("%w: lock period must not be negative, got %d", chain.ErrInvalidParameters, req.LockPeriodDays)
	}

	venue, err := resolveVenue(network, req.Venue)
	if err != nil {
		return nil, err
	}

	// A pool already recorded for this (token, network) makes the call
	// a replay, not a second provisioning.
	existing, err := c.pools.GetByToken(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("load pools for %s: %w", tokenID, err)
	}
	for _, p := range existing {
		if p.Network == network {
			return p, nil
		}
	}

	adapter, err := c.registry.Get(network)
	if err != nil {
		return nil, err
	}
	if !adapter.Enabled() {
		return nil, fmt.Errorf("network %s: %w", network, chain.ErrUnsupported)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := adapter.CreateLiquidityPool(callCtx, record.ContractAddress, req.Amount, req.LockPeriodDays)
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", chain.ErrNetworkUnavailable, err)
		}
		c.logger.Printf("[liquidity] create pool for token %s on %s failed: %v", tokenID, network, err)
		observability.RecordPoolFailure(string(network))
		return nil, err
	}
	observability.RecordPoolCreated(string(network), string(venue))

	now := c.now()
	status := domain.PoolStatusActive
	if req.LockPeriodDays > 0 {
		status = domain.PoolStatusLocked
	}

	pool := &domain.LiquidityPool{
		ID:             c.newID(),
		TokenID:        tokenID,
		Network:        network,
		Venue:          venue,
		InitialAmount:  req.Amount,
		LockPeriodDays: req.LockPeriodDays,
		LockedUntil:    domain.LockExpiry(now, req.LockPeriodDays),
		PoolAddress:    result.PoolAddress,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := c.pools.Insert(ctx, pool); err != nil {
		return nil, fmt.Errorf("persist pool: %w", err)
	}
	if err := c.rec.RecordPoolCreation(ctx, pool); err != nil {
		return nil, err
	}

	return pool, nil
}

// Unlock transitions a locked pool to unlocked once its lock period
// has elapsed.
func (c *Coordinator) Unlock(ctx context.Context, poolID string) (*domain.LiquidityPool, error) {
	pool, err := c.pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("load pool %s: %w", poolID, err)
	}

	now := c.now()
	if !pool.CanUnlock(now) {
		return nil, fmt.Errorf("pool %s: %w", poolID, ErrStillLocked)
	}

	if err := c.pools.UpdateStatus(ctx, poolID, domain.PoolStatusUnlocked, now); err != nil {
		return nil, fmt.Errorf("unlock pool %s: %w", poolID, err)
	}
	if err := c.rec.RecordPoolUnlock(ctx, pool, now); err != nil {
		return nil, err
	}
	observability.DefaultMetrics.PoolsUnlocked.Inc()

	pool.Status = domain.PoolStatusUnlocked
	pool.UpdatedAt = now
	return pool, nil
}

func resolveVenue(network domain.Network, venue domain.Venue) (domain.Venue, error) {
	if venue == "" {
		v, ok := domain.DefaultVenue(network)
		if !ok {
			return "", fmt.Errorf("%w: no venue for network %s", chain.ErrInvalidParameters, network)
		}
		return v, nil
	}

	n, ok := venue.NetworkFor()
	if !ok {
		return "", fmt.Errorf("%w: unknown venue %q", chain.ErrInvalidParameters, venue)
	}
	if n != network {
		return "", fmt.Errorf("%w: venue %s runs on %s, not %s", chain.ErrInvalidParameters, venue, n, network)
	}
	return venue, nil
}
