package chain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
)

// DisabledAdapter stands in for a network whose support has been
// withdrawn. Every operation fails fast with ErrUnsupported so the
// orchestrator reports a clear, permanent error instead of an opaque
// exception or a silent success.
type DisabledAdapter struct {
	network domain.Network
}

// NewDisabledAdapter creates a disabled adapter for the given network.
func NewDisabledAdapter(network domain.Network) *DisabledAdapter {
	return &DisabledAdapter{network: network}
}

var _ Adapter = (*DisabledAdapter)(nil)

// Network returns the withdrawn network.
func (a *DisabledAdapter) Network() domain.Network { return a.network }

// Enabled always reports false.
func (a *DisabledAdapter) Enabled() bool { return false }

// DeployToken always fails with ErrUnsupported.
func (a *DisabledAdapter) DeployToken(_ context.Context, _ DeployRequest) (*DeployResult, error) {
	return nil, a.err()
}

// CreateLiquidityPool always fails with ErrUnsupported.
func (a *DisabledAdapter) CreateLiquidityPool(_ context.Context, _ string, _ decimal.Decimal, _ int) (*PoolResult, error) {
	return nil, a.err()
}

// GetBalance returns zero; balance reads never crash a page render.
func (a *DisabledAdapter) GetBalance(_ context.Context, _, _ string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (a *DisabledAdapter) err() error {
	return fmt.Errorf("network %s: %w", a.network, ErrUnsupported)
}

// UnconfiguredAdapter stands in for a supported network the process was
// started without an endpoint for. Unlike DisabledAdapter it reports
// enabled, so callers see ErrNotConfigured instead of the permanent
// "support withdrawn" signal.
type UnconfiguredAdapter struct {
	network domain.Network
}

// NewUnconfiguredAdapter creates an adapter for a network with no
// configured endpoint.
func NewUnconfiguredAdapter(network domain.Network) *UnconfiguredAdapter {
	return &UnconfiguredAdapter{network: network}
}

var _ Adapter = (*UnconfiguredAdapter)(nil)

// Network returns the unconfigured network.
func (a *UnconfiguredAdapter) Network() domain.Network { return a.network }

// Enabled reports true; the network is supported, just not wired here.
func (a *UnconfiguredAdapter) Enabled() bool { return true }

// DeployToken always fails with ErrNotConfigured.
func (a *UnconfiguredAdapter) DeployToken(_ context.Context, _ DeployRequest) (*DeployResult, error) {
	return nil, a.err()
}

// CreateLiquidityPool always fails with ErrNotConfigured.
func (a *UnconfiguredAdapter) CreateLiquidityPool(_ context.Context, _ string, _ decimal.Decimal, _ int) (*PoolResult, error) {
	return nil, a.err()
}

// GetBalance fails with ErrNotConfigured; there is no node to ask.
func (a *UnconfiguredAdapter) GetBalance(_ context.Context, _, _ string) (decimal.Decimal, error) {
	return decimal.Zero, a.err()
}

func (a *UnconfiguredAdapter) err() error {
	return fmt.Errorf("network %s: %w", a.network, ErrNotConfigured)
}
