package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
)

func TestRegistry_Get(t *testing.T) {
	disabled := NewDisabledAdapter(domain.NetworkSolana)
	registry := NewRegistry(disabled)

	got, err := registry.Get(domain.NetworkSolana)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Network() != domain.NetworkSolana {
		t.Errorf("network: got %s", got.Network())
	}

	_, err = registry.Get(domain.NetworkEthereum)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for unregistered network, got %v", err)
	}
}

func TestDisabledAdapter(t *testing.T) {
	adapter := NewDisabledAdapter(domain.NetworkSolana)
	ctx := context.Background()

	if adapter.Enabled() {
		t.Error("disabled adapter reports enabled")
	}

	_, err := adapter.DeployToken(ctx, DeployRequest{Name: "Test", Symbol: "TST"})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("DeployToken: expected ErrUnsupported, got %v", err)
	}
	if Retryable(err) {
		t.Error("ErrUnsupported must not be retryable")
	}

	_, err = adapter.CreateLiquidityPool(ctx, "addr", decimal.NewFromInt(10), 0)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("CreateLiquidityPool: expected ErrUnsupported, got %v", err)
	}

	// Balance reads never fail, even for withdrawn networks.
	balance, err := adapter.GetBalance(ctx, "any", "")
	if err != nil || !balance.IsZero() {
		t.Errorf("GetBalance: got %s, %v; want 0, nil", balance, err)
	}
}

func TestUnconfiguredAdapter(t *testing.T) {
	adapter := NewUnconfiguredAdapter(domain.NetworkEthereum)
	ctx := context.Background()

	// Unconfigured is not withdrawn: the adapter stays enabled and its
	// failures must not read as ErrUnsupported.
	if !adapter.Enabled() {
		t.Error("unconfigured adapter reports disabled")
	}

	_, err := adapter.DeployToken(ctx, DeployRequest{Name: "Test", Symbol: "TST"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("DeployToken: expected ErrNotConfigured, got %v", err)
	}
	if errors.Is(err, ErrUnsupported) {
		t.Error("ErrNotConfigured must be distinct from ErrUnsupported")
	}
	if Retryable(err) {
		t.Error("ErrNotConfigured must not be retryable")
	}

	_, err = adapter.CreateLiquidityPool(ctx, "addr", decimal.NewFromInt(10), 0)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("CreateLiquidityPool: expected ErrNotConfigured, got %v", err)
	}

	if _, err := adapter.GetBalance(ctx, "any", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("GetBalance: expected ErrNotConfigured, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(ErrNetworkUnavailable) {
		t.Error("ErrNetworkUnavailable should be retryable")
	}
	if !Retryable(context.DeadlineExceeded) {
		t.Error("deadline exceeded should be retryable")
	}
	if Retryable(ErrInvalidParameters) || Retryable(ErrInsufficientFunds) {
		t.Error("permanent errors must not be retryable")
	}
}
