package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/fees"
	"token-launchpad/internal/storage/memory"
)

const adminAddr = "0xAdminWallet"

// fakeProvider counts payouts and returns a fixed reference.
type fakeProvider struct {
	name    fees.Provider
	payouts int
	err     error
}

func (p *fakeProvider) Name() fees.Provider { return p.name }

func (p *fakeProvider) Payout(_ context.Context, _ string, _ decimal.Decimal) (string, error) {
	p.payouts++
	if p.err != nil {
		return "", p.err
	}
	return "payout-ref-1", nil
}

func newTestService(provider *fakeProvider) (*Service, *memory.TransactionStore) {
	txs := memory.NewTransactionStore()
	svc := New(Options{
		Schedule:         fees.NewSchedule(adminAddr),
		Providers:        []PaymentProvider{provider},
		TransactionStore: txs,
	})
	return svc, txs
}

func TestWithdrawByAdmin(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{name: fees.ProviderRevolut}
	svc, txs := newTestService(provider)

	w, err := svc.Withdraw(ctx, WithdrawalRequest{
		Requester: adminAddr,
		Provider:  fees.ProviderRevolut,
		ToAddress: "0xdest",
		Amount:    decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	// Admin pays no fee regardless of provider.
	if !w.Fee.IsZero() {
		t.Errorf("expected zero fee, got %s", w.Fee)
	}
	if !w.NetAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected net 1000, got %s", w.NetAmount)
	}
	if w.TxRef != "payout-ref-1" {
		t.Errorf("missing payout reference, got %q", w.TxRef)
	}

	audits, err := txs.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(audits))
	}
	if audits[0].Type != domain.TxTypeWithdrawal {
		t.Errorf("expected withdrawal audit, got %s", audits[0].Type)
	}
}

func TestWithdrawByNonAdminRejectedBeforeProviderCall(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{name: fees.ProviderRevolut}
	svc, txs := newTestService(provider)

	_, err := svc.Withdraw(ctx, WithdrawalRequest{
		Requester: "0xsomeuser",
		Provider:  fees.ProviderRevolut,
		ToAddress: "0xdest",
		Amount:    decimal.NewFromInt(1000),
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if provider.payouts != 0 {
		t.Errorf("provider was called %d times for an unauthorized request", provider.payouts)
	}
	audits, err := txs.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(audits) != 0 {
		t.Errorf("expected no audit records, got %d", len(audits))
	}
}

func TestWithdrawProviderFailure(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{name: fees.ProviderStripe, err: errors.New("rail down")}
	svc, txs := newTestService(provider)

	_, err := svc.Withdraw(ctx, WithdrawalRequest{
		Requester: adminAddr,
		Provider:  fees.ProviderStripe,
		ToAddress: "0xdest",
		Amount:    decimal.NewFromInt(1000),
	})
	if err == nil {
		t.Fatal("expected error from failed payout")
	}

	// No audit entry for a payout that never happened.
	audits, err := txs.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(audits) != 0 {
		t.Errorf("expected no audit records, got %d", len(audits))
	}
}

func TestWithdrawUnconfiguredProvider(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{name: fees.ProviderRevolut}
	svc, _ := newTestService(provider)

	_, err := svc.Withdraw(ctx, WithdrawalRequest{
		Requester: adminAddr,
		Provider:  fees.ProviderPaypal,
		ToAddress: "0xdest",
		Amount:    decimal.NewFromInt(1000),
	})
	if err == nil {
		t.Fatal("expected error for unconfigured provider")
	}
}
