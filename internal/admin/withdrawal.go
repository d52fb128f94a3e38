// Package admin implements privileged platform operations. The
// authorization check runs before any payment provider is contacted.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/fees"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// ErrUnauthorized rejects privileged operations requested by a wallet
// other than the configured admin.
var ErrUnauthorized = errors.New("requester is not the admin wallet")

// PaymentProvider executes a payout on an external payment rail.
type PaymentProvider interface {
	// Name returns the provider this implementation fronts.
	Name() fees.Provider

	// Payout transfers amount to the destination address and returns
	// an external transaction reference.
	Payout(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error)
}

// WithdrawalRequest describes an admin withdrawal.
type WithdrawalRequest struct {
	Requester string
	Provider  fees.Provider
	ToAddress string
	Amount    decimal.Decimal
}

// Withdrawal is the recorded outcome of a completed withdrawal.
type Withdrawal struct {
	ID        string
	Provider  fees.Provider
	Amount    decimal.Decimal
	Fee       decimal.Decimal
	NetAmount decimal.Decimal
	TxRef     string
}

// Service executes admin withdrawals through payment providers and
// records them in the audit trail.
type Service struct {
	schedule  *fees.Schedule
	providers map[fees.Provider]PaymentProvider
	txs       storage.TransactionStore
	logger    *log.Logger

	now   func() int64
	newID func() string
}

// Options contains configuration for creating a Service.
type Options struct {
	Schedule         *fees.Schedule
	Providers        []PaymentProvider
	TransactionStore storage.TransactionStore
	Logger           *log.Logger

	// Clock and id source, overridable in tests.
	Now   func() int64
	NewID func() string
}

// New creates a new admin Service.
func New(opts Options) *Service {
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

	providers := make(map[fees.Provider]PaymentProvider, len(opts.Providers))
	for _, p := range opts.Providers {
		providers[p.Name()] = p
	}

	return &Service{
		schedule:  opts.Schedule,
		providers: providers,
		txs:       opts.TransactionStore,
		logger:    logger,
		now:       now,
		newID:     newID,
	}
}

// Withdraw pays platform funds out to an address. Only the admin
// wallet may withdraw; the check runs before the provider is invoked.
func (s *Service) Withdraw(ctx context.Context, req WithdrawalRequest) (*Withdrawal, error) {
	if !s.schedule.IsAdmin(req.Requester) {
		observability.RecordUnauthorizedWithdrawal()
		return nil, fmt.Errorf("withdraw by %s: %w", req.Requester, ErrUnauthorized)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %s", req.Amount)
	}
	if req.ToAddress == "" {
		return nil, errors.New("withdrawal destination is required")
	}

	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("payment provider %q not configured", req.Provider)
	}

	fee, net, err := s.schedule.WithdrawalFee(req.Provider, req.Requester, req.Amount)
	if err != nil {
		return nil, err
	}

	txRef, err := provider.Payout(ctx, req.ToAddress, net)
	if err != nil {
		return nil, fmt.Errorf("payout via %s: %w", req.Provider, err)
	}

	w := &Withdrawal{
		ID:        s.newID(),
		Provider:  req.Provider,
		Amount:    req.Amount,
		Fee:       fee,
		NetAmount: net,
		TxRef:     txRef,
	}

	amount := req.Amount
	audit := &domain.TransactionRecord{
		ID:        w.ID,
		Type:      domain.TxTypeWithdrawal,
		Amount:    &amount,
		ToAddress: req.ToAddress,
		Status:    "completed",
		Fee:       fee,
		NetAmount: net,
		TxHash:    txRef,
		CreatedAt: s.now(),
	}
	if err := s.txs.Append(ctx, audit); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("append withdrawal audit: %w", err)
	}

	observability.RecordWithdrawal(string(req.Provider))
	s.logger.Printf("[admin] withdrawal %s via %s: %s (fee %s)", w.ID, req.Provider, net, fee)
	return w, nil
}
