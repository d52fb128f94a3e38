// Package fees holds the authoritative payment provider fee table and
// the single fee-exemption rule: the configured admin wallet pays no
// fees. The admin address is injected at construction and immutable
// afterwards.
package fees

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider identifies a payment rail used for purchases and
// withdrawals.
type Provider string

// Supported payment providers.
const (
	ProviderRevolut Provider = "revolut"
	ProviderStripe  Provider = "stripe"
	ProviderPaypal  Provider = "paypal"
	ProviderCard    Provider = "card"
)

// Rate is the fee percentages a provider charges.
type Rate struct {
	PurchasePct   decimal.Decimal
	WithdrawalPct decimal.Decimal
}

// rates is the single authoritative fee table.
var rates = map[Provider]Rate{
	ProviderRevolut: {PurchasePct: decimal.Zero, WithdrawalPct: decimal.Zero},
	ProviderStripe:  {PurchasePct: decimal.NewFromFloat(2.9), WithdrawalPct: decimal.NewFromFloat(1.5)},
	ProviderPaypal:  {PurchasePct: decimal.NewFromFloat(2.5), WithdrawalPct: decimal.NewFromFloat(1.5)},
	ProviderCard:    {PurchasePct: decimal.NewFromFloat(2.9), WithdrawalPct: decimal.NewFromFloat(2.0)},
}

// ParseProvider converts a string into a Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(s))
	if _, ok := rates[p]; !ok {
		return "", fmt.Errorf("unknown payment provider %q", s)
	}
	return p, nil
}

// Schedule answers fee questions for a configured admin wallet.
type Schedule struct {
	admin string
}

// NewSchedule creates a fee schedule with the given admin wallet
// address.
func NewSchedule(adminAddress string) *Schedule {
	return &Schedule{admin: adminAddress}
}

// IsAdmin reports whether the requester is the configured admin
// wallet. Address comparison is case-insensitive; EVM addresses come
// in mixed checksum casings.
func (s *Schedule) IsAdmin(requester string) bool {
	return s.admin != "" && strings.EqualFold(requester, s.admin)
}

// WithdrawalFee computes the fee and net amount for a withdrawal.
// The admin wallet is fee-exempt.
func (s *Schedule) WithdrawalFee(provider Provider, requester string, amount decimal.Decimal) (fee, net decimal.Decimal, err error) {
	return s.compute(provider, requester, amount, false)
}

// PurchaseFee computes the fee and net amount for a purchase.
// The admin wallet is fee-exempt.
func (s *Schedule) PurchaseFee(provider Provider, requester string, amount decimal.Decimal) (fee, net decimal.Decimal, err error) {
	return s.compute(provider, requester, amount, true)
}

func (s *Schedule) compute(provider Provider, requester string, amount decimal.Decimal, purchase bool) (decimal.Decimal, decimal.Decimal, error) {
	rate, ok := rates[provider]
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("unknown payment provider %q", provider)
	}
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("amount must be positive, got %s", amount)
	}

	if s.IsAdmin(requester) {
		return decimal.Zero, amount, nil
	}

	pct := rate.WithdrawalPct
	if purchase {
		pct = rate.PurchasePct
	}
	fee := amount.Mul(pct).Div(decimal.NewFromInt(100))
	return fee, amount.Sub(fee), nil
}
