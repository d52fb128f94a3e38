package orchestrator

import (
	"errors"
	"fmt"

	"token-launchpad/internal/domain"
)

// ErrInvalidSpec rejects a deployment request before any adapter is
// invoked. Not retryable as-is; the caller must correct the spec.
var ErrInvalidSpec = errors.New("invalid token spec")

const maxDecimals = 18

// ValidateSpec checks a token spec before any work is performed.
func ValidateSpec(spec *domain.TokenSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if spec.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidSpec)
	}
	if !spec.TotalSupply.IsPositive() {
		return fmt.Errorf("%w: total supply must be positive, got %s", ErrInvalidSpec, spec.TotalSupply)
	}
	if spec.Decimals < 0 || spec.Decimals > maxDecimals {
		return fmt.Errorf("%w: decimals must be between 0 and %d, got %d", ErrInvalidSpec, maxDecimals, spec.Decimals)
	}
	if len(spec.Networks) == 0 {
		return fmt.Errorf("%w: at least one target network is required", ErrInvalidSpec)
	}

	seen := make(map[domain.Network]struct{}, len(spec.Networks))
	for _, n := range spec.Networks {
		if !n.Known() {
			return fmt.Errorf("%w: unknown network %q", ErrInvalidSpec, n)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: duplicate network %q", ErrInvalidSpec, n)
		}
		seen[n] = struct{}{}
	}

	if liq := spec.Liquidity; liq != nil {
		if !liq.Amount.IsPositive() {
			return fmt.Errorf("%w: liquidity amount must be positive, got %s", ErrInvalidSpec, liq.Amount)
		}
		if liq.LockPeriodDays < 0 {
			return fmt.Errorf("%w: lock period must not be negative, got %d", ErrInvalidSpec, liq.LockPeriodDays)
		}
		if liq.Venue != "" {
			network, ok := liq.Venue.NetworkFor()
			if !ok {
				return fmt.Errorf("%w: unknown venue %q", ErrInvalidSpec, liq.Venue)
			}
			if _, targeted := seen[network]; !targeted {
				return fmt.Errorf("%w: venue %q runs on %s, which is not a target network", ErrInvalidSpec, liq.Venue, network)
			}
		}
	}

	return nil
}
