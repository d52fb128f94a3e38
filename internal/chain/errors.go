package chain

import (
	"context"
	"errors"
)

// Adapter failure taxonomy. The orchestrator captures these into
// deployment records instead of letting them escape its boundary.
var (
	// ErrNetworkUnavailable marks a transient condition; the affected
	// network may be retried.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrInvalidParameters marks a permanent caller error.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInsufficientFunds marks a permanent failure from the
	// deployer's perspective.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnsupported marks a network whose support has been withdrawn.
	// Distinct from an outage so operators do not retry forever.
	ErrUnsupported = errors.New("network support withdrawn")

	// ErrNotConfigured marks a supported network this process has no
	// endpoint for. Distinct from ErrUnsupported: fixed by
	// configuration, not withdrawn on purpose.
	ErrNotConfigured = errors.New("network endpoint not configured")
)

// Retryable reports whether an adapter error is transient. Timeouts
// count as unavailability: the call suspends until the network
// responds or the deadline fires.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
