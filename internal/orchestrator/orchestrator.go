// Package orchestrator coordinates token deployment across the
// requested network set: fan out to the per-chain adapters, collect
// one terminal record per network, and hand the results to the
// reconciler for the authoritative status.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/reconciler"
	"token-launchpad/internal/storage"
)

// DefaultNetworkTimeout bounds a single adapter deploy call. A stuck
// network must not block siblings or the overall outcome.
const DefaultNetworkTimeout = 90 * time.Second

// Request is a deployment submission. TokenID is optional: retries for
// a partially deployed token reuse the original id so networks already
// terminal are never re-deployed.
type Request struct {
	TokenID   string
	Spec      domain.TokenSpec
	Requester string
}

// Outcome aggregates the per-network results of one deploy call.
type Outcome struct {
	TokenID string
	Status  domain.TokenStatus
	Records []domain.DeploymentRecord
}

// Orchestrator sequences adapter calls across the requested networks.
// It never mutates the token itself; all persistence goes through the
// reconciler.
type Orchestrator struct {
	registry       *chain.Registry
	tokens         storage.TokenStore
	reconciler     *reconciler.Reconciler
	networkTimeout time.Duration
	logger         *log.Logger
	verbose        bool

	now   func() int64
	newID func() string
}

// Options contains configuration for creating an Orchestrator.
type Options struct {
	Registry       *chain.Registry
	TokenStore     storage.TokenStore
	Reconciler     *reconciler.Reconciler
	NetworkTimeout time.Duration // Default: 90s
	Logger         *log.Logger
	Verbose        bool

	// Clock and id source, overridable in tests.
	Now   func() int64
	NewID func() string
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	timeout := opts.NetworkTimeout
	if timeout == 0 {
		timeout = DefaultNetworkTimeout
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

	return &Orchestrator{
		registry:       opts.Registry,
		tokens:         opts.TokenStore,
		reconciler:     opts.Reconciler,
		networkTimeout: timeout,
		logger:         logger,
		verbose:        opts.Verbose,
		now:            now,
		newID:          newID,
	}
}

// Deploy validates the spec, fans deployment out to every target
// network concurrently, and returns the aggregated outcome. Partial
// failure is a first-class result, never an error: adapter failures
// are captured into the records. No rollback is attempted for
// networks that succeeded; on-chain actions are not reversible.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (*Outcome, error) {
	if err := ValidateSpec(&req.Spec); err != nil {
		observability.RecordInvalidSpec()
		return nil, err
	}
	observability.RecordDeploymentStarted()

	token, err := o.loadOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}

	// Idempotency: a token whose every record is terminal is done.
	// Return the stored outcome without touching any adapter.
	if token.AllRecordsTerminal() {
		if o.verbose {
			o.logger.Printf("[orchestrator] token %s already terminal (%s), skipping deployment", token.ID, token.Status)
		}
		return outcomeOf(token), nil
	}

	pending := pendingNetworks(token)

	// Mark the networks we are about to run as deploying.
	started := o.now()
	deploying := make([]domain.DeploymentRecord, len(pending))
	for i, n := range pending {
		deploying[i] = domain.DeploymentRecord{
			Network:   n,
			State:     domain.DeploymentDeploying,
			StartedAt: started,
		}
	}
	if _, err := o.reconciler.Apply(ctx, token.ID, deploying); err != nil {
		return nil, fmt.Errorf("mark deploying: %w", err)
	}

	results := o.fanOut(ctx, token.ID, &req.Spec, req.Requester, pending, started)

	updated, err := o.reconciler.Apply(ctx, token.ID, results)
	if err != nil {
		return nil, fmt.Errorf("reconcile outcome: %w", err)
	}

	return outcomeOf(updated), nil
}

// Status returns the persisted token aggregate.
func (o *Orchestrator) Status(ctx context.Context, tokenID string) (*domain.Token, error) {
	return o.tokens.GetByID(ctx, tokenID)
}

// loadOrCreate resolves the token aggregate for a request, creating it
// with one pending record per target network on first submission.
func (o *Orchestrator) loadOrCreate(ctx context.Context, req Request) (*domain.Token, error) {
	if req.TokenID != "" {
		token, err := o.tokens.GetByID(ctx, req.TokenID)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load token %s: %w", req.TokenID, err)
		}
	}

	id := req.TokenID
	if id == "" {
		id = o.newID()
	}

	now := o.now()
	records := make([]domain.DeploymentRecord, len(req.Spec.Networks))
	for i, n := range req.Spec.Networks {
		records[i] = domain.DeploymentRecord{Network: n, State: domain.DeploymentPending}
	}

	token := &domain.Token{
		ID:        id,
		Spec:      req.Spec,
		Creator:   req.Requester,
		Records:   records,
		Status:    domain.TokenStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.tokens.Insert(ctx, token); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Lost a race with a concurrent submission of the same id.
			return o.tokens.GetByID(ctx, id)
		}
		return nil, fmt.Errorf("create token: %w", err)
	}
	token.Version = 1
	return token, nil
}

// fanOut deploys to every network concurrently and returns one
// terminal record per network. Cancellation is best-effort: networks
// not yet started are skipped, in-flight submissions run to their
// timeout.
func (o *Orchestrator) fanOut(ctx context.Context, tokenID string, spec *domain.TokenSpec, requester string, networks []domain.Network, started int64) []domain.DeploymentRecord {
	results := make([]domain.DeploymentRecord, len(networks))

	var g errgroup.Group
	for i, network := range networks {
		if ctx.Err() != nil {
			// Not yet started; report as unavailable so the caller can
			// resubmit just this network later.
			results[i] = o.failedRecord(network, started, context.Cause(ctx))
			continue
		}

		i, network := i, network
		g.Go(func() error {
			results[i] = o.deployOne(ctx, tokenID, spec, requester, network, started)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in the records

	return results
}

// deployOne runs a single network deployment under its own timeout and
// converts the result into a terminal record.
func (o *Orchestrator) deployOne(ctx context.Context, tokenID string, spec *domain.TokenSpec, requester string, network domain.Network, started int64) domain.DeploymentRecord {
	adapter, err := o.registry.Get(network)
	if err != nil {
		return o.failedRecord(network, started, err)
	}
	if !adapter.Enabled() {
		return o.failedRecord(network, started, chain.ErrUnsupported)
	}

	decimals := spec.Decimals
	if decimals == 0 {
		decimals = network.DefaultDecimals()
	}

	callCtx, cancel := context.WithTimeout(ctx, o.networkTimeout)
	defer cancel()

	result, err := adapter.DeployToken(callCtx, chain.DeployRequest{
		Name:        spec.Name,
		Symbol:      spec.Symbol,
		Decimals:    decimals,
		TotalSupply: spec.TotalSupply,
		Owner:       requester,
		MetadataURI: spec.LogoURL,
		Mintable:    spec.Mintable,
		Burnable:    spec.Burnable,
		Pausable:    spec.Pausable,
	})
	if err != nil {
		// A timeout is indistinguishable from an outage to the caller.
		if callCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", chain.ErrNetworkUnavailable, err)
		}
		o.logger.Printf("[orchestrator] deploy token %s on %s failed: %v", tokenID, network, err)
		return o.failedRecord(network, started, err)
	}

	if o.verbose {
		o.logger.Printf("[orchestrator] deployed token %s on %s at %s", tokenID, network, result.ContractAddress)
	}

	completed := o.now()
	observability.RecordDeploymentRecord(string(network), string(domain.DeploymentDeployed), float64(completed-started)/1000)

	return domain.DeploymentRecord{
		Network:         network,
		State:           domain.DeploymentDeployed,
		ContractAddress: result.ContractAddress,
		TxRef:           result.TxRef,
		StartedAt:       started,
		CompletedAt:     completed,
	}
}

func (o *Orchestrator) failedRecord(network domain.Network, started int64, err error) domain.DeploymentRecord {
	completed := o.now()
	observability.RecordDeploymentRecord(string(network), string(domain.DeploymentFailed), float64(completed-started)/1000)

	return domain.DeploymentRecord{
		Network:       network,
		State:         domain.DeploymentFailed,
		FailureReason: err.Error(),
		Retryable:     chain.Retryable(err),
		StartedAt:     started,
		CompletedAt:   completed,
	}
}

// pendingNetworks lists the networks whose record is not yet terminal.
func pendingNetworks(token *domain.Token) []domain.Network {
	var networks []domain.Network
	for i := range token.Records {
		if !token.Records[i].Terminal() {
			networks = append(networks, token.Records[i].Network)
		}
	}
	return networks
}

func outcomeOf(token *domain.Token) *Outcome {
	return &Outcome{
		TokenID: token.ID,
		Status:  token.Status,
		Records: append([]domain.DeploymentRecord(nil), token.Records...),
	}
}
