package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// Default bound on optimistic update retries per reconciliation.
const DefaultMaxRetries = 5

// Reconciler folds per-network deployment outcomes into the persisted
// Token aggregate and emits the audit trail. It is the only writer of
// the Token; all updates go through an optimistic version check.
type Reconciler struct {
	tokens     storage.TokenStore
	txs        storage.TransactionStore
	maxRetries int
	logger     *log.Logger
}

// Options contains configuration for creating a Reconciler.
type Options struct {
	TokenStore       storage.TokenStore
	TransactionStore storage.TransactionStore
	MaxRetries       int // Default: 5
	Logger           *log.Logger
}

// New creates a new Reconciler.
func New(opts Options) *Reconciler {
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Reconciler{
		tokens:     opts.TokenStore,
		txs:        opts.TransactionStore,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// DeriveStatus computes the token status from the multiset of
// deployment record states.
func DeriveStatus(records []domain.DeploymentRecord) domain.TokenStatus {
	if len(records) == 0 {
		return domain.TokenStatusPending
	}

	allPending := true
	allTerminal := true
	deployed := 0
	failed := 0
	for i := range records {
		switch records[i].State {
		case domain.DeploymentPending:
			allTerminal = false
		case domain.DeploymentDeploying:
			allPending = false
			allTerminal = false
		case domain.DeploymentDeployed:
			allPending = false
			deployed++
		case domain.DeploymentFailed:
			allPending = false
			failed++
		}
	}

	switch {
	case allPending:
		return domain.TokenStatusPending
	case !allTerminal:
		return domain.TokenStatusDeploying
	case deployed == len(records):
		return domain.TokenStatusDeployed
	case failed == len(records):
		return domain.TokenStatusFailed
	default:
		return domain.TokenStatusPartiallyDeployed
	}
}

// Apply merges the given deployment records into the token, recomputes
// the derived status, and persists the result. Records already terminal
// in the store are never overwritten, so replaying the same outcome is
// a no-op. Version conflicts are resolved by re-reading and re-applying.
func (r *Reconciler) Apply(ctx context.Context, tokenID string, updates []domain.DeploymentRecord) (*domain.Token, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		token, err := r.tokens.GetByID(ctx, tokenID)
		if err != nil {
			return nil, fmt.Errorf("reconcile token %s: %w", tokenID, err)
		}

		merged, changed := mergeRecords(token.Records, updates)
		status := DeriveStatus(merged)
		if !changed && status == token.Status {
			// Already reconciled; still make sure the audit trail exists.
			if err := r.emitDeployAudits(ctx, token, merged); err != nil {
				return nil, err
			}
			return token, nil
		}

		updated, err := r.tokens.Update(ctx, tokenID, token.Version, storage.TokenPatch{
			Status:  &status,
			Records: merged,
		})
		if err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				lastErr = err
				observability.RecordVersionConflict()
				r.logger.Printf("[reconciler] version conflict on token %s (attempt %d), retrying", tokenID, attempt+1)
				continue
			}
			return nil, fmt.Errorf("reconcile token %s: %w", tokenID, err)
		}

		if err := r.emitDeployAudits(ctx, updated, updated.Records); err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("reconcile token %s: retries exhausted: %w", tokenID, lastErr)
}

// RecordPoolCreation appends the audit entry for a pool creation,
// at most once per pool.
func (r *Reconciler) RecordPoolCreation(ctx context.Context, pool *domain.LiquidityPool) error {
	amount := pool.InitialAmount
	rec := &domain.TransactionRecord{
		ID:        fmt.Sprintf("%s:%s:pool_create", pool.TokenID, pool.Network),
		Type:      domain.TxTypePoolCreate,
		TokenID:   pool.TokenID,
		Network:   pool.Network,
		Amount:    &amount,
		ToAddress: pool.PoolAddress,
		Status:    string(pool.Status),
		NetAmount: amount,
		CreatedAt: pool.CreatedAt,
	}
	return r.appendOnce(ctx, rec)
}

// RecordPoolUnlock appends the audit entry for a pool unlocking,
// at most once per pool.
func (r *Reconciler) RecordPoolUnlock(ctx context.Context, pool *domain.LiquidityPool, unlockedAt int64) error {
	amount := pool.InitialAmount
	rec := &domain.TransactionRecord{
		ID:          fmt.Sprintf("%s:%s:liquidity_remove", pool.TokenID, pool.Network),
		Type:        domain.TxTypeLiquidityRemove,
		TokenID:     pool.TokenID,
		Network:     pool.Network,
		Amount:      &amount,
		FromAddress: pool.PoolAddress,
		Status:      string(domain.PoolStatusUnlocked),
		NetAmount:   amount,
		CreatedAt:   unlockedAt,
	}
	return r.appendOnce(ctx, rec)
}

// emitDeployAudits appends one audit entry per terminal deployment
// record. Record ids are deterministic, so crash-retried
// reconciliations cannot double-emit.
func (r *Reconciler) emitDeployAudits(ctx context.Context, token *domain.Token, records []domain.DeploymentRecord) error {
	for i := range records {
		rec := &records[i]
		if !rec.Terminal() {
			continue
		}

		entry := &domain.TransactionRecord{
			ID:        fmt.Sprintf("%s:%s:deploy", token.ID, rec.Network),
			Type:      domain.TxTypeDeploy,
			TokenID:   token.ID,
			Network:   rec.Network,
			ToAddress: rec.ContractAddress,
			Status:    string(rec.State),
			TxHash:    rec.TxRef,
			CreatedAt: rec.CompletedAt,
		}
		if err := r.appendOnce(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) appendOnce(ctx context.Context, rec *domain.TransactionRecord) error {
	err := r.txs.Append(ctx, rec)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("append audit record %s: %w", rec.ID, err)
	}
	observability.RecordAuditRecord(string(rec.Type))
	return nil
}

// mergeRecords overlays updates onto the stored record set. Stored
// terminal records win over any update for the same network; updates
// for networks the token does not know yet are appended.
func mergeRecords(stored, updates []domain.DeploymentRecord) ([]domain.DeploymentRecord, bool) {
	merged := append([]domain.DeploymentRecord(nil), stored...)
	changed := false

	for _, u := range updates {
		found := false
		for i := range merged {
			if merged[i].Network != u.Network {
				continue
			}
			found = true
			if merged[i].Terminal() {
				break
			}
			if merged[i] != u {
				merged[i] = u
				changed = true
			}
			break
		}
		if !found {
			merged = append(merged, u)
			changed = true
		}
	}

	return merged, changed
}
