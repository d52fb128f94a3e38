package domain

// DeploymentState is the lifecycle state of a single (token, network) deployment.
type DeploymentState string

// Deployment lifecycle: pending → deploying → {deployed | failed}.
const (
	DeploymentPending   DeploymentState = "pending"
	DeploymentDeploying DeploymentState = "deploying"
	DeploymentDeployed  DeploymentState = "deployed"
	DeploymentFailed    DeploymentState = "failed"
)

// DeploymentRecord is the per-network outcome of a deployment attempt.
// Immutable once terminal; the (token id, network) pair is the
// idempotency key that prevents duplicate on-chain deployments.
type DeploymentRecord struct {
	Network         Network
	State           DeploymentState
	ContractAddress string // set only when deployed
	TxRef           string // external transaction reference
	FailureReason   string // set only when failed
	Retryable       bool   // failed due to a transient condition
	StartedAt       int64  // Unix timestamp in milliseconds
	CompletedAt     int64  // 0 while non-terminal
}

// Terminal reports whether the record reached a final state.
func (r *DeploymentRecord) Terminal() bool {
	return r.State == DeploymentDeployed || r.State == DeploymentFailed
}
