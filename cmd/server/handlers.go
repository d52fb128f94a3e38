package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/admin"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/fees"
	"token-launchpad/internal/liquidity"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/orchestrator"
	"token-launchpad/internal/storage"
)

// routes builds the HTTP mux for the launchpad API.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/deploy", s.handleDeploy)
	mux.HandleFunc("GET /api/tokens/{id}", s.handleToken)
	mux.HandleFunc("GET /api/tokens/{id}/transactions", s.handleTokenTransactions)
	mux.HandleFunc("POST /api/tokens/{id}/liquidity", s.handleLiquidity)
	mux.HandleFunc("POST /api/pools/{id}/unlock", s.handleUnlock)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("POST /api/admin/withdraw", s.handleWithdraw)
	mux.HandleFunc("GET /api/analytics/volume", s.handleVolume)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

type liquidityPayload struct {
	Amount         decimal.Decimal `json:"amount"`
	LockPeriodDays int             `json:"lock_period_days"`
	Venue          string          `json:"venue,omitempty"`
}

type deployPayload struct {
	TokenID     string          `json:"token_id,omitempty"` // set on retry
	Requester   string          `json:"requester"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    int             `json:"decimals,omitempty"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	Description string          `json:"description,omitempty"`
	LogoURL     string          `json:"logo_url,omitempty"`
	Website     string          `json:"website,omitempty"`
	Twitter     string          `json:"twitter,omitempty"`
	Telegram    string          `json:"telegram,omitempty"`
	Discord     string          `json:"discord,omitempty"`
	Mintable    bool            `json:"mintable,omitempty"`
	Burnable    bool            `json:"burnable,omitempty"`
	Pausable    bool            `json:"pausable,omitempty"`

	Networks  []string          `json:"networks"`
	Liquidity *liquidityPayload `json:"liquidity,omitempty"`
}

type recordView struct {
	Network         string `json:"network"`
	State           string `json:"state"`
	ContractAddress string `json:"contract_address,omitempty"`
	TxRef           string `json:"tx_ref,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	Retryable       bool   `json:"retryable,omitempty"`
	StartedAt       int64  `json:"started_at,omitempty"`
	CompletedAt     int64  `json:"completed_at,omitempty"`
}

type outcomeView struct {
	TokenID         string            `json:"token_id"`
	Status          string            `json:"status"`
	Records         []recordView      `json:"records"`
	Pools           []map[string]any  `json:"pools,omitempty"`
	LiquidityErrors map[string]string `json:"liquidity_errors,omitempty"`
}

// handleDeploy submits a token deployment and returns the aggregated
// per-network outcome. Partial failure is a 200; the caller inspects
// the records.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var payload deployPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	networks := make([]domain.Network, len(payload.Networks))
	for i, n := range payload.Networks {
		networks[i] = domain.Network(n)
	}

	spec := domain.TokenSpec{
		Name:        payload.Name,
		Symbol:      payload.Symbol,
		Decimals:    payload.Decimals,
		TotalSupply: payload.TotalSupply,
		Description: payload.Description,
		LogoURL:     payload.LogoURL,
		Website:     payload.Website,
		Twitter:     payload.Twitter,
		Telegram:    payload.Telegram,
		Discord:     payload.Discord,
		Mintable:    payload.Mintable,
		Burnable:    payload.Burnable,
		Pausable:    payload.Pausable,
		Networks:    networks,
	}
	if payload.Liquidity != nil {
		spec.Liquidity = &domain.LiquidityParams{
			Amount:         payload.Liquidity.Amount,
			LockPeriodDays: payload.Liquidity.LockPeriodDays,
			Venue:          domain.Venue(payload.Liquidity.Venue),
		}
	}

	outcome, err := s.orch.Deploy(r.Context(), orchestrator.Request{
		TokenID:   payload.TokenID,
		Spec:      spec,
		Requester: payload.Requester,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if outcome.Status == domain.TokenStatusDeployed {
		observability.DefaultMetrics.LastSuccessfulDeploy.SetToCurrentTime()
	}

	view := outcomeOfView(outcome)

	// Provision liquidity on every network that deployed. A failed
	// pool does not fail the deployment; the caller sees it per
	// network next to the records.
	if spec.Liquidity != nil {
		for _, record := range outcome.Records {
			if record.State != domain.DeploymentDeployed {
				continue
			}
			pool, err := s.coord.Provision(r.Context(), outcome.TokenID, record.Network, liquidity.Request{
				Amount:         spec.Liquidity.Amount,
				LockPeriodDays: spec.Liquidity.LockPeriodDays,
				Venue:          spec.Liquidity.Venue,
			})
			if err != nil {
				s.logger.Printf("Provision liquidity on %s: %v", record.Network, err)
				if view.LiquidityErrors == nil {
					view.LiquidityErrors = make(map[string]string)
				}
				view.LiquidityErrors[string(record.Network)] = err.Error()
				continue
			}
			view.Pools = append(view.Pools, poolView(pool))
		}
	}

	writeJSON(w, http.StatusOK, view)
}

// handleToken returns the persisted token aggregate.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.tokens.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	records := make([]recordView, len(token.Records))
	for i, rec := range token.Records {
		records[i] = recordViewOf(rec)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token_id":   token.ID,
		"name":       token.Spec.Name,
		"symbol":     token.Spec.Symbol,
		"creator":    token.Creator,
		"status":     string(token.Status),
		"records":    records,
		"created_at": token.CreatedAt,
		"updated_at": token.UpdatedAt,
	})
}

// handleTokenTransactions returns the audit trail of a token.
func (s *Server) handleTokenTransactions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.tokens.GetByID(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	records, err := s.txs.GetByToken(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]map[string]any, len(records))
	for i, rec := range records {
		entry := map[string]any{
			"id":         rec.ID,
			"type":       string(rec.Type),
			"network":    string(rec.Network),
			"status":     rec.Status,
			"tx_hash":    rec.TxHash,
			"created_at": rec.CreatedAt,
		}
		if rec.Amount != nil {
			entry["amount"] = rec.Amount.String()
		}
		out[i] = entry
	}
	writeJSON(w, http.StatusOK, map[string]any{"token_id": id, "transactions": out})
}

type provisionPayload struct {
	Network        string          `json:"network"`
	Amount         decimal.Decimal `json:"amount"`
	LockPeriodDays int             `json:"lock_period_days"`
	Venue          string          `json:"venue,omitempty"`
}

// handleLiquidity provisions a pool for a deployed token.
func (s *Server) handleLiquidity(w http.ResponseWriter, r *http.Request) {
	var payload provisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	network, err := domain.ParseNetwork(payload.Network)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pool, err := s.coord.Provision(r.Context(), r.PathValue("id"), network, liquidity.Request{
		Amount:         payload.Amount,
		LockPeriodDays: payload.LockPeriodDays,
		Venue:          domain.Venue(payload.Venue),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolView(pool))
}

// handleUnlock unlocks a pool whose lock period has elapsed.
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	pool, err := s.coord.Unlock(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolView(pool))
}

// handleBalance returns a wallet balance on one network. An empty
// contract parameter selects the native balance.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	network, err := domain.ParseNetwork(q.Get("network"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	address := q.Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	adapter, err := s.registry.Get(network)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	start := time.Now()
	balance, err := adapter.GetBalance(r.Context(), address, q.Get("contract"))
	observability.RecordAdapterCall(string(network), "get_balance", time.Since(start).Seconds(), errClass(err))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"network": string(network),
		"address": address,
		"balance": balance.String(),
	})
}

type withdrawPayload struct {
	Requester string          `json:"requester"`
	Provider  string          `json:"provider"`
	ToAddress string          `json:"to_address"`
	Amount    decimal.Decimal `json:"amount"`
}

// handleWithdraw executes an admin withdrawal through a payment rail.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var payload withdrawPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	provider, err := fees.ParseProvider(payload.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	withdrawal, err := s.adminSvc.Withdraw(r.Context(), admin.WithdrawalRequest{
		Requester: payload.Requester,
		Provider:  provider,
		ToAddress: payload.ToAddress,
		Amount:    payload.Amount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         withdrawal.ID,
		"provider":   string(withdrawal.Provider),
		"amount":     withdrawal.Amount.String(),
		"fee":        withdrawal.Fee.String(),
		"net_amount": withdrawal.NetAmount.String(),
		"tx_ref":     withdrawal.TxRef,
	})
}

// handleVolume aggregates mirrored transaction volume per network.
// Requires the ClickHouse mirror.
func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "analytics mirror not configured")
		return
	}

	q := r.URL.Query()
	end := time.Now().UnixMilli()
	start := end - 24*time.Hour.Milliseconds()
	if v := q.Get("start"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed start timestamp")
			return
		}
		start = parsed
	}
	if v := q.Get("end"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed end timestamp")
			return
		}
		end = parsed
	}

	points, err := s.audit.VolumeByNetwork(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]map[string]any, len(points))
	for i, p := range points {
		out[i] = map[string]any{
			"network":   string(p.Network),
			"tx_count":  p.TxCount,
			"volume":    p.Volume.String(),
			"total_fee": p.TotalFee.String(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"start": start, "end": end, "networks": out})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string   `json:"status"`
	Uptime      string   `json:"uptime"`
	StartedAt   int64    `json:"started_at"`
	Storage     string   `json:"storage"`
	Networks    []string `json:"networks"`
	AuditMirror bool     `json:"audit_mirror"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	networks := make([]string, 0, len(s.registry.Networks()))
	for _, n := range s.registry.Networks() {
		networks = append(networks, string(n))
	}

	storageMode := "postgres"
	if s.useMemory {
		storageMode = "memory"
	}

	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.startedAt).String(),
		StartedAt:   s.startedAt.UnixMilli(),
		Storage:     storageMode,
		Networks:    networks,
		AuditMirror: s.audit != nil,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func recordViewOf(rec domain.DeploymentRecord) recordView {
	return recordView{
		Network:         string(rec.Network),
		State:           string(rec.State),
		ContractAddress: rec.ContractAddress,
		TxRef:           rec.TxRef,
		FailureReason:   rec.FailureReason,
		Retryable:       rec.Retryable,
		StartedAt:       rec.StartedAt,
		CompletedAt:     rec.CompletedAt,
	}
}

func outcomeOfView(outcome *orchestrator.Outcome) outcomeView {
	records := make([]recordView, len(outcome.Records))
	for i, rec := range outcome.Records {
		records[i] = recordViewOf(rec)
	}
	return outcomeView{
		TokenID: outcome.TokenID,
		Status:  string(outcome.Status),
		Records: records,
	}
}

func poolView(pool *domain.LiquidityPool) map[string]any {
	view := map[string]any{
		"pool_id":          pool.ID,
		"token_id":         pool.TokenID,
		"network":          string(pool.Network),
		"venue":            string(pool.Venue),
		"initial_amount":   pool.InitialAmount.String(),
		"lock_period_days": pool.LockPeriodDays,
		"pool_address":     pool.PoolAddress,
		"status":           string(pool.Status),
		"created_at":       pool.CreatedAt,
	}
	if pool.LockedUntil != nil {
		view["locked_until"] = *pool.LockedUntil
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orchestrator.ErrInvalidSpec),
		errors.Is(err, chain.ErrInvalidParameters):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chain.ErrUnsupported):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, chain.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, liquidity.ErrNotDeployed),
		errors.Is(err, liquidity.ErrStillLocked),
		errors.Is(err, storage.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, admin.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, chain.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, chain.ErrNetworkUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func errClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, chain.ErrNetworkUnavailable):
		return "unavailable"
	case errors.Is(err, chain.ErrInvalidParameters):
		return "invalid_params"
	case errors.Is(err, chain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, chain.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, chain.ErrNotConfigured):
		return "not_configured"
	default:
		return "other"
	}
}
