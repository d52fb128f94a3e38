package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/admin"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/chain/stub"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/fees"
	"token-launchpad/internal/liquidity"
	"token-launchpad/internal/orchestrator"
	"token-launchpad/internal/reconciler"
	"token-launchpad/internal/storage/memory"
)

const testAdmin = "0xAdminAdminAdminAdminAdminAdminAdminAdmi"

type fakeProvider struct {
	name fees.Provider
}

func (p *fakeProvider) Name() fees.Provider { return p.name }

func (p *fakeProvider) Payout(_ context.Context, _ string, _ decimal.Decimal) (string, error) {
	return "payout-ref-1", nil
}

func newTestServer(t *testing.T) (*Server, *stub.Adapter) {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	eth := stub.New(domain.NetworkEthereum)
	registry := chain.NewRegistry(eth, chain.NewDisabledAdapter(domain.NetworkSolana))

	tokens := memory.NewTokenStore()
	pools := memory.NewPoolStore()
	txs := memory.NewTransactionStore()

	rec := reconciler.New(reconciler.Options{
		TokenStore:       tokens,
		TransactionStore: txs,
		Logger:           logger,
	})

	return &Server{
		registry: registry,
		orch: orchestrator.New(orchestrator.Options{
			Registry:   registry,
			TokenStore: tokens,
			Reconciler: rec,
			Logger:     logger,
		}),
		coord: liquidity.New(liquidity.Options{
			Registry:   registry,
			TokenStore: tokens,
			PoolStore:  pools,
			Reconciler: rec,
			Logger:     logger,
		}),
		adminSvc: admin.New(admin.Options{
			Schedule:         fees.NewSchedule(testAdmin),
			Providers:        []admin.PaymentProvider{&fakeProvider{name: fees.ProviderStripe}},
			TransactionStore: txs,
			Logger:           logger,
		}),
		tokens:    tokens,
		pools:     pools,
		txs:       txs,
		useMemory: true,
		startedAt: time.Now(),
		logger:    logger,
	}, eth
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestDeployAndFetchToken(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	w := postJSON(t, handler, "/api/deploy", map[string]any{
		"requester":    "0xcreator",
		"name":         "Widget",
		"symbol":       "WDG",
		"total_supply": "1000000",
		"networks":     []string{"ethereum"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("deploy returned %d: %s", w.Code, w.Body.String())
	}

	var outcome outcomeView
	decodeBody(t, w, &outcome)
	if outcome.Status != "deployed" {
		t.Errorf("expected deployed, got %s", outcome.Status)
	}
	if len(outcome.Records) != 1 || outcome.Records[0].ContractAddress == "" {
		t.Errorf("expected one record with a contract address, got %+v", outcome.Records)
	}

	w = get(t, handler, "/api/tokens/"+outcome.TokenID)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch token returned %d: %s", w.Code, w.Body.String())
	}

	var token struct {
		Status string `json:"status"`
		Symbol string `json:"symbol"`
	}
	decodeBody(t, w, &token)
	if token.Status != "deployed" || token.Symbol != "WDG" {
		t.Errorf("unexpected token view: %+v", token)
	}

	w = get(t, handler, "/api/tokens/"+outcome.TokenID+"/transactions")
	if w.Code != http.StatusOK {
		t.Fatalf("fetch transactions returned %d: %s", w.Code, w.Body.String())
	}
	var audit struct {
		Transactions []map[string]any `json:"transactions"`
	}
	decodeBody(t, w, &audit)
	if len(audit.Transactions) != 1 {
		t.Errorf("expected one audit record, got %d", len(audit.Transactions))
	}
}

func TestDeployInvalidSpec(t *testing.T) {
	server, eth := newTestServer(t)
	handler := server.routes()

	w := postJSON(t, handler, "/api/deploy", map[string]any{
		"requester":    "0xcreator",
		"name":         "",
		"symbol":       "WDG",
		"total_supply": "1000000",
		"networks":     []string{"ethereum"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if eth.DeployCalls() != 0 {
		t.Errorf("invalid spec reached the adapter: %d calls", eth.DeployCalls())
	}
}

func TestTokenNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	w := get(t, server.routes(), "/api/tokens/nope")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestLiquidityLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	w := postJSON(t, handler, "/api/deploy", map[string]any{
		"requester":    "0xcreator",
		"name":         "Widget",
		"symbol":       "WDG",
		"total_supply": "1000000",
		"networks":     []string{"ethereum"},
	})
	var outcome outcomeView
	decodeBody(t, w, &outcome)

	w = postJSON(t, handler, "/api/tokens/"+outcome.TokenID+"/liquidity", map[string]any{
		"network": "ethereum",
		"amount":  "500",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("provision returned %d: %s", w.Code, w.Body.String())
	}

	var pool struct {
		PoolID string `json:"pool_id"`
		Status string `json:"status"`
		Venue  string `json:"venue"`
	}
	decodeBody(t, w, &pool)
	if pool.Status != "active" || pool.Venue != "uniswap" {
		t.Errorf("unexpected pool view: %+v", pool)
	}

	// An unlocked pool cannot be unlocked again.
	w = postJSON(t, handler, "/api/pools/"+pool.PoolID+"/unlock", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 unlocking an active pool, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeployWithLiquidityBlock(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	w := postJSON(t, handler, "/api/deploy", map[string]any{
		"requester":    "0xcreator",
		"name":         "Widget",
		"symbol":       "WDG",
		"total_supply": "1000000",
		"networks":     []string{"ethereum"},
		"liquidity": map[string]any{
			"amount":           "500",
			"lock_period_days": 30,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("deploy returned %d: %s", w.Code, w.Body.String())
	}

	var outcome outcomeView
	decodeBody(t, w, &outcome)
	if outcome.Status != "deployed" {
		t.Fatalf("expected deployed, got %s", outcome.Status)
	}
	if len(outcome.LiquidityErrors) != 0 {
		t.Fatalf("unexpected liquidity errors: %+v", outcome.LiquidityErrors)
	}
	if len(outcome.Pools) != 1 {
		t.Fatalf("expected one pool for the deployed network, got %d", len(outcome.Pools))
	}
	pool := outcome.Pools[0]
	if pool["status"] != "locked" || pool["network"] != "ethereum" {
		t.Errorf("unexpected pool view: %+v", pool)
	}

	// The pool is persisted, not just echoed back.
	poolID, _ := pool["pool_id"].(string)
	stored, err := server.pools.GetByID(context.Background(), poolID)
	if err != nil {
		t.Fatalf("pool not persisted: %v", err)
	}
	if stored.TokenID != outcome.TokenID {
		t.Errorf("pool bound to token %s, want %s", stored.TokenID, outcome.TokenID)
	}
}

func TestLiquidityBeforeDeploy(t *testing.T) {
	server, eth := newTestServer(t)
	eth.DeployErr = fmt.Errorf("%w: node down", chain.ErrNetworkUnavailable)
	handler := server.routes()

	w := postJSON(t, handler, "/api/deploy", map[string]any{
		"requester":    "0xcreator",
		"name":         "Widget",
		"symbol":       "WDG",
		"total_supply": "1000000",
		"networks":     []string{"ethereum"},
	})
	var outcome outcomeView
	decodeBody(t, w, &outcome)
	if outcome.Status != "failed" {
		t.Fatalf("expected failed outcome, got %s", outcome.Status)
	}

	w = postJSON(t, handler, "/api/tokens/"+outcome.TokenID+"/liquidity", map[string]any{
		"network": "ethereum",
		"amount":  "500",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for undeployed token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBalance(t *testing.T) {
	server, eth := newTestServer(t)
	eth.SetBalance("0xwallet", "", decimal.NewFromFloat(1.5))
	handler := server.routes()

	w := get(t, handler, "/api/balance?network=ethereum&address=0xwallet")
	if w.Code != http.StatusOK {
		t.Fatalf("balance returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Balance string `json:"balance"`
	}
	decodeBody(t, w, &resp)
	if resp.Balance != "1.5" {
		t.Errorf("expected balance 1.5, got %s", resp.Balance)
	}

	w = get(t, handler, "/api/balance?network=westeros&address=0xwallet")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown network, got %d", w.Code)
	}
}

func TestWithdrawAuthorization(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	w := postJSON(t, handler, "/api/admin/withdraw", map[string]any{
		"requester":  "0xsomeoneelse",
		"provider":   "stripe",
		"to_address": "0xdest",
		"amount":     "1000",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, handler, "/api/admin/withdraw", map[string]any{
		"requester":  testAdmin,
		"provider":   "stripe",
		"to_address": "0xdest",
		"amount":     "1000",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Fee       string `json:"fee"`
		NetAmount string `json:"net_amount"`
	}
	decodeBody(t, w, &resp)
	if resp.Fee != "0" || resp.NetAmount != "1000" {
		t.Errorf("admin withdrawal should be fee exempt, got fee=%s net=%s", resp.Fee, resp.NetAmount)
	}
}

func TestStatusAndHealth(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	w := get(t, handler, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("health returned %d", w.Code)
	}

	w = get(t, handler, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status returned %d", w.Code)
	}
	var resp StatusResponse
	decodeBody(t, w, &resp)
	if resp.Status != "running" || resp.Storage != "memory" {
		t.Errorf("unexpected status: %+v", resp)
	}

	w = get(t, handler, "/api/analytics/volume")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without the analytics mirror, got %d", w.Code)
	}
}
