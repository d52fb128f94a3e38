package gorr

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/chain"
)

func testOwner(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return EncodeAddress(pub)
}

func TestAdapter_DeployToken(t *testing.T) {
	owner := testOwner(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tokens":
			var req CreateTokenRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.Owner != owner {
				t.Errorf("owner: got %s, want %s", req.Owner, owner)
			}
			if req.TotalSupply != "1000000" {
				t.Errorf("total supply: got %s, want 1000000", req.TotalSupply)
			}
			json.NewEncoder(w).Encode(SubmitResult{TxID: "gorr-tx-1"})

		case r.Method == http.MethodGet && r.URL.Path == "/v1/txs/gorr-tx-1":
			json.NewEncoder(w).Encode(TxStatus{
				TxID: "gorr-tx-1", Status: "confirmed", TokenAddr: "gorr-token-addr",
			})

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	adapter := NewAdapter(NewClient(server.URL, nil), nil)
	adapter.pollInterval = 10 * time.Millisecond

	result, err := adapter.DeployToken(context.Background(), chain.DeployRequest{
		Name: "Test", Symbol: "TST", Decimals: 18,
		TotalSupply: decimal.NewFromInt(1_000_000),
		Owner:       owner,
	})
	if err != nil {
		t.Fatalf("DeployToken: %v", err)
	}
	if result.ContractAddress != "gorr-token-addr" {
		t.Errorf("contract address: got %s", result.ContractAddress)
	}
	if result.TxRef != "gorr-tx-1" {
		t.Errorf("tx ref: got %s", result.TxRef)
	}
}

func TestAdapter_DeployToken_FeedMissesConfirmation(t *testing.T) {
	owner := testOwner(t)

	// The node confirms the tx, but the event feed never delivers the
	// event (it was pushed before the waiter registered). The adapter
	// must fall back to querying the node instead of reporting a
	// retryable failure for a tx that actually landed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tokens":
			json.NewEncoder(w).Encode(SubmitResult{TxID: "raced-tx"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/txs/raced-tx":
			json.NewEncoder(w).Encode(TxStatus{
				TxID: "raced-tx", Status: "confirmed", TokenAddr: "raced-token-addr",
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	feed, err := NewFeed(context.Background(), startFeedServer(t, nil))
	if err != nil {
		t.Fatalf("NewFeed: %v", err)
	}
	defer feed.Close()

	adapter := NewAdapter(NewClient(server.URL, nil), feed)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := adapter.DeployToken(ctx, chain.DeployRequest{
		Name: "Test", Symbol: "TST",
		TotalSupply: decimal.NewFromInt(100),
		Owner:       owner,
	})
	if err != nil {
		t.Fatalf("DeployToken should recover the confirmation from the node: %v", err)
	}
	if result.ContractAddress != "raced-token-addr" {
		t.Errorf("contract address: got %s", result.ContractAddress)
	}
}

func TestAdapter_DeployToken_MalformedOwner(t *testing.T) {
	adapter := NewAdapter(NewClient("http://127.0.0.1:1", nil), nil)

	_, err := adapter.DeployToken(context.Background(), chain.DeployRequest{
		Name: "Test", Symbol: "TST",
		TotalSupply: decimal.NewFromInt(100),
		Owner:       "not-an-address",
	})
	if !errors.Is(err, chain.ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestAdapter_DeployToken_Rejected(t *testing.T) {
	owner := testOwner(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/tokens" {
			json.NewEncoder(w).Encode(SubmitResult{TxID: "tx-rejected"})
			return
		}
		json.NewEncoder(w).Encode(TxStatus{TxID: "tx-rejected", Status: "rejected", Reason: "symbol taken"})
	}))
	defer server.Close()

	adapter := NewAdapter(NewClient(server.URL, nil), nil)
	adapter.pollInterval = 10 * time.Millisecond

	_, err := adapter.DeployToken(context.Background(), chain.DeployRequest{
		Name: "Test", Symbol: "TST",
		TotalSupply: decimal.NewFromInt(100),
		Owner:       owner,
	})
	if !errors.Is(err, chain.ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters for rejected tx, got %v", err)
	}
}

func TestAdapter_DeployToken_InsufficientFunds(t *testing.T) {
	owner := testOwner(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"code": "insufficient_funds", "message": "deployer account empty",
		})
	}))
	defer server.Close()

	adapter := NewAdapter(NewClient(server.URL, nil), nil)

	_, err := adapter.DeployToken(context.Background(), chain.DeployRequest{
		Name: "Test", Symbol: "TST",
		TotalSupply: decimal.NewFromInt(100),
		Owner:       owner,
	})
	if !errors.Is(err, chain.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestAdapter_GetBalance(t *testing.T) {
	owner := testOwner(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(BalanceResult{Amount: "123.45"})
	}))
	defer server.Close()

	adapter := NewAdapter(NewClient(server.URL, nil), nil)

	balance, err := adapter.GetBalance(context.Background(), owner, "")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("balance: got %s, want 123.45", balance)
	}
}

func TestAdapter_GetBalance_MalformedAddress(t *testing.T) {
	adapter := NewAdapter(NewClient("http://127.0.0.1:1", nil), nil)

	balance, err := adapter.GetBalance(context.Background(), "garbage", "")
	if err != nil {
		t.Fatalf("GetBalance should not fail on malformed address: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("balance: got %s, want 0", balance)
	}
}

func TestAdapter_CreateLiquidityPool_InvalidAmount(t *testing.T) {
	adapter := NewAdapter(NewClient("http://127.0.0.1:1", nil), nil)

	_, err := adapter.CreateLiquidityPool(context.Background(), "gorr-token", decimal.Zero, 0)
	if !errors.Is(err, chain.ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters for zero amount, got %v", err)
	}

	_, err = adapter.CreateLiquidityPool(context.Background(), "gorr-token", decimal.NewFromInt(10), -1)
	if !errors.Is(err, chain.ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters for negative lock, got %v", err)
	}
}
