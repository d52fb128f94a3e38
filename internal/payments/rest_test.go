package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/fees"
)

func TestPayout(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payouts" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var req payoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ToAddress != "0xdest" {
			t.Errorf("expected to_address 0xdest, got %s", req.ToAddress)
		}
		if !req.Amount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected amount 100, got %s", req.Amount)
		}

		json.NewEncoder(w).Encode(payoutResponse{Reference: "ref-42"})
	}))
	defer server.Close()

	p := NewRESTProvider(fees.ProviderStripe, server.URL, "secret")
	ref, err := p.Payout(context.Background(), "0xdest", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Payout failed: %v", err)
	}
	if ref != "ref-42" {
		t.Errorf("expected ref-42, got %s", ref)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestPayoutErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(payoutError{Code: "insufficient_balance", Message: "platform balance too low"})
	}))
	defer server.Close()

	p := NewRESTProvider(fees.ProviderPaypal, server.URL, "")
	_, err := p.Payout(context.Background(), "0xdest", decimal.NewFromInt(100))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "platform balance too low") {
		t.Errorf("error does not carry the rail message: %v", err)
	}
}

func TestPayoutRailDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	p := NewRESTProvider(fees.ProviderCard, server.URL, "")
	if _, err := p.Payout(context.Background(), "0xdest", decimal.NewFromInt(100)); err == nil {
		t.Fatal("expected transport error")
	}
}
