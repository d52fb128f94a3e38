package evm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
)

const (
	testDeployer = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testFactory  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	testRouter   = "0xcccccccccccccccccccccccccccccccccccccccc"
	testToken    = "0x1111111111111111111111111111111111111111"
	testHolder   = "0x742d35cc6634c0532925a3b844bc9e7595f0beb1"
)

// newTestAdapter builds an adapter pointed at a scripted JSON-RPC server.
func newTestAdapter(t *testing.T, handler func(method string, params []json.RawMessage) (interface{}, *rpcError)) *Adapter {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = map[string]interface{}{"code": rpcErr.Code, "message": rpcErr.Message}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)

	adapter, err := NewAdapter(Config{
		Network:         domain.NetworkEthereum,
		Client:          NewClient(server.URL, WithMaxRetries(0)),
		Deployer:        testDeployer,
		Factory:         testFactory,
		Router:          testRouter,
		ReceiptInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return adapter
}

func TestAdapter_DeployToken(t *testing.T) {
	txHash := "0xdeadbeef"

	adapter := newTestAdapter(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		switch method {
		case "eth_sendTransaction":
			return txHash, nil
		case "eth_getTransactionReceipt":
			return map[string]interface{}{
				"transactionHash": txHash,
				"status":          "0x1",
				"logs": []map[string]interface{}{
					{"address": testToken, "topics": []string{}, "data": "0x"},
				},
			}, nil
		default:
			t.Errorf("unexpected method %s", method)
			return nil, &rpcError{Code: -32601, Message: "method not found"}
		}
	})

	result, err := adapter.DeployToken(context.Background(), chain.DeployRequest{
		Name:        "Test",
		Symbol:      "TST",
		Decimals:    18,
		TotalSupply: decimal.NewFromInt(1_000_000),
		Owner:       testHolder,
	})
	if err != nil {
		t.Fatalf("DeployToken: %v", err)
	}

	if result.ContractAddress != testToken {
		t.Errorf("contract address: got %s, want %s", result.ContractAddress, testToken)
	}
	if result.TxRef != txHash {
		t.Errorf("tx ref: got %s, want %s", result.TxRef, txHash)
	}
}

func TestAdapter_DeployToken_Reverted(t *testing.T) {
	adapter := newTestAdapter(t, func(method string, _ []json.RawMessage) (interface{}, *rpcError) {
		switch method {
		case "eth_sendTransaction":
			return "0xdead", nil
		default:
			return map[string]interface{}{"transactionHash": "0xdead", "status": "0x0", "logs": []interface{}{}}, nil
		}
	})

	_, err := adapter.DeployToken(context.Background(), chain.DeployRequest{
		Name: "Test", Symbol: "TST", Decimals: 18,
		TotalSupply: decimal.NewFromInt(100),
		Owner:       testHolder,
	})
	if !errors.Is(err, chain.ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters for reverted tx, got %v", err)
	}
}

func TestAdapter_DeployToken_InsufficientFunds(t *testing.T) {
	adapter := newTestAdapter(t, func(string, []json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "insufficient funds for gas * price + value"}
	})

	_, err := adapter.DeployToken(context.Background(), chain.DeployRequest{
		Name: "Test", Symbol: "TST", Decimals: 18,
		TotalSupply: decimal.NewFromInt(100),
		Owner:       testHolder,
	})
	if !errors.Is(err, chain.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestAdapter_DeployToken_NodeDown(t *testing.T) {
	adapter, err := NewAdapter(Config{
		Network:  domain.NetworkEthereum,
		Client:   NewClient("http://127.0.0.1:1", WithMaxRetries(0), WithTimeout(100*time.Millisecond)),
		Deployer: testDeployer,
		Factory:  testFactory,
		Router:   testRouter,
	})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	_, err = adapter.DeployToken(context.Background(), chain.DeployRequest{
		Name: "Test", Symbol: "TST", Decimals: 18,
		TotalSupply: decimal.NewFromInt(100),
		Owner:       testHolder,
	})
	if !errors.Is(err, chain.ErrNetworkUnavailable) {
		t.Errorf("expected ErrNetworkUnavailable, got %v", err)
	}
}

func TestAdapter_GetBalance_Native(t *testing.T) {
	adapter := newTestAdapter(t, func(method string, _ []json.RawMessage) (interface{}, *rpcError) {
		if method != "eth_getBalance" {
			t.Errorf("unexpected method %s", method)
		}
		return "0xde0b6b3a7640000", nil // 1 ether in wei
	})

	balance, err := adapter.GetBalance(context.Background(), testHolder, "")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(1)) {
		t.Errorf("balance: got %s, want 1", balance)
	}
}

func TestAdapter_GetBalance_Token(t *testing.T) {
	adapter := newTestAdapter(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		if method != "eth_call" {
			t.Errorf("unexpected method %s", method)
		}
		var args callArgs
		if err := json.Unmarshal(params[0], &args); err != nil {
			t.Fatalf("unmarshal call args: %v", err)
		}
		if args.Data == encodeDecimals() {
			return "0x6", nil // 6 decimals
		}
		return "0x2faf080", nil // 50_000_000 raw units = 50 tokens
	})

	balance, err := adapter.GetBalance(context.Background(), testHolder, testToken)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balance: got %s, want 50", balance)
	}
}

func TestAdapter_GetBalance_MalformedAddress(t *testing.T) {
	adapter := newTestAdapter(t, func(method string, _ []json.RawMessage) (interface{}, *rpcError) {
		t.Errorf("no RPC call expected for malformed address, got %s", method)
		return nil, nil
	})

	balance, err := adapter.GetBalance(context.Background(), "garbage", "")
	if err != nil {
		t.Fatalf("GetBalance should not fail on malformed address: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("balance: got %s, want 0", balance)
	}
}
