// Package evm implements the chain adapter for EVM-family networks
// (Ethereum, BNB Chain). Deployments go through the platform's token
// factory contract via the node's JSON-RPC interface.
package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default client configuration.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client is a JSON-RPC 2.0 client for an EVM node.
type Client struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new EVM JSON-RPC client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// RPC-level errors are not retried; only transport failures are.
func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(data, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("all %d attempts failed: %w", c.maxRetries+1, lastErr)
}

// txArgs are the parameters of eth_sendTransaction.
type txArgs struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
	Data string `json:"data,omitempty"`
}

// SendTransaction submits a transaction through the node's managed
// account and returns the transaction hash.
func (c *Client) SendTransaction(ctx context.Context, from, to, data string) (string, error) {
	var hash string
	err := c.call(ctx, "eth_sendTransaction", []interface{}{txArgs{From: from, To: to, Data: data}}, &hash)
	if err != nil {
		return "", err
	}
	return hash, nil
}

// Log is a single receipt log entry.
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Receipt is a transaction receipt.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"` // "0x1" success, "0x0" reverted
	ContractAddress string `json:"contractAddress"`
	Logs            []Log  `json:"logs"`
}

// TransactionReceipt fetches the receipt for a transaction hash.
// Returns nil without error while the transaction is still pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var receipt *Receipt
	err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &receipt)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetBalance returns the native balance of an address in wei, as a
// 0x-prefixed hex quantity.
func (c *Client) GetBalance(ctx context.Context, address string) (string, error) {
	var hex string
	err := c.call(ctx, "eth_getBalance", []interface{}{address, "latest"}, &hex)
	if err != nil {
		return "", err
	}
	return hex, nil
}

// CallContract performs a read-only eth_call against a contract.
type callArgs struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// CallContract executes a read-only contract call and returns the raw
// hex result.
func (c *Client) CallContract(ctx context.Context, to, data string) (string, error) {
	var hex string
	err := c.call(ctx, "eth_call", []interface{}{callArgs{To: to, Data: data}, "latest"}, &hex)
	if err != nil {
		return "", err
	}
	return hex, nil
}
