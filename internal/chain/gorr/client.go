package gorr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Client talks to a Gorrillazz ledger node over its HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a ledger node client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: baseURL, client: httpClient}
}

// apiError is the node's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("ledger error %s: %s", e.Code, e.Message)
}

// CreateTokenRequest is the body of POST /v1/tokens.
type CreateTokenRequest struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"total_supply"`
	Owner       string `json:"owner"`
	MetadataURI string `json:"metadata_uri,omitempty"`
}

// CreatePoolRequest is the body of POST /v1/pools.
type CreatePoolRequest struct {
	TokenAddress   string `json:"token_address"`
	Amount         string `json:"amount"`
	LockPeriodDays int    `json:"lock_period_days"`
}

// SubmitResult is returned by submission endpoints.
type SubmitResult struct {
	TxID string `json:"tx_id"`
}

// TxStatus is returned by GET /v1/txs/{id}.
type TxStatus struct {
	TxID      string `json:"tx_id"`
	Status    string `json:"status"` // "pending" | "confirmed" | "rejected"
	Reason    string `json:"reason,omitempty"`
	TokenAddr string `json:"token_address,omitempty"`
	PoolAddr  string `json:"pool_address,omitempty"`
}

// BalanceResult is returned by the balance endpoint.
type BalanceResult struct {
	Amount string `json:"amount"`
}

// SubmitToken submits a token creation transaction.
func (c *Client) SubmitToken(ctx context.Context, req CreateTokenRequest) (*SubmitResult, error) {
	var result SubmitResult
	if err := c.post(ctx, "/v1/tokens", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitPool submits a pool creation transaction.
func (c *Client) SubmitPool(ctx context.Context, req CreatePoolRequest) (*SubmitResult, error) {
	var result SubmitResult
	if err := c.post(ctx, "/v1/pools", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTx fetches the status of a submitted transaction.
func (c *Client) GetTx(ctx context.Context, txID string) (*TxStatus, error) {
	var status TxStatus
	if err := c.get(ctx, "/v1/txs/"+txID, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetBalance fetches an account balance, of the native GORR asset when
// token is empty.
func (c *Client) GetBalance(ctx context.Context, address, token string) (*BalanceResult, error) {
	path := "/v1/accounts/" + address + "/balance"
	if token != "" {
		path += "?token=" + token
	}
	var result BalanceResult
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Code != "" {
			return &apiErr
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
