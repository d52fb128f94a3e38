// Package payments implements payout clients for the supported
// payment rails behind the admin.PaymentProvider interface.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/fees"
)

// DefaultTimeout bounds a single payout HTTP call.
const DefaultTimeout = 30 * time.Second

// RESTProvider fronts a payment rail exposing a JSON payout endpoint.
type RESTProvider struct {
	name       fees.Provider
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a RESTProvider.
type Option func(*RESTProvider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *RESTProvider) {
		p.httpClient = c
	}
}

// NewRESTProvider creates a payout client for the given rail.
func NewRESTProvider(name fees.Provider, baseURL, apiKey string, opts ...Option) *RESTProvider {
	p := &RESTProvider{
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider this client fronts.
func (p *RESTProvider) Name() fees.Provider {
	return p.name
}

type payoutRequest struct {
	ToAddress string          `json:"to_address"`
	Amount    decimal.Decimal `json:"amount"`
}

type payoutResponse struct {
	Reference string `json:"reference"`
}

type payoutError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Payout transfers amount to the destination address and returns the
// rail's transaction reference.
func (p *RESTProvider) Payout(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	body, err := json.Marshal(payoutRequest{ToAddress: toAddress, Amount: amount})
	if err != nil {
		return "", fmt.Errorf("marshal payout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payout via %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read payout response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var pe payoutError
		if err := json.Unmarshal(data, &pe); err == nil && pe.Message != "" {
			return "", fmt.Errorf("payout via %s: %s (%s)", p.name, pe.Message, pe.Code)
		}
		return "", fmt.Errorf("payout via %s: status %d", p.name, resp.StatusCode)
	}

	var pr payoutResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return "", fmt.Errorf("decode payout response: %w", err)
	}
	if pr.Reference == "" {
		return "", fmt.Errorf("payout via %s: empty reference", p.name)
	}
	return pr.Reference, nil
}
