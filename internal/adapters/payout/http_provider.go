package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

// HTTPProvider talks to the external payout rail over its REST API.
// Every call is bounded by the caller's context; the idempotency key is
// forwarded so the rail deduplicates retried transfers on its side.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("payout provider base url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type transferRequest struct {
	Destination    string  `json:"destination"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type transferResponse struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (p *HTTPProvider) Payout(ctx context.Context, beneficiaryRef string, amount float64, idempotencyKey string) (ports.PayoutResult, error) {
	body, err := json.Marshal(transferRequest{
		Destination:    beneficiaryRef,
		Amount:         amount,
		Currency:       "USD",
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return ports.PayoutResult{}, fmt.Errorf("encode transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return ports.PayoutResult{}, fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return ports.PayoutResult{}, fmt.Errorf("transfer call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ports.PayoutResult{}, fmt.Errorf("read transfer response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.PayoutResult{}, fmt.Errorf("transfer rejected: status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var out transferResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ports.PayoutResult{}, fmt.Errorf("decode transfer response: %w", err)
	}
	if out.TransferID == "" {
		return ports.PayoutResult{}, fmt.Errorf("transfer response missing transfer id")
	}
	return ports.PayoutResult{ProviderRef: out.TransferID}, nil
}

type capabilityResponse struct {
	PayoutsEnabled bool   `json:"payouts_enabled"`
	Reason         string `json:"reason"`
}

func (p *HTTPProvider) CanReceivePayouts(ctx context.Context, beneficiaryRef string) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/destinations/"+beneficiaryRef+"/capabilities", nil)
	if err != nil {
		return false, "", fmt.Errorf("build capability request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("capability call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, "", fmt.Errorf("read capability response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, "unknown payout destination", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, "", fmt.Errorf("capability check: status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var out capabilityResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, "", fmt.Errorf("decode capability response: %w", err)
	}
	return out.PayoutsEnabled, out.Reason, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ ports.PayoutProvider = (*HTTPProvider)(nil)
