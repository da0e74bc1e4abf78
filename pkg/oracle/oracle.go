// Package oracle queries an external balance service for current funds.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Oracle supplies a current funds figure on demand. It may fail or be slow;
// the monitor is responsible for tolerating both.
type Oracle interface {
	Balance(ctx context.Context, address, network string) (decimal.Decimal, error)
}

// HTTPOracle queries a JSON balance endpoint:
// GET <url>?address=...&network=... -> {"balance":"12.50"}.
type HTTPOracle struct {
	endpoint string
	client   *http.Client
}

type balanceResponse struct {
	Balance string `json:"balance"`
	Error   string `json:"error,omitempty"`
}

// NewHTTP creates an HTTPOracle with a bounded per-request timeout.
func NewHTTP(endpoint string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Balance fetches the current balance for an address on a network.
func (o *HTTPOracle) Balance(ctx context.Context, address, network string) (decimal.Decimal, error) {
	target, err := url.Parse(o.endpoint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid oracle URL: %w", err)
	}
	q := target.Query()
	q.Set("address", address)
	q.Set("network", network)
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query oracle: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("oracle returned %d: %s", resp.StatusCode, body)
	}

	var br balanceResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return decimal.Zero, fmt.Errorf("parse oracle response: %w", err)
	}
	if br.Error != "" {
		return decimal.Zero, fmt.Errorf("oracle error: %s", br.Error)
	}

	balance, err := decimal.NewFromString(br.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse oracle balance: %w", err)
	}
	return balance, nil
}
