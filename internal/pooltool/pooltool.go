// Package pooltool implements C9: a thin HTTP reporting client for the
// sendtip/sendslots commands. It is an out-of-core-scope external
// collaborator (spec.md §6) with no business logic of its own beyond
// posting JSON payloads with bounded retry.
package pooltool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultEndpoint is PoolTool's public reporting API.
const DefaultEndpoint = "https://api.pooltool.io/v0"

// Client posts tip and slot-schedule reports to a PoolTool-compatible
// endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

// New constructs a Client. endpoint defaults to DefaultEndpoint when empty.
func New(endpoint, apiKey string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 5,
	}
}

// TipReport is the payload posted by the sendtip command.
type TipReport struct {
	PoolID      string `json:"poolId"`
	BlockNumber uint64 `json:"blockNo"`
	SlotNumber  uint64 `json:"slotNumber"`
	AtTip       bool   `json:"atTip"`
}

// SlotsReport is the payload posted by the sendslots command.
type SlotsReport struct {
	PoolID string   `json:"poolId"`
	Epoch  uint64   `json:"epoch"`
	Slots  []uint64 `json:"slots"`
}

// SendTip posts a TipReport, retrying transient failures with exponential
// backoff (the same shape as the chain-sync reconnect policy, spec.md §7).
func (c *Client) SendTip(ctx context.Context, report TipReport) error {
	return c.postWithRetry(ctx, "/sendtip", report)
}

// SendSlots posts a SlotsReport, retrying transient failures with
// exponential backoff.
func (c *Client) SendSlots(ctx context.Context, report SlotsReport) error {
	return c.postWithRetry(ctx, "/sendslots", report)
}

func (c *Client) postWithRetry(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pooltool: encode report: %w", err)
	}

	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("pooltool: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-KEY", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("pooltool: request %s: %w", path, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("pooltool: %s rejected with status %d", path, resp.StatusCode)
		}
		lastErr = fmt.Errorf("pooltool: %s returned status %d", path, resp.StatusCode)
	}
	return fmt.Errorf("pooltool: %s failed after %d attempts: %w", path, c.maxRetries+1, lastErr)
}
