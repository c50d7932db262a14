// Package settlement hands processed payouts to an external payout endpoint.
package settlement

import (
	"bytes"         // Request body
	"context"       // Context for blocking calls
	"encoding/json" // JSON encoding/decoding
	"errors"        // Sentinel errors
	"fmt"           // Error formatting
	"io"            // Response body
	"net/http"      // HTTP client
	"strings"       // String helpers
	"time"          // Time handling

	"group_fund/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Decimal amounts
)

// ErrNotConfigured is returned when no endpoint is set; callers skip the payout.
var ErrNotConfigured = errors.New("payout endpoint not configured")

// Request is the body posted to the payout endpoint. PayoutID lets the
// receiver drop duplicates.
type Request struct {
	PayoutID       string          `json:"payout_id"`
	Amount         decimal.Decimal `json:"amount"`
	ContributionID string          `json:"contribution_id"`
	Currency       string          `json:"currency"`
}

// RequestFor builds the settlement body of a payout. The net amount is paid.
func RequestFor(p domain.ContributionPayout) Request {
	return Request{
		PayoutID:       p.ID,
		Amount:         p.NetAmount,
		ContributionID: p.ContributionID,
		Currency:       p.Currency,
	}
}

// RejectedError carries a non-2xx answer from the endpoint.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("payout endpoint returned %d", e.Status)
	}
	return fmt.Sprintf("payout endpoint returned %d: %s", e.Status, e.Body)
}

// Settler pays out a processed contribution.
type Settler interface {
	Settle(ctx context.Context, req Request) error
}

// HTTPSettler posts settlement requests as JSON.
type HTTPSettler struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSettler(endpoint string, timeout time.Duration) *HTTPSettler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSettler{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// Configured reports whether an endpoint was set.
func (s *HTTPSettler) Configured() bool {
	return s != nil && s.endpoint != ""
}

func (s *HTTPSettler) Settle(ctx context.Context, req Request) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode settlement: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build settlement request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post settlement: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RejectedError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
