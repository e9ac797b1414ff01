// Package report delivers fault records to the remote reporting endpoint and
// tracks its reachability.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/vietddude/guardrail/internal/core/domain"
)

// payload is the wire format of the reporting endpoint. The caller ignores
// any response body.
type payload struct {
	Error struct {
		Message  string `json:"message"`
		Stack    string `json:"stack,omitempty"`
		Kind     string `json:"kind"`
		Severity string `json:"severity"`
		Code     string `json:"code,omitempty"`
	} `json:"error"`
	Context domain.FaultContext `json:"context"`
}

// Client posts fault records to a single reporting endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	attempts uint64
	backoff  time.Duration
}

// NewClient creates a reporting client. Delivery failures are non-fatal to
// callers; the client only retries transient errors within one Report call.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		attempts: 3,
		backoff:  500 * time.Millisecond,
	}
}

// Report delivers one fault record. Connection errors and 5xx responses are
// retried with fibonacci backoff; other non-2xx responses fail immediately.
func (c *Client) Report(ctx context.Context, f *domain.Fault) error {
	var p payload
	p.Error.Message = f.Message
	p.Error.Stack = f.Stack
	p.Error.Kind = string(f.Kind)
	p.Error.Severity = string(f.Severity)
	p.Error.Code = f.Code
	p.Context = f.Context

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal fault report: %w", err)
	}

	b := retry.WithMaxRetries(c.attempts, retry.NewFibonacci(c.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build report request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("report endpoint returned %d", resp.StatusCode))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("report endpoint returned %d", resp.StatusCode)
		}
		return nil
	})
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}
