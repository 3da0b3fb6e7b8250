package agentrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muurk/smartidler/internal/logging"
)

// InvokePath is the HTTP endpoint accepting invocation envelopes.
const InvokePath = "/invoke"

// HTTPClient invokes agent commands with one POST per call.
type HTTPClient struct {
	// BaseURL is the agent base URL (e.g., "http://127.0.0.1:7420")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Timeout bounds each invocation (0 = none)
	Timeout time.Duration
}

// NewHTTPClient creates a client for the agent at baseURL. A trailing
// InvokePath on baseURL is tolerated.
func NewHTTPClient(baseURL string, opts Options) *HTTPClient {
	base := strings.TrimSuffix(strings.TrimRight(baseURL, "/"), InvokePath)
	return &HTTPClient{
		BaseURL:    base,
		HTTPClient: &http.Client{},
		Timeout:    opts.Timeout,
	}
}

// Invoke implements Invoker.
func (c *HTTPClient) Invoke(ctx context.Context, command string, args Args, out any) error {
	start := time.Now()
	err := c.invoke(ctx, command, args, out)
	logging.LogInvocation(command, args, time.Since(start), err)
	return err
}

func (c *HTTPClient) invoke(ctx context.Context, command string, args Args, out any) error {
	ctx, cancel := withCallTimeout(ctx, c.Timeout)
	defer cancel()

	req := NewRequest(command, args)
	body, err := json.Marshal(req)
	if err != nil {
		return &AgentError{Type: ErrTypeUnknown, Command: command, Message: "failed to encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+InvokePath, bytes.NewReader(body))
	if err != nil {
		return &AgentError{Type: ErrTypeUnknown, Command: command, Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return ClassifyNetworkError(command, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return ClassifyNetworkError(command, err)
	}

	var envelope Response
	decodeErr := json.Unmarshal(data, &envelope)

	if resp.StatusCode != http.StatusOK {
		// The agent answers refusals with an envelope; anything else is a
		// failure of the HTTP layer itself.
		if decodeErr == nil && envelope.Error != nil {
			return NewRemoteError(command, envelope.Error)
		}
		return &AgentError{
			Type:    ErrTypeNetwork,
			Command: command,
			Message: fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode),
		}
	}

	if decodeErr != nil {
		return NewParseError(command, "invalid response envelope", decodeErr)
	}
	if envelope.ID != req.ID {
		return NewParseError(command, fmt.Sprintf("response id %q does not match request id %q", envelope.ID, req.ID), nil)
	}

	return decodeResult(command, &envelope, out)
}

// Close is a no-op; HTTPClient holds no connection of its own.
func (c *HTTPClient) Close() error {
	c.HTTPClient.CloseIdleConnections()
	return nil
}
