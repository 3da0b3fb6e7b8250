package agentrpc

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single invocation.
	DefaultTimeout = 10 * time.Second

	// DefaultHandshakeTimeout bounds the WebSocket handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// maxResponseSize caps a single response body or message.
	maxResponseSize = 1 << 20
)

// Transport names accepted by Dial.
const (
	TransportWebSocket = "ws"
	TransportHTTP      = "http"
)

// Invoker performs named remote invocations against the agent.
//
// Invoke sends command with args and decodes the single returned value into
// out. Pass a nil out for commands that return nothing. Every failure is
// reported through the returned error; there are no silent fire-and-forget
// calls.
type Invoker interface {
	Invoke(ctx context.Context, command string, args Args, out any) error
}

// Client is an Invoker holding a connection that must be released.
type Client interface {
	Invoker
	Close() error
}

// Options configures invocation clients.
type Options struct {
	// Timeout bounds each invocation. Zero disables the per-call bound
	// (the caller's context still applies).
	Timeout time.Duration

	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration
}

// DefaultOptions returns sensible client defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:          DefaultTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// Dial connects to the agent at rawURL. transport may be empty, in which
// case it is inferred from the URL scheme (ws/wss or http/https).
func Dial(ctx context.Context, transport, rawURL string, opts Options) (Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid agent URL %q: %w", rawURL, err)
	}

	if transport == "" {
		transport, err = TransportForScheme(u.Scheme)
		if err != nil {
			return nil, err
		}
	}

	switch transport {
	case TransportWebSocket:
		return DialWebSocket(ctx, rawURL, opts)
	case TransportHTTP:
		return NewHTTPClient(rawURL, opts), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q (expected %q or %q)", transport, TransportWebSocket, TransportHTTP)
	}
}

// TransportForScheme maps a URL scheme to a transport name.
func TransportForScheme(scheme string) (string, error) {
	switch strings.ToLower(scheme) {
	case "ws", "wss":
		return TransportWebSocket, nil
	case "http", "https":
		return TransportHTTP, nil
	default:
		return "", fmt.Errorf("cannot infer transport from scheme %q", scheme)
	}
}

func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
