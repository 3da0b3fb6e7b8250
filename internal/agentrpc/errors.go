package agentrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection reset, unreachable host, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the call did not complete in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening at the agent address
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeRemote indicates the agent received the call and refused it
	ErrTypeRemote
	// ErrTypeParse indicates a malformed or unexpected response
	ErrTypeParse
	// ErrTypeClosed indicates the client was closed or lost its connection
	ErrTypeClosed
	// ErrTypeCanceled indicates the caller canceled the call
	ErrTypeCanceled
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeRemote:
		return "Agent Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeClosed:
		return "Connection Closed"
	case ErrTypeCanceled:
		return "Canceled"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// AgentError represents a failed invocation.
type AgentError struct {
	Type    ErrorType // Category of error
	Command string    // Command being invoked (empty for connection-level errors)
	Message string    // Human-readable error message
	Code    string    // Agent error code (ErrTypeRemote only)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *AgentError) Error() string {
	prefix := e.Type.String()
	if e.Command != "" {
		prefix = fmt.Sprintf("%s (%s)", prefix, e.Command)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *AgentError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed AgentError.
func ClassifyNetworkError(command string, err error) *AgentError {
	if err == nil {
		return nil
	}

	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr
	}

	if errors.Is(err, context.Canceled) {
		return &AgentError{Type: ErrTypeCanceled, Command: command, Message: "Call canceled", Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &AgentError{Type: ErrTypeTimeout, Command: command, Message: "Agent did not respond in time", Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &AgentError{
			Type:    ErrTypeDNS,
			Command: command,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:     err,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &AgentError{Type: ErrTypeConnectionRefused, Command: command, Message: "Agent refused connection", Err: err}
	}

	if errors.Is(err, net.ErrClosed) {
		return &AgentError{Type: ErrTypeClosed, Command: command, Message: "Connection closed", Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(command, urlErr.Err)
	}

	return &AgentError{Type: ErrTypeNetwork, Command: command, Message: "Network error occurred", Err: err}
}

// NewRemoteError wraps an agent-side refusal.
func NewRemoteError(command string, remote *RemoteError) *AgentError {
	return &AgentError{
		Type:    ErrTypeRemote,
		Command: command,
		Message: remote.Message,
		Code:    remote.Code,
		Err:     remote,
	}
}

// NewParseError creates a parsing error
func NewParseError(command, message string, err error) *AgentError {
	return &AgentError{Type: ErrTypeParse, Command: command, Message: message, Err: err}
}

// NewClosedError creates an error for calls on a closed or broken client.
func NewClosedError(command string, err error) *AgentError {
	return &AgentError{Type: ErrTypeClosed, Command: command, Message: "Client is closed", Err: err}
}

func typeOf(err error) (ErrorType, bool) {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Type, true
	}
	return ErrTypeUnknown, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS, closed)
func IsNetworkError(err error) bool {
	t, ok := typeOf(err)
	if !ok {
		return false
	}
	return t == ErrTypeNetwork ||
		t == ErrTypeTimeout ||
		t == ErrTypeConnectionRefused ||
		t == ErrTypeDNS ||
		t == ErrTypeClosed
}

// IsRemoteError checks if the agent refused the call
func IsRemoteError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeRemote
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeParse
}

// IsTimeout checks if an error is a timeout
func IsTimeout(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeTimeout
}

// IsClosed checks if the client was closed or lost its connection
func IsClosed(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeClosed
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var agentErr *AgentError
	if !errors.As(err, &agentErr) {
		return err.Error()
	}

	switch agentErr.Type {
	case ErrTypeTimeout:
		return "Agent not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Agent refused connection - is it running?"
	case ErrTypeDNS:
		return "Cannot resolve agent hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeClosed:
		return "Connection to agent lost"
	case ErrTypeCanceled:
		return "Canceled"
	case ErrTypeParse:
		return "Unexpected response from agent"
	case ErrTypeRemote:
		return "Agent rejected request: " + agentErr.Message
	default:
		return agentErr.Message
	}
}
