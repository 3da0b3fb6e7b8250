package agentrpc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Args is the key-value payload of an invocation.
type Args map[string]any

// Request is a single invocation as sent on the wire.
//
//	{"id":"5f0c...","command":"get_state","args":{"data":"logging"}}
type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Args    Args   `json:"args,omitempty"`
}

// Response answers exactly one Request, matched by ID.
// Exactly one of Result or Error is meaningful.
//
//	{"id":"5f0c...","result":true}
//	{"id":"5f0c...","error":{"code":"unknown_data","message":"..."}}
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
}

// RemoteError is the agent's refusal of a request.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes the agent may return.
const (
	CodeUnknownCommand = "unknown_command"
	CodeUnknownData    = "unknown_data"
	CodeBadArgs        = "bad_args"
	CodeInternal       = "internal"
	CodeUnavailable    = "unavailable"
)

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewRequest creates a request with a fresh ID.
func NewRequest(command string, args Args) *Request {
	return &Request{
		ID:      uuid.NewString(),
		Command: command,
		Args:    args,
	}
}

// NewResult builds a successful response for req carrying value.
func NewResult(req *Request, value any) (*Response, error) {
	resp := &Response{ID: req.ID}
	if value == nil {
		return resp, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result for %s: %w", req.Command, err)
	}
	resp.Result = data
	return resp, nil
}

// NewErrorResponse builds a failed response for req.
func NewErrorResponse(req *Request, code, message string) *Response {
	return &Response{
		ID:    req.ID,
		Error: &RemoteError{Code: code, Message: message},
	}
}

// decodeResult copies the response payload into out. A nil out discards the
// result, which is how write commands are invoked.
func decodeResult(command string, resp *Response, out any) error {
	if resp.Error != nil {
		return NewRemoteError(command, resp.Error)
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return NewParseError(command, "response carried no result", nil)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return NewParseError(command, fmt.Sprintf("cannot decode result %s", string(resp.Result)), err)
	}
	return nil
}
