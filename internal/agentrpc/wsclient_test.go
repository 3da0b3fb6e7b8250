package agentrpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWSServer starts a WebSocket endpoint whose connections are served by
// handle and returns its ws:// URL.
func newWSServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		handle(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// answer is a tiny stand-in agent.
func answer(req *Request) *Response {
	var resp *Response
	var err error
	switch req.Command {
	case CmdGetState:
		resp, err = NewResult(req, true)
	case CmdGetData:
		resp, err = NewResult(req, req.Args[ArgData])
	case CmdSetForceInterval:
		resp, err = NewResult(req, nil)
	default:
		return NewErrorResponse(req, CodeUnknownCommand, "unknown command "+req.Command)
	}
	if err != nil {
		return NewErrorResponse(req, CodeInternal, err.Error())
	}
	return resp
}

func serveAnswers(conn *websocket.Conn) {
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if err := conn.WriteJSON(answer(&req)); err != nil {
			return
		}
	}
}

// swallow reads requests and never answers.
func swallow(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func dialTest(t *testing.T, url string, opts Options) *WSClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := DialWebSocket(ctx, url, opts)
	require.NoError(t, err)
	return c
}

func TestWSClientRoundTrip(t *testing.T) {
	url := newWSServer(t, serveAnswers)
	c := dialTest(t, url, DefaultOptions())
	defer func() { _ = c.Close() }()

	ctx := context.Background()

	var enabled bool
	require.NoError(t, c.Invoke(ctx, CmdGetState, Args{ArgData: "logging"}, &enabled))
	assert.True(t, enabled)

	var value string
	require.NoError(t, c.Invoke(ctx, CmdGetData, Args{ArgData: DataForceInterval}, &value))
	assert.Equal(t, DataForceInterval, value)

	// Write commands return nothing
	require.NoError(t, c.Invoke(ctx, CmdSetForceInterval, Args{ArgInterval: "120"}, nil))
}

func TestWSClientRemoteError(t *testing.T) {
	url := newWSServer(t, serveAnswers)
	c := dialTest(t, url, DefaultOptions())
	defer func() { _ = c.Close() }()

	err := c.Invoke(context.Background(), "no_such_command", nil, nil)
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))

	var agentErr *AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, CodeUnknownCommand, agentErr.Code)
	assert.Equal(t, "no_such_command", agentErr.Command)
}

func TestWSClientParseError(t *testing.T) {
	url := newWSServer(t, serveAnswers)
	c := dialTest(t, url, DefaultOptions())
	defer func() { _ = c.Close() }()

	// get_state answers a bool; decoding into an int must fail cleanly
	var n int
	err := c.Invoke(context.Background(), CmdGetState, Args{ArgData: "logging"}, &n)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestWSClientCorrelatesOutOfOrderResponses(t *testing.T) {
	const calls = 8

	url := newWSServer(t, func(conn *websocket.Conn) {
		// Collect every request, then answer newest first
		reqs := make([]Request, 0, calls)
		for len(reqs) < calls {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			reqs = append(reqs, req)
		}
		for i := len(reqs) - 1; i >= 0; i-- {
			if err := conn.WriteJSON(answer(&reqs[i])); err != nil {
				return
			}
		}
		swallow(conn)
	})
	c := dialTest(t, url, DefaultOptions())
	defer func() { _ = c.Close() }()

	var wg sync.WaitGroup
	results := make([]string, calls)
	errs := make([]error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			errs[i] = c.Invoke(context.Background(), CmdGetData, Args{ArgData: name}, &results[i])
		}(i)
	}
	wg.Wait()

	for i := 0; i < calls; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, string(rune('a'+i)), results[i])
	}
}

func TestWSClientTimeout(t *testing.T) {
	url := newWSServer(t, swallow)
	c := dialTest(t, url, Options{Timeout: 50 * time.Millisecond})
	defer func() { _ = c.Close() }()

	err := c.Invoke(context.Background(), CmdGetState, Args{ArgData: "logging"}, new(bool))
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestWSClientContextCancel(t *testing.T) {
	url := newWSServer(t, swallow)
	c := dialTest(t, url, Options{})
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.Invoke(ctx, CmdGetState, Args{ArgData: "logging"}, new(bool))
	require.Error(t, err)

	var agentErr *AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, ErrTypeCanceled, agentErr.Type)
}

func TestWSClientConnectionLossFailsPendingCalls(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		// Take one request and hang up without answering
		_, _, _ = conn.ReadMessage()
	})
	c := dialTest(t, url, Options{})
	defer func() { _ = c.Close() }()

	err := c.Invoke(context.Background(), CmdGetState, Args{ArgData: "logging"}, new(bool))
	require.Error(t, err)
	assert.True(t, IsClosed(err), "got %v", err)

	// The client stays closed
	err = c.Invoke(context.Background(), CmdGetState, Args{ArgData: "logging"}, new(bool))
	assert.True(t, IsClosed(err), "got %v", err)
}

func TestWSClientInvokeAfterClose(t *testing.T) {
	url := newWSServer(t, serveAnswers)
	c := dialTest(t, url, DefaultOptions())
	require.NoError(t, c.Close())

	err := c.Invoke(context.Background(), CmdGetState, Args{ArgData: "logging"}, new(bool))
	assert.True(t, IsClosed(err), "got %v", err)
}

func TestDialWebSocketRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := DialWebSocket(context.Background(), url, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err), "got %v", err)
}
