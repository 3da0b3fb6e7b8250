package agentrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHTTPAgent(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, DefaultOptions())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func invokeHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != InvokePath {
			http.NotFound(w, r)
			return
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := answer(&req)
		if resp.Error != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestNewHTTPClientTrimsInvokePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://127.0.0.1:7420", "http://127.0.0.1:7420"},
		{"http://127.0.0.1:7420/", "http://127.0.0.1:7420"},
		{"http://127.0.0.1:7420/invoke", "http://127.0.0.1:7420"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := NewHTTPClient(tt.in, DefaultOptions())
			if c.BaseURL != tt.want {
				t.Errorf("BaseURL = %s, want %s", c.BaseURL, tt.want)
			}
		})
	}
}

func TestHTTPClientRoundTrip(t *testing.T) {
	c := newHTTPAgent(t, invokeHandler(t))
	ctx := context.Background()

	var enabled bool
	require.NoError(t, c.Invoke(ctx, CmdGetState, Args{ArgData: "startup"}, &enabled))
	assert.True(t, enabled)

	var value string
	require.NoError(t, c.Invoke(ctx, CmdGetData, Args{ArgData: DataRobotInput}, &value))
	assert.Equal(t, DataRobotInput, value)

	require.NoError(t, c.Invoke(ctx, CmdSetForceInterval, Args{ArgInterval: "90"}, nil))
}

func TestHTTPClientRemoteError(t *testing.T) {
	c := newHTTPAgent(t, invokeHandler(t))

	err := c.Invoke(context.Background(), "bogus", nil, nil)
	require.Error(t, err)
	assert.True(t, IsRemoteError(err), "got %v", err)
}

func TestHTTPClientUnexpectedStatus(t *testing.T) {
	c := newHTTPAgent(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.Invoke(context.Background(), CmdGetState, Args{ArgData: "logging"}, new(bool))
	require.Error(t, err)
	assert.True(t, IsNetworkError(err), "got %v", err)
	assert.False(t, IsRemoteError(err))
}

func TestHTTPClientMismatchedID(t *testing.T) {
	c := newHTTPAgent(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{ID: "someone-else", Result: json.RawMessage(`true`)})
	})

	err := c.Invoke(context.Background(), CmdGetState, Args{ArgData: "logging"}, new(bool))
	require.Error(t, err)
	assert.True(t, IsParseError(err), "got %v", err)
}

func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newHTTPAgent(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.Timeout = 50 * time.Millisecond

	err := c.Invoke(context.Background(), CmdGetState, Args{ArgData: "logging"}, new(bool))
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestDial(t *testing.T) {
	wsURL := newWSServer(t, serveAnswers)

	tests := []struct {
		name      string
		transport string
		url       string
		wantType  string
		wantErr   bool
	}{
		{name: "ws inferred", url: wsURL, wantType: "*agentrpc.WSClient"},
		{name: "http inferred", url: "http://127.0.0.1:1", wantType: "*agentrpc.HTTPClient"},
		{name: "explicit http", transport: TransportHTTP, url: "http://127.0.0.1:1", wantType: "*agentrpc.HTTPClient"},
		{name: "unknown scheme", url: "ftp://127.0.0.1", wantErr: true},
		{name: "unknown transport", transport: "carrier-pigeon", url: "http://127.0.0.1:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Dial(context.Background(), tt.transport, tt.url, DefaultOptions())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { _ = c.Close() }()

			switch c.(type) {
			case *WSClient:
				assert.Equal(t, tt.wantType, "*agentrpc.WSClient")
			case *HTTPClient:
				assert.Equal(t, tt.wantType, "*agentrpc.HTTPClient")
			default:
				t.Fatalf("unexpected client type %T", c)
			}
		})
	}
}
