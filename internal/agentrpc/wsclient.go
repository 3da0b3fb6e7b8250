package agentrpc

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/smartidler/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
)

// WSClient invokes agent commands over a single WebSocket connection.
// Many calls may be in flight at once; responses are matched to callers
// by request ID, in whatever order the agent answers.
type WSClient struct {
	url     string
	timeout time.Duration
	conn    *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan *Response
	closed   bool
	closeErr error

	done chan struct{}
}

// DialWebSocket opens a WebSocket connection to the agent and starts the
// response reader.
func DialWebSocket(ctx context.Context, rawURL string, opts Options) (*WSClient, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, ClassifyNetworkError("", err)
	}
	conn.SetReadLimit(maxResponseSize)

	logging.LogConnection(rawURL, "websocket_connected")

	c := &WSClient{
		url:     rawURL,
		timeout: opts.Timeout,
		conn:    conn,
		pending: make(map[string]chan *Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	return c, nil
}

// URL returns the agent endpoint this client is connected to.
func (c *WSClient) URL() string {
	return c.url
}

// Invoke implements Invoker.
func (c *WSClient) Invoke(ctx context.Context, command string, args Args, out any) error {
	start := time.Now()
	err := c.invoke(ctx, command, args, out)
	logging.LogInvocation(command, args, time.Since(start), err)
	return err
}

func (c *WSClient) invoke(ctx context.Context, command string, args Args, out any) error {
	ctx, cancel := withCallTimeout(ctx, c.timeout)
	defer cancel()

	req := NewRequest(command, args)
	ch := make(chan *Response, 1)

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return NewClosedError(command, err)
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()
	defer c.forget(req.ID)

	if err := c.write(ctx, req); err != nil {
		return ClassifyNetworkError(command, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.closeErr
			c.mu.Unlock()
			return NewClosedError(command, err)
		}
		return decodeResult(command, resp, out)
	case <-ctx.Done():
		return ClassifyNetworkError(command, ctx.Err())
	}
}

func (c *WSClient) write(ctx context.Context, req *Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(req)
}

func (c *WSClient) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// readLoop delivers responses to waiting callers until the connection fails.
func (c *WSClient) readLoop() {
	defer close(c.done)

	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.fail(err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if !ok {
			// Caller gave up (timeout or cancel) before the agent answered
			logging.Debug("Dropping response for unknown request",
				zap.String("id", resp.ID),
				zap.String("url", c.url),
			)
			continue
		}
		ch <- &resp
	}
}

// fail marks the client closed and releases every waiting caller.
func (c *WSClient) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		c.closeErr = err
		logging.Info("WebSocket connection lost",
			zap.String("url", c.url),
			zap.Error(err),
		)
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Close sends a close frame, closes the connection and waits for the reader
// to exit. In-flight calls fail with a Closed error.
func (c *WSClient) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.closeErr = net.ErrClosed
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done

	logging.LogConnection(c.url, "websocket_closed")
	return err
}
