package agentsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/discovery"
	"github.com/muurk/smartidler/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum request size accepted from a panel
	maxMessageSize = 64 * 1024

	// shutdownTimeout bounds Shutdown when the caller's context has none
	shutdownTimeout = 10 * time.Second
)

// Config holds the simulator's listening and fault-injection settings.
type Config struct {
	Host string
	Port int

	// Latency delays every answer, so the panel's loading states show.
	Latency time.Duration

	// FailRate is the probability, 0 to 1, that a command is refused
	// with an "unavailable" error instead of being executed.
	FailRate float64

	// Advertise registers the agent over mDNS as Instance.
	Advertise bool
	Instance  string

	// Version is published in the mDNS TXT record.
	Version string
}

// Server serves the agent command table over WebSocket (GET /ws) and
// HTTP (POST /invoke).
type Server struct {
	config     *Config
	handler    *Handler
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
	advert     *discovery.Advertisement

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
}

// New creates a Server answering from handler.
func New(config *Config, handler *Handler) *Server {
	s := &Server{
		config:  config,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Panels are terminal programs, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		activeConns: make(map[string]*websocket.Conn),
	}
	s.httpServer = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the HTTP handler with both endpoints mounted.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+discovery.DefaultPath, s.handleWebSocket)
	mux.HandleFunc("POST "+agentrpc.InvokePath, s.handleInvoke)
	return mux
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	logging.Info("Agent simulator listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("latency", s.config.Latency),
		zap.Float64("fail_rate", s.config.FailRate),
	)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		advert, err := discovery.Advertise(s.instanceName(), port, map[string]string{
			discovery.TxtTransport: agentrpc.TransportWebSocket,
			discovery.TxtPath:      discovery.DefaultPath,
			discovery.TxtVersion:   s.config.Version,
		})
		if err != nil {
			_ = listener.Close()
			return err
		}
		s.advert = advert
	}
	return nil
}

func (s *Server) instanceName() string {
	if s.config.Instance != "" {
		return s.config.Instance
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "smartidler-agent"
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start listens and serves until SIGINT/SIGTERM or a serve error.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping agent simulator...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown withdraws the advertisement, stops accepting requests, closes
// open WebSocket sessions and waits for their handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down agent simulator...")

	s.advert.Shutdown()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	// Hijacked connections are invisible to http.Server.Shutdown
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of open WebSocket sessions.
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// answer applies the configured latency and failure rate, then executes req.
func (s *Server) answer(ctx context.Context, req *agentrpc.Request) *agentrpc.Response {
	if s.config.Latency > 0 {
		t := time.NewTimer(s.config.Latency)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return agentrpc.NewErrorResponse(req, agentrpc.CodeUnavailable, "agent is shutting down")
		}
	}

	if s.config.FailRate > 0 && rand.Float64() < s.config.FailRate {
		logging.Debug("Injecting failure", zap.String("command", req.Command))
		return agentrpc.NewErrorResponse(req, agentrpc.CodeUnavailable, "injected failure")
	}

	start := time.Now()
	resp := s.handler.Handle(ctx, req)
	logging.Debug("Command answered",
		zap.String("id", req.ID),
		zap.String("command", req.Command),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", resp.Error == nil),
	)
	return resp
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr
	s.wg.Add(1)
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "websocket_closed")
		s.wg.Done()
	}()

	logging.LogConnection(remoteAddr, "websocket_upgraded")
	s.serveSession(conn, remoteAddr)
}

// serveSession reads requests until the peer goes away. Requests are
// answered concurrently and replies may overtake each other; the panel
// matches them by id.
func (s *Server) serveSession(conn *websocket.Conn, remoteAddr string) {
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		writeMu sync.Mutex
		calls   sync.WaitGroup
	)
	defer func() {
		cancel()
		calls.Wait()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		var req agentrpc.Request
		if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
			logging.Warn("Dropping malformed request",
				zap.String("remote_addr", remoteAddr),
				zap.Int("bytes", len(data)),
			)
			continue
		}

		calls.Add(1)
		go func() {
			defer calls.Done()
			resp := s.answer(ctx, &req)

			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(resp); err != nil {
				logging.Debug("Failed to write response",
					zap.String("remote_addr", remoteAddr),
					zap.String("id", req.ID),
					zap.Error(err),
				)
			}
		}()
	}
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}

	var req agentrpc.Request
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" || req.Command == "" {
		writeEnvelope(w, http.StatusBadRequest,
			agentrpc.NewErrorResponse(&req, agentrpc.CodeBadArgs, "malformed request envelope"))
		return
	}

	resp := s.answer(r.Context(), &req)
	status := http.StatusOK
	if resp.Error != nil {
		status = http.StatusUnprocessableEntity
	}
	writeEnvelope(w, status, resp)
}

func writeEnvelope(w http.ResponseWriter, status int, resp *agentrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}
