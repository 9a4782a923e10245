package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
)

// DefaultMaxConnections bounds concurrent connections per port when Config leaves it unset
const DefaultMaxConnections = 64

// Config holds the listener configuration
type Config struct {
	Host           string
	Ports          []int
	MaxConnections int // per port
}

// Server accepts logger connections on several ports. Every port gets its
// own listener and accept loop; every connection gets its own goroutine.
type Server struct {
	config    *Config
	handler   *Handler
	started   atomic.Int64 // unix nanos, set by Serve
	listeners []net.Listener
	wg        sync.WaitGroup

	mu          sync.Mutex
	activeConns map[string]net.Conn
	closing     bool
}

// New creates a new Server instance
func New(config *Config, handler *Handler) (*Server, error) {
	if len(config.Ports) == 0 {
		return nil, fmt.Errorf("no ports configured")
	}
	if handler == nil || handler.Sink == nil {
		return nil, fmt.Errorf("handler with a sink is required")
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = DefaultMaxConnections
	}
	handler.setDefaults()

	return &Server{
		config:      config,
		handler:     handler,
		activeConns: make(map[string]net.Conn),
	}, nil
}

// Listen binds one listener per configured port. A port that cannot be
// bound is logged and skipped; Listen fails only if no port could be bound.
func (s *Server) Listen() error {
	for _, port := range s.config.Ports {
		addr := net.JoinHostPort(s.config.Host, strconv.Itoa(port))

		l, err := net.Listen("tcp", addr)
		if err != nil {
			logging.Error("Failed to bind port",
				zap.String("addr", addr),
				zap.Error(err),
			)
			continue
		}

		s.listeners = append(s.listeners, netutil.LimitListener(l, s.config.MaxConnections))
		logging.Info("Listening for logger connections",
			zap.String("addr", l.Addr().String()),
			zap.String("station", s.handler.Stations(port)),
			zap.Int("max_connections", s.config.MaxConnections),
		)
	}

	if len(s.listeners) == 0 {
		return fmt.Errorf("failed to bind any of the ports %v", s.config.Ports)
	}

	s.handler.Metrics.ListenersUp.Set(float64(len(s.listeners)))
	return nil
}

// Addrs returns the addresses of the bound listeners
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, len(s.listeners))
	for i, l := range s.listeners {
		addrs[i] = l.Addr()
	}
	return addrs
}

// Start binds the listeners and serves until ctx is cancelled or SIGINT or
// SIGTERM is received, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the accept loops of listeners bound by Listen and blocks until
// ctx is cancelled or a shutdown signal arrives.
func (s *Server) Serve(ctx context.Context) error {
	s.started.Store(time.Now().UnixNano())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, l := range s.listeners {
		s.wg.Add(1)
		go func(l net.Listener) {
			defer s.wg.Done()
			s.acceptConnections(ctx, l)
		}(l)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return s.Shutdown(shutdownCtx)
}

// acceptConnections accepts connections until the listener is closed
func (s *Server) acceptConnections(ctx context.Context, l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.isClosing() {
				return
			}
			logging.Error("Failed to accept connection",
				zap.String("addr", l.Addr().String()),
				zap.Error(err),
			)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection tracks the connection and runs the handler on it. A
// panic is confined to this connection.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Connection handler panicked",
				zap.String("remote_addr", remoteAddr),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
	}()

	_ = s.handler.Handle(ctx, conn)
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	// Close listeners to stop accepting new connections
	for _, l := range s.listeners {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}
	s.handler.Metrics.ListenersUp.Set(0)

	// Close all active connections
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	// Wait for all goroutines to finish with timeout
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
	}

	logging.Sync()

	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Uptime returns the time since Serve started
func (s *Server) Uptime() time.Duration {
	started := s.started.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}
