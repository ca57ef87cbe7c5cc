// Package web provides the service's HTTP surface: health and readiness
// probes, a Prometheus metrics route, the service status endpoint, and debug
// endpoints for poking the event bus.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/BrewBlox/brewblox-service/errors"
	"github.com/BrewBlox/brewblox-service/feature"
	"github.com/BrewBlox/brewblox-service/health"
	"github.com/BrewBlox/brewblox-service/metric"
)

// Bus is the slice of the event bus client the web server needs
type Bus interface {
	Publish(ctx context.Context, topic string, message any) error
	Subscribe(filter string) error
	IsConnected() bool
	Subscriptions() []string
}

// Server is the HTTP server feature
type Server struct {
	serviceName string
	host        string
	port        int
	logger      *slog.Logger

	registry *feature.Registry
	monitor  *health.Monitor
	bus      Bus
	metrics  *metric.Registry

	mu         sync.Mutex
	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener
	routes     map[string]http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts the metrics registry on /metrics
func WithMetrics(metrics *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithBus enables the event bus status and debug endpoints
func WithBus(bus Bus) Option {
	return func(s *Server) {
		s.bus = bus
	}
}

// NewServer creates the web server feature
func NewServer(
	serviceName, host string, port int,
	registry *feature.Registry,
	monitor *health.Monitor,
	opts ...Option,
) *Server {
	s := &Server{
		serviceName: serviceName,
		host:        host,
		port:        port,
		logger:      slog.Default(),
		registry:    registry,
		monitor:     monitor,
		routes:      make(map[string]http.Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the feature name
func (s *Server) Name() string {
	return "web"
}

// Handle registers a service-specific route.
// Must be called before Startup.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[pattern] = handler
}

// Addr returns the bound listen address, or "" before startup
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Startup binds the listen address and starts serving.
// Binding happens here so a taken port fails service startup instead of
// surfacing later as a background log line.
func (s *Server) Startup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Startup", "state check")
	}

	s.mux = http.NewServeMux()
	s.registerSystemEndpoints()
	for pattern, handler := range s.routes {
		s.mux.Handle(pattern, handler)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapFatal(err, "Server", "Startup", "bind listen address")
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Capture server reference before goroutine to avoid race with Shutdown
	server := s.httpServer
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.logger.Info("HTTP server listening", "addr", listener.Addr().String())
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests up to
// the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Server", "Shutdown", "stop HTTP server")
	}
	return nil
}
