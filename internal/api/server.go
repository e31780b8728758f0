package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/automation"
	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
	"github.com/austin-smith/fusion-bridge-sub003/internal/deviceactions"
	"github.com/austin-smith/fusion-bridge-sub003/internal/eventstore"
	"github.com/austin-smith/fusion-bridge-sub003/internal/infrastructure/config"
	"github.com/austin-smith/fusion-bridge-sub003/internal/infrastructure/logging"
	"github.com/austin-smith/fusion-bridge-sub003/internal/location"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger

	Devices    *device.Registry  // cached device reads
	DeviceRepo device.Repository // device CRUD

	Connectors  connector.Repository
	Locations   location.Repository
	Automations *automation.Registry

	// DeviceActions routes state-change requests to per-vendor handlers.
	// Optional; without it PUT /devices/{id}/state returns 503.
	DeviceActions *deviceactions.Service

	// Events serves the event history query endpoint. Optional.
	Events eventstore.Store

	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for Fusion Bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	logger        *logging.Logger
	devices       *device.Registry
	deviceRepo    device.Repository
	connectors    connector.Repository
	locations     location.Repository
	automations   *automation.Registry
	deviceActions *deviceactions.Service
	events        eventstore.Store
	version       string
	server        *http.Server
	hub           *Hub
	externalHub   bool               // true if hub was injected externally
	cancel        context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registries)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.DeviceRepo == nil {
		return nil, fmt.Errorf("device repository is required")
	}
	if deps.Connectors == nil {
		return nil, fmt.Errorf("connector repository is required")
	}
	if deps.Automations == nil {
		return nil, fmt.Errorf("automation registry is required")
	}

	s := &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        deps.Logger,
		devices:       deps.Devices,
		deviceRepo:    deps.DeviceRepo,
		connectors:    deps.Connectors,
		locations:     deps.Locations,
		automations:   deps.Automations,
		deviceActions: deps.DeviceActions,
		events:        deps.Events,
		version:       deps.Version,
	}

	// Use externally-provided hub if available (needed when the event
	// pipeline also requires the hub for WebSocket broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub, creating it lazily if Start() has not
// run yet. The pipeline uses this to broadcast standardized events.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
