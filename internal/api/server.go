package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/bridges/dtu"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/history"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/normalize"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/protocol"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Bridge is the view of the running bridge the API needs.
// *dtu.Bridge satisfies it.
type Bridge interface {
	Submit(ctx context.Context, f protocol.Frame) error
	Stats() dtu.Stats
	LatestBatch() (normalize.Batch, bool)
	HealthStatus() (dtu.HealthStatus, string)
}

// DeviceLister reads the device inventory. *history.DeviceRepository
// satisfies it.
type DeviceLister interface {
	List(ctx context.Context, kind string) ([]history.Device, error)
}

// FailureLister reads recorded publish failures. *history.FailureRepository
// satisfies it.
type FailureLister interface {
	Recent(ctx context.Context, limit int) ([]history.Failure, error)
}

// HealthChecker is implemented by infrastructure clients (MQTT, SQLite,
// InfluxDB).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionChecker reports whether a client is connected.
type ConnectionChecker interface {
	IsConnected() bool
}

// DBStatsProvider exposes connection pool statistics. *database.DB
// satisfies it.
type DBStatsProvider interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Bridge   Bridge

	// AcceptFrames registers POST /api/v1/frames.
	AcceptFrames bool

	// Optional collaborators; nil disables the routes or fields that need
	// them.
	Devices  DeviceLister
	Failures FailureLister
	MQTT     ConnectionChecker
	InfluxDB ConnectionChecker
	Database DBStatsProvider

	// Checks are run by GET /api/v1/health, keyed by component name.
	Checks map[string]HealthChecker

	// Gatherer serves GET /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for the DTU bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	bridge      Bridge
	frames      bool
	devices     DeviceLister
	failures    FailureLister
	mqtt        ConnectionChecker
	influx      ConnectionChecker
	db          DBStatsProvider
	checks      map[string]HealthChecker
	gatherer    prometheus.Gatherer
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()

	addrMu sync.RWMutex
	addr   string
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		bridge:    deps.Bridge,
		frames:    deps.AcceptFrames,
		devices:   deps.Devices,
		failures:  deps.Failures,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		db:        deps.Database,
		checks:    deps.Checks,
		gatherer:  gatherer,
		version:   deps.Version,
		startTime: time.Now(),
	}

	// Use externally-provided hub if available (the bridge also needs it as
	// a sink).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}

	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in a background goroutine. The server
// can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Bind synchronously so a port conflict fails startup.
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.addrMu.Lock()
	s.addr = ln.Addr().String()
	s.addrMu.Unlock()

	s.logger.Info("API server listening", "address", s.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
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
