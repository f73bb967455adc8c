// Package api binds the engine's Submission API and Plugin administration
// API (§6) onto HTTP, adapted from the teacher's pkg/server: the same JSON
// envelope conventions (writeJSONResponse/writeErrorResponse), the same
// logging/recovery/CORS middleware chain, and the same health/metrics
// endpoint shape, generalized from a single hardcoded workflow-execute
// handler into the full save/list/load/delete/execute-by-id surface plus
// plugin administration and environment-capability reporting this module
// adds. This HTTP binding is a demonstration of the interfaces named in
// §6, not itself part of the engine's specified core.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/envcheck"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/plugin"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/storage"
	"github.com/flowkit/engine/internal/telemetry"
)

// Config holds HTTP server configuration, independent of the engine
// configuration governing workflow execution itself.
type Config struct {
	Address            string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	EnableCORS         bool
}

// DefaultConfig returns sane defaults for local/standalone operation.
func DefaultConfig() Config {
	return Config{
		Address:            ":8080",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024,
		EnableCORS:         true,
	}
}

// Server is the HTTP binding over the engine's core packages.
type Server struct {
	cfg        Config
	engineCfg  *config.Config
	httpServer *http.Server

	reg       *registry.Registry
	executor  *engine.Executor
	store     storage.Store
	pluginMgr *plugin.Manager
	envReg    *envcheck.Registry
	telemetry *telemetry.Provider
	logger    *logging.Logger
	startedAt time.Time
}

// New wires every collaborator into a Server and builds its route table.
// Any of pluginMgr/envReg/tel may be nil. The pluginMgr and envReg routes
// then report 503 rather than panicking; with a nil tel, /metrics is served
// by the default Prometheus handler.
func New(
	cfg Config,
	engineCfg *config.Config,
	reg *registry.Registry,
	store storage.Store,
	pluginMgr *plugin.Manager,
	envReg *envcheck.Registry,
	tel *telemetry.Provider,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	if store == nil {
		store = storage.NewInMemoryStore()
	}

	s := &Server{
		cfg:       cfg,
		engineCfg: engineCfg,
		reg:       reg,
		executor:  engine.New(reg, engineCfg, logger),
		store:     store,
		pluginMgr: pluginMgr,
		envReg:    envReg,
		telemetry: tel,
		logger:    logger,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.chain(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the fully wrapped handler, e.g. for httptest.Server.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)

	if s.telemetry != nil {
		mux.Handle("/metrics", s.telemetry.Handler())
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/api/v1/workflow/execute", s.handleExecuteWorkflow)
	mux.HandleFunc("/api/v1/workflow/validate", s.handleValidateWorkflow)
	mux.HandleFunc("/api/v1/workflow/save", s.handleSaveWorkflow)
	mux.HandleFunc("/api/v1/workflow/list", s.handleListWorkflows)
	mux.HandleFunc("/api/v1/workflow/load/", s.handleLoadWorkflow)
	mux.HandleFunc("/api/v1/workflow/delete/", s.handleDeleteWorkflow)
	mux.HandleFunc("/api/v1/workflow/execute/", s.handleExecuteStoredWorkflow)

	mux.HandleFunc("/api/v1/plugins", s.handleListPlugins)
	mux.HandleFunc("/api/v1/plugins/install", s.handleInstallPlugin)
	mux.HandleFunc("/api/v1/plugins/disable", s.handleDisablePlugin)
	mux.HandleFunc("/api/v1/plugins/install-missing", s.handleInstallMissingNodes)

	mux.HandleFunc("/api/v1/envcheck", s.handleEnvCheck)
	mux.HandleFunc("/api/v1/envcheck/install/", s.handleEnvCheckInstall)
}

// chain applies the middleware stack: CORS (optional), request logging,
// panic recovery, request body size limiting.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.sizeLimitMiddleware(h)
	h = s.recoveryMiddleware(h)
	h = s.loggingMiddleware(h)
	if s.cfg.EnableCORS {
		h = s.corsMiddleware(h)
	}
	return h
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.WithField("address", s.cfg.Address).Info("starting api server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and its telemetry provider.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down api server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			return fmt.Errorf("api: telemetry shutdown: %w", err)
		}
	}
	return nil
}
