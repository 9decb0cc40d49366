package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/AgentOS/webterm/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/webterm/internal/providers/shell"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	store    *terminal.Store
	provider *shell.Provider
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	registry *prometheus.Registry
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing terminal server",
		zap.String("port", cfg.Server.Port),
		zap.String("shell", cfg.Terminal.Shell),
		zap.String("agent_command", cfg.Terminal.AgentCommand),
	)

	// Metrics live on their own registry so /metrics only shows this process.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)
	logger.Info("Performance monitoring initialized")

	tracer := tracing.New("webterm", logger.Component("tracing"))
	logger.Info("Request tracing initialized")

	// Shell runtime boots in the background; attaches wait for it.
	provider := shell.NewProvider(shell.Config{
		Shell:      cfg.Terminal.Shell,
		WorkingDir: cfg.Terminal.WorkingDir,
		Cols:       cfg.Terminal.Cols,
		Rows:       cfg.Terminal.Rows,

		SpawnFailureThreshold: cfg.Terminal.SpawnFailureThreshold,
		SpawnCooldown:         cfg.Terminal.SpawnCooldown,
	}, logger.Component("shell"))
	provider.Start()

	store := terminal.NewStore(provider, logger.Component("terminal"), terminal.Options{
		AgentCommand: cfg.Terminal.AgentCommand,
		AgentStartup: cfg.Terminal.AgentStartup,
	}).WithMetrics(metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("global", cfg.RateLimit.Global),
		)
		limits := middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}
		if cfg.RateLimit.Global {
			router.Use(middleware.GlobalRateLimit(limits))
		} else {
			router.Use(middleware.RateLimit(limits))
		}
	}

	handlers := api.NewHandlers(store, metrics, logger.Component("http"))
	wsHandler := ws.NewHandler(store, metrics, logger.Component("ws"))

	// Register routes
	handlers.Register(router)
	router.GET("/terminals/:id/attach", wsHandler.HandleAttach)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:    store,
		provider: provider,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		tracer:   tracer,
		registry: registry,
	}, nil
}

// Router exposes the configured gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Store returns the terminal session registry
func (s *Server) Store() *terminal.Store {
	return s.store
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		shutdownErr = fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.store.Close()
	s.metrics.Close()
	s.tracer.Close()
	s.logger.Info("Terminal sessions released", zap.Int("sessions", s.store.SessionCount()))

	// Sync logger before exit
	_ = s.logger.Sync()

	return shutdownErr
}
