package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"attendcli/internal/config"
	"attendcli/internal/errors"
	"attendcli/internal/infrastructure"
	customMiddleware "attendcli/internal/middleware"
	"attendcli/internal/services"
	handlers "attendcli/internal/transport/http"
	ws "attendcli/internal/websocket"
	"attendcli/pkg/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

const (
	VERSION  = "v" + contracts.Version
	REPO_URL = "https://github.com/attendsys/attendcli"
	AppName  = "Attendance Deduction Engine"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	// Generate a deterministic build ID based on version and time
	h := sha256.New()
	h.Write([]byte(VERSION))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config            *config.Config
	Router            *chi.Mux
	Server            *http.Server
	WebSocketHub      *ws.Hub
	AttendanceService *services.AttendanceService
	HealthService     *services.HealthService
	Logger            *slog.Logger
	OTelProviders     *infrastructure.OTelProviders
	BusinessMetrics   *infrastructure.BusinessMetrics
	SystemMetrics     *infrastructure.SystemMetricsCollector
}

// systemMetricsInterval is how often runtime gauges are refreshed.
const systemMetricsInterval = time.Minute

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize single infrastructure logger
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Log startup information
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION))

	// Validate and log all paths at startup for debugging
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	// Ensure all required directories exist
	logger.Info("Ensuring required directories exist")
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	// Log all resolved paths at startup for debugging
	paths.LogPathResolution()

	// Initialize OpenTelemetry
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Initialize WebSocket OpenTelemetry metrics
	if err := ws.InitOTelMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize WebSocket OpenTelemetry metrics: %w", err)
	}

	// Create application
	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	// Initialize services in order
	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Setup router
	app.setupRouter()

	// Create HTTP server
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	// Initialize WebSocket hub
	hub := ws.NewHub(a.Logger)
	hub.Start() // Start the hub's goroutines
	a.WebSocketHub = hub

	// Business metrics are shared by the HTTP middleware and the attendance service
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.BusinessMetrics = metrics

	// Runtime gauges land on /metrics through the Prometheus bridge
	systemMetrics, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, systemMetricsInterval)
	if err != nil {
		return fmt.Errorf("failed to create system metrics collector: %w", err)
	}
	a.SystemMetrics = systemMetrics

	// Initialize attendance service with injected logger
	attendanceService, err := services.NewAttendanceServiceWithLogger(a.Config, hub, metrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize attendance service: %w", err)
	}
	a.AttendanceService = attendanceService

	// Initialize health service with injected logger
	a.HealthService = services.NewHealthServiceWithBuildInfo(
		VERSION,
		REPO_URL,
		BuildTime,
		BuildID,
		a.Config,
		a.WebSocketHub,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Apply MINIMAL middleware that won't interfere with WebSocket
	// These are safe because they don't wrap the ResponseWriter
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	// Unmatched routes answer with problem documents instead of chi's
	// plain-text defaults
	errorHandler := errors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// WebSocket route with minimal middleware and tracing
	// MUST be registered after minimal middleware but before the group
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Create a route group for everything else with FULL middleware
	r.Group(func(r chi.Router) {
		// Group order: OTel, business metrics, logger, recoverer, security
		// headers, CORS, rate limiter. Timeouts are applied per route group.

		// OpenTelemetry middleware for tracing and metrics
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		// Business metrics middleware
		r.Use(customMiddleware.BusinessMetricsMiddleware(a.BusinessMetrics))

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		// NOTE: Timeout middleware applied per route group below so uploads can run longer

		secureHeaders := customMiddleware.DefaultSecureHeaders()
		secureHeaders.DevMode = a.isDevelopmentMode()
		r.Use(secureHeaders.Handler)

		// CORS middleware
		corsConfig := a.getCORSConfig()
		r.Use(customMiddleware.CORS(corsConfig))

		// Rate limiting
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		// Now register all API routes within this group
		a.setupAPIRoutes(r)
	})

	// Add Prometheus metrics endpoint (outside the middleware group for performance)
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	// API routes with common middleware
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Compress(5))

		// Apply standard timeout to most API endpoints
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			// Health handler
			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)
		})

		// Attendance endpoints with longer timeout for report processing
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Processing.UploadTimeout, a.Logger))
			r.Use(customMiddleware.AuditLog(a.Logger))

			errorHandler := errors.NewErrorHandler(a.Logger, false)
			attendanceHandler := handlers.NewAttendanceHandler(
				a.AttendanceService,
				a.Config.Processing.MaxUploadBytes,
				a.Logger,
				errorHandler,
			)
			r.Mount("/attendance", attendanceHandler.Routes())
		})
	})
}

// getCORSConfig returns CORS configuration based on environment
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	// Detect environment
	isDevelopment := a.isDevelopmentMode()

	config := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	if isDevelopment {
		// Development mode: allow local dashboards and tooling
		config.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}
		a.Logger.Info("CORS configured for development mode",
			slog.Any("allowed_origins", config.AllowedOrigins))
	} else {
		// Production mode: only allow same origin
		config.AllowedOrigins = []string{
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}

		// Add any configured origins
		if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
			config.AllowedOrigins = append(config.AllowedOrigins, a.Config.Security.AllowedOrigins...)
		}

		a.Logger.Info("CORS configured for production mode",
			slog.Any("allowed_origins", config.AllowedOrigins))
	}

	return config
}

// isDevelopmentMode detects if we're running in development mode
func (a *Application) isDevelopmentMode() bool {
	if env := os.Getenv("GO_ENV"); env == "development" {
		return true
	}
	return a.Config.Logging.Development
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	// Log important paths for debugging
	paths, _ := config.GetPaths()
	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("executable_dir", paths.ExecutableDir),
		slog.String("data_dir", paths.DataDir),
		slog.String("uploads_dir", paths.UploadsDir),
		slog.String("results_dir", paths.ResultsDir),
		slog.String("logs_dir", paths.LogsDir))

	// Start server
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	go a.SystemMetrics.Start(ctx)

	// Perform health check on critical paths
	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	// Announce shutdown before the hub closes client channels
	a.WebSocketHub.BroadcastStatus("shutting_down", "Server is shutting down")

	// Stop server
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Stop background services
	a.WebSocketHub.Stop()
	a.SystemMetrics.Stop()

	// Shutdown OpenTelemetry providers
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")

	// Last step, nothing may log after this
	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start application
	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	// Wait for interrupt
	<-sigChan
	a.Logger.InfoContext(ctx, "Received interrupt signal")

	// Graceful shutdown
	return a.Stop(ctx)
}

// handleWebSocket handles WebSocket connections
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Extract any available request ID (might not have middleware)
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("host", r.Host))

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Allow if no origin (local tooling or same-origin request)
			if origin == "" {
				return true
			}

			// In development mode, be more permissive
			if a.isDevelopmentMode() {
				return true
			}

			// In production, validate against allowed origins
			corsConfig := a.getCORSConfig()
			for _, allowed := range corsConfig.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}

			a.Logger.WarnContext(ctx, "WebSocket origin check - origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", corsConfig.AllowedOrigins))
			return false
		},
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			errors.WriteError(w, errors.New(status, "WEBSOCKET_UPGRADE_FAILED", reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	// Create a new client with trace ID and register with hub
	client := ws.NewClientWithTrace(a.WebSocketHub, conn, reqID, a.Logger)
	a.WebSocketHub.Register(client)

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	// Start client goroutines with proper error handling
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.Logger.ErrorContext(ctx, "WebSocket write pump panic",
					slog.Any("panic", r),
					slog.String("request_id", reqID))
			}
		}()
		client.WritePump()
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.Logger.ErrorContext(ctx, "WebSocket read pump panic",
					slog.Any("panic", r),
					slog.String("request_id", reqID))
			}
		}()
		client.ReadPump()
	}()
}

// performStartupHealthCheck performs health checks on critical paths and resources
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	var warnings []string

	// Check critical directories are writable
	directories := map[string]string{
		"Data":    paths.DataDir,
		"Uploads": paths.UploadsDir,
		"Results": paths.ResultsDir,
		"Reports": paths.ReportsDir,
		"Logs":    paths.LogsDir,
	}

	for name, dir := range directories {
		// Try to create a test file to verify write access
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			// Clean up test file
			os.Remove(testFile)
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
