package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"watchlens/internal/config"
	apierrors "watchlens/internal/errors"
	"watchlens/internal/infrastructure"
	customMiddleware "watchlens/internal/middleware"
	"watchlens/internal/services"
	handlers "watchlens/internal/transport/http"
	ws "watchlens/internal/websocket"
	"watchlens/pkg/contracts"
)

// AppName is the product name shown in startup logs.
const AppName = "WatchLens"

// Application wires configuration, services, transport and observability
// into one runnable dashboard server.
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	Hub              *ws.Hub
	DataService      *services.DataService
	OperationService *services.OperationService
	HealthService    *services.HealthService
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.BusinessMetrics
	Pages            fs.FS
}

// NewApplication creates the application from the process environment:
// configuration via WATCHLENS_* env and the optional config.yaml, the
// directory layout rooted at the executable, and the embedded dashboard
// pages.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return NewApplicationWithConfig(cfg, paths, logger, otelProviders)
}

// NewApplicationWithConfig builds the application over explicit
// dependencies. Tests use it to root the whole directory layout in a
// temporary directory and to run without exporters.
func NewApplicationWithConfig(cfg *config.Config, paths *config.Paths, logger *slog.Logger, otelProviders *infrastructure.OTelProviders) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Pages:         resolvePages(paths, logger),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// resolvePages picks the dashboard page filesystem. A web directory
// carrying both pages overrides the embedded copies so deployments can
// patch a page without rebuilding.
func resolvePages(paths *config.Paths, logger *slog.Logger) fs.FS {
	if paths != nil {
		onDisk := true
		for _, name := range []string{"overview.html", "engagement.html"} {
			if !config.FileExists(filepath.Join(paths.WebDir, name)) {
				onDisk = false
				break
			}
		}
		if onDisk {
			logger.Info("Serving dashboard pages from web directory",
				slog.String("web_dir", paths.WebDir))
			return os.DirFS(paths.WebDir)
		}
	}
	return EmbeddedPages()
}

// initializeServices constructs the service graph in dependency order:
// hub first, then the dataset snapshot owner, then the build pipeline
// that publishes into it.
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.Hub = hub

	a.DataService = services.NewDataServiceWithPaths(a.Config, a.Paths, a.Logger)

	operationService, err := services.NewOperationServiceWithPaths(hub, a.DataService, a.Config, a.Paths, a.Logger)
	if err != nil {
		hub.Stop()
		return fmt.Errorf("failed to initialize operation service: %w", err)
	}
	a.OperationService = operationService

	a.HealthService = services.NewHealthService(a.DataService, a.OperationService, hub, a.Paths, a.Logger)

	return nil
}

// setupRouter configures the HTTP router. The WebSocket endpoint stays
// outside the main middleware group: response wrapping breaks the
// upgrade handshake.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Group(func(r chi.Router) {
		if a.OTelProviders != nil && a.OTelProviders.Meter != nil {
			otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
			if err != nil {
				a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
			} else {
				a.Metrics = otelMiddleware.BusinessMetrics()
				a.Hub.SetMetrics(a.Metrics)
				r.Use(otelMiddleware.Handler)
				r.Use(customMiddleware.BusinessMetricsMiddleware(a.Metrics))

				if err := infrastructure.RegisterRuntimeMetrics(a.OTelProviders.Meter, a.Hub.ClientCount); err != nil {
					a.Logger.Error("Failed to register runtime metrics", slog.String("error", err.Error()))
				}
			}
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.corsConfig()))
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.StripSlashes)

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewClientRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		a.setupAPIRoutes(r, errorHandler)
		a.setupPageRoutes(r)
	})

	// Outside the group: Prometheus scrapes should not count against the
	// rate limit or produce request logs.
	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes mounts the JSON and download endpoints. Rebuild
// endpoints get the long operation timeout; everything else answers
// within the read timeout.
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	validationMiddleware := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(validationMiddleware.ValidateRequest)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger, errorHandler)
			r.Mount("/health", healthHandler.Routes())
			r.With(render.SetContentType(render.ContentTypeJSON)).Get("/version", healthHandler.Version)
			r.With(render.SetContentType(render.ContentTypeJSON)).Get("/stats", healthHandler.SystemStats)

			dataHandler := handlers.NewDataHandler(a.DataService, a.Logger, errorHandler)
			r.Mount("/data", dataHandler.Routes())

			exportHandler := handlers.NewExportHandler(a.DataService, a.Logger, errorHandler)
			r.Mount("/export", exportHandler.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))

			operationsHandler := handlers.NewOperationsHandler(a.OperationService, a.Logger, errorHandler)
			r.Mount("/operations", operationsHandler.Routes())
		})
	})
}

// setupPageRoutes serves the two dashboard pages. The root redirects to
// the overview so a freshly opened browser lands somewhere useful.
func (a *Application) setupPageRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/overview", http.StatusTemporaryRedirect)
	})
	r.Get("/overview", handlers.ServeOverviewPage(a.Pages))
	r.Get("/engagement", handlers.ServeEngagementPage(a.Pages))
}

// corsConfig builds the CORS policy from configuration. The embedded
// pages are same-origin; the allowed-origins list exists for a separate
// dev frontend.
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
		Logger:         a.Logger,
	}

	if a.Config.Security.EnableCORS {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
	}
	local := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	if !containsOrigin(cfg.AllowedOrigins, local) {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, local)
	}

	return cfg
}

func containsOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start loads the last published dataset, starts serving and opens the
// browser once the health endpoint answers. The dataset load is the one
// blocking read of startup; a missing dataset is not an error.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port))

	if err := a.DataService.LoadFromDisk(ctx); err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.startupCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup check warnings", slog.String("warnings", err.Error()))
	}

	url := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", url),
		slog.Int("dataset_rows", a.DataService.RowCount()))

	go a.openBrowserWhenReady(ctx, url)

	return nil
}

// openBrowserWhenReady polls the health endpoint and opens the default
// browser once the server answers. Failing to open a browser is not an
// error; the address is printed instead.
func (a *Application) openBrowserWhenReady(ctx context.Context, url string) {
	healthURL := url + "/api/health/live"

	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resp, err := http.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				if err := openBrowser(url); err != nil {
					a.Logger.Warn("Could not open browser",
						slog.String("url", url),
						slog.String("error", err.Error()))
					fmt.Printf("\n%s is running. Open your browser at %s\n\n", AppName, url)
				}
				return
			}
		}

		time.Sleep(500 * time.Millisecond)
	}

	a.Logger.Warn("Server did not become ready for browser opening", slog.String("url", url))
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.OperationService.Stop()
	a.Hub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and hands it to the hub. The
// dashboards only listen, so inbound frames beyond heartbeats are
// ignored by the client pump.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := customMiddleware.GetRequestID(r.Context())
	if reqID == "" {
		reqID = infrastructure.GenerateTraceID()
	}
	ctx := infrastructure.WithTraceID(r.Context(), reqID)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Same-origin requests from some clients omit the header.
			if origin == "" {
				return true
			}
			if containsOrigin(a.corsConfig().AllowedOrigins, origin) {
				return true
			}
			a.Logger.WarnContext(ctx, "WebSocket origin rejected", slog.String("origin", origin))
			return false
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	ws.ServeWS(a.Hub, conn, reqID, a.Logger)
}

// startupCheck verifies the directories the server writes to. Warnings
// do not stop startup; a read-only processed directory only breaks
// rebuilds, not serving.
func (a *Application) startupCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"raw":       a.Paths.RawDir,
		"processed": a.Paths.ProcessedDir,
		"exports":   a.Paths.ExportsDir,
		"logs":      a.Paths.LogsDir,
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(testFile)
	}

	if len(warnings) > 0 {
		return fmt.Errorf("%s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup check passed")
	return nil
}

// openBrowser opens the default browser to the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
