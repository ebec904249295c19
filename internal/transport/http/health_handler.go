package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "watchlens/internal/errors"
	"watchlens/internal/services"
	v1 "watchlens/pkg/contracts/api/v1"
)

// HealthHandler serves the health, readiness and liveness probes plus
// the version and system stats endpoints.
type HealthHandler struct {
	service      *services.HealthService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(service *services.HealthService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "health")),
		errorHandler: errorHandler,
	}
}

// Routes returns the router for the health endpoints.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.HealthCheck)
	r.Get("/ready", h.ReadinessCheck)
	r.Get("/live", h.LivenessCheck)

	return r
}

// HealthCheck handles GET /api/health. verbose=true adds runtime and
// storage detail. An unhealthy report answers 503 so probes and load
// balancers treat it as a failing instance.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	req := v1.HealthCheckRequest{Verbose: r.URL.Query().Get("verbose") == "true"}

	check := h.service.HealthCheck
	if req.Verbose {
		check = h.service.GetDetailedHealth
	}

	status, err := check(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if status.Status == "unhealthy" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

// ReadinessCheck handles GET /api/health/ready. A server with no built
// dataset is still ready; readiness only says the process can serve and
// run builds.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ready, checks := h.service.ReadinessCheck(r.Context())
	if !ready {
		render.Status(r, http.StatusServiceUnavailable)
	}

	render.JSON(w, r, map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}

// LivenessCheck handles GET /api/health/live.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.LivenessCheck(r.Context()))
}

// Version handles GET /api/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version(r.Context()))
}

// SystemStats handles GET /api/stats.
func (h *HealthHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SystemStats(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}
