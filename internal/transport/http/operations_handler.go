package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "watchlens/internal/errors"
	"watchlens/internal/middleware"
	"watchlens/internal/operations"
	v1 "watchlens/pkg/contracts/api/v1"
)

// OperationsHandler exposes the build pipeline over HTTP: trigger a
// rebuild, poll its progress, cancel it. Live progress additionally
// streams over the WebSocket hub; these endpoints are the polling
// fallback and the dashboard's initial state.
type OperationsHandler struct {
	service      BuildService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewOperationsHandler creates a new operations handler.
func NewOperationsHandler(service BuildService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *OperationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "operations")),
		errorHandler: errorHandler,
	}
}

// Routes returns the router for operation endpoints.
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/rebuild", h.StartRebuild)
	r.Get("/", h.ListOperations)
	r.Get("/{id}", h.GetOperationStatus)
	r.Post("/{id}/cancel", h.CancelOperation)

	return r
}

// rebuildPayload wraps the wire contract with render.Binder validation.
type rebuildPayload struct {
	v1.RebuildRequest
}

// Bind implements render.Binder.
func (p *rebuildPayload) Bind(r *http.Request) error {
	for _, name := range p.Files {
		if strings.TrimSpace(name) == "" {
			return errors.New("files entries must not be empty")
		}
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("file name %q must not contain path separators", name)
		}
	}
	return nil
}

// StartRebuild handles POST /api/operations/rebuild. The build runs in
// the background; the response carries the operation ID to poll or to
// match against WebSocket snapshots. An empty body rebuilds everything.
func (h *OperationsHandler) StartRebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.start_rebuild",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/rebuild"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	payload := &rebuildPayload{}
	if r.ContentLength != 0 {
		if err := render.Bind(r, payload); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "request_validation"))

			h.logger.ErrorContext(ctx, "rebuild request rejected",
				slog.String("request_id", reqID),
				slog.String("error", err.Error()))

			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusBadRequest, "VALIDATION_FAILED", err.Error()))
			return
		}
	}

	id, err := h.service.StartRebuild(ctx, payload.RebuildRequest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebuild not started")
		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("operation.id", id),
		attribute.Bool("operation.force", payload.Force),
		attribute.Int("operation.files", len(payload.Files)),
	)
	h.logger.InfoContext(ctx, "rebuild accepted",
		slog.String("operation_id", id),
		slog.String("request_id", reqID),
		slog.Bool("force", payload.Force),
		slog.Int("files", len(payload.Files)))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"status":       "accepted",
		"operation_id": id,
		"message":      "Dataset build started",
		"poll_url":     "/api/operations/" + id,
	})
}

// ListOperations handles GET /api/operations.
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	snapshots := h.service.List()
	if snapshots == nil {
		snapshots = []*operations.OperationSnapshot{}
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snapshots,
		"count":  len(snapshots),
	})
}

// GetOperationStatus handles GET /api/operations/{id}.
func (h *OperationsHandler) GetOperationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snapshot, err := h.service.Status(id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snapshot,
	})
}

// CancelOperation handles POST /api/operations/{id}/cancel. Cancelling
// an operation that already finished is a conflict, not a success.
func (h *OperationsHandler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.Cancel(id); err != nil {
		if errors.Is(err, operations.ErrOperationNotRunning) {
			err = apierrors.New(http.StatusConflict, "OPERATION_NOT_RUNNING",
				fmt.Sprintf("operation %s has already finished", id))
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "operation cancellation requested",
		slog.String("operation_id", id),
		slog.String("request_id", middleware.GetReqID(ctx)))

	render.JSON(w, r, map[string]interface{}{
		"status":       "success",
		"operation_id": id,
		"message":      "Cancellation requested",
	})
}
