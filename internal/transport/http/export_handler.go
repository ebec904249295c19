package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"watchlens/internal/analytics"
	apierrors "watchlens/internal/errors"
	"watchlens/internal/exporter"
	"watchlens/internal/middleware"
	v1 "watchlens/pkg/contracts/api/v1"
	"watchlens/pkg/contracts/domain"
)

// ExportHandler streams CSV downloads of the filtered table and the
// per-video summaries. Downloads honor the same filter grammar as the
// dashboard endpoints, so the exported row count always equals the
// total-views metric shown beside the download button.
type ExportHandler struct {
	service      DataProvider
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler.
func NewExportHandler(service DataProvider, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "export")),
		errorHandler: errorHandler,
	}
}

// Routes returns the router for export endpoints.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/records.csv", h.DownloadRecords)
	r.Get("/summaries.csv", h.DownloadSummaries)
	return r
}

// DownloadRecords handles GET /api/export/records.csv.
func (h *ExportHandler) DownloadRecords(w http.ResponseWriter, r *http.Request) {
	req := v1.ExportRequest{FilterRequest: filterRequestFromQuery(r), Dataset: "records"}

	filter, err := BuildWatchFilter(req.FilterRequest)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	opts, err := exportOptions(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	snap, err := h.service.Snapshot()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	records := analytics.Apply(snap.Records, filter)

	prepareDownload(w, exporter.Filename("watch_records", time.Now()))
	rows, err := exporter.Records(w, records, opts)
	if err != nil {
		// Headers are already on the wire, so the download is lost.
		// Log it; the client sees a truncated body.
		h.logger.ErrorContext(r.Context(), "records export aborted",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		return
	}

	middleware.RecordExportRows(r.Context(), "records", int64(rows))
	h.logger.InfoContext(r.Context(), "records exported",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("rows", rows))
}

// DownloadSummaries handles GET /api/export/summaries.csv. Summary
// exports filter on the summary columns (videos, video_query,
// categories, min_views) and sort by metric, newest board order first.
func (h *ExportHandler) DownloadSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortBy := q.Get("metric")
	if sortBy != "" && !analytics.ValidSummarySort(sortBy) {
		h.errorHandler.HandleError(w, r, invalidParam("metric", sortBy, "is not a sortable column"))
		return
	}
	minViews, err := queryInt(r, "min_views", 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if minViews < 0 {
		h.errorHandler.HandleError(w, r, invalidParam("min_views", q.Get("min_views"), "must not be negative"))
		return
	}
	opts, err := exportOptions(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	snap, err := h.service.Snapshot()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filter := domain.VideoSummaryFilter{
		VideoNames:  splitList(q.Get("videos")),
		NamePattern: q.Get("video_query"),
		Categories:  splitList(q.Get("categories")),
		MinViews:    minViews,
		SortBy:      sortBy,
		SortDesc:    true,
	}
	summaries, _ := analytics.FilterSummaries(snap.Summaries, filter)

	prepareDownload(w, exporter.Filename("video_summary", time.Now()))
	rows, err := exporter.Summaries(w, summaries, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "summaries export aborted",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		return
	}

	middleware.RecordExportRows(r.Context(), "summaries", int64(rows))
	h.logger.InfoContext(r.Context(), "summaries exported",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("rows", rows))
}

// exportOptions reads the bom parameter. Excel wants the byte order
// mark; the default stays off so a download is byte-identical to the
// assembled table.
func exportOptions(r *http.Request) (exporter.Options, error) {
	bom, err := parseBoolParam("bom", r.URL.Query().Get("bom"))
	if err != nil {
		return exporter.Options{}, err
	}
	return exporter.Options{BOM: bom != nil && *bom}, nil
}

// prepareDownload sets the attachment headers. After this the body is
// the CSV stream and errors can no longer change the status code.
func prepareDownload(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
}
