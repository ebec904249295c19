package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"watchlens/internal/analytics"
	apierrors "watchlens/internal/errors"
	"watchlens/internal/insights"
	"watchlens/internal/middleware"
	v1 "watchlens/pkg/contracts/api/v1"
	"watchlens/pkg/contracts/domain"
)

// DataHandler serves the dataset and analytics endpoints the dashboard
// pages call. Every read goes through the snapshot, so a rebuild never
// changes the numbers mid-request.
type DataHandler struct {
	service      DataProvider
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler.
func NewDataHandler(service DataProvider, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "data")),
		errorHandler: errorHandler,
	}
}

// Routes returns the router for dataset endpoints.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/status", h.GetStatus)
	r.Get("/report", h.GetReport)
	r.Get("/records", h.GetRecords)
	r.Get("/metrics", h.GetMetrics)
	r.Get("/filters", h.GetFilterOptions)
	r.Get("/series/daily", h.GetDailySeries)
	r.Get("/series/monthly", h.GetMonthlySeries)
	r.Get("/heatmap", h.GetHeatmap)
	r.Get("/completion", h.GetCompletionBreakdown)
	r.Get("/histogram", h.GetDurationHistogram)
	r.Get("/plays-per-user", h.GetPlaysPerUser)
	r.Get("/owner-split", h.GetOwnerSplit)
	r.Get("/top-videos", h.GetTopVideos)
	r.Get("/leaderboard", h.GetLeaderboard)

	return r
}

// filteredRecords resolves the shared filter grammar against the
// current snapshot. A dataset that was built but matches nothing comes
// back as an empty slice, not an error.
func (h *DataHandler) filteredRecords(r *http.Request) ([]domain.DerivedRecord, error) {
	filter, err := ParseWatchFilter(r)
	if err != nil {
		return nil, err
	}
	snap, err := h.service.Snapshot()
	if err != nil {
		return nil, err
	}
	return analytics.Apply(snap.Records, filter), nil
}

// GetStatus handles GET /api/data/status.
func (h *DataHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Status(),
	})
}

// GetReport handles GET /api/data/report. It returns the build report
// persisted alongside the dataset.
func (h *DataHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

// GetRecords handles GET /api/data/records. It returns one page of the
// filtered table together with the total match count.
func (h *DataHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePagination(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	total := len(records)
	window := analytics.Page(records, (page-1)*pageSize, pageSize)
	if window == nil {
		window = []domain.DerivedRecord{}
	}

	h.logger.DebugContext(r.Context(), "records page served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("page", page),
		slog.Int("total", total))

	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"data":      window,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// GetMetrics handles GET /api/data/metrics. The KPI tiles read this.
func (h *DataHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   analytics.ComputeMetrics(records),
	})
}

// GetFilterOptions handles GET /api/data/filters. The enumerations come
// from the whole dataset, never the filtered subset, so selected values
// stay visible in the pickers.
func (h *DataHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   analytics.Options(snap.Records),
	})
}

// GetDailySeries handles GET /api/data/series/daily. The payload pairs
// the zero-filled series with the peak days detected on it.
func (h *DataHandler) GetDailySeries(w http.ResponseWriter, r *http.Request) {
	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	series := analytics.DailySeries(records)
	peaks := insights.DetectPeaks(series)
	if series == nil {
		series = []analytics.DailyPoint{}
	}
	if peaks == nil {
		peaks = []insights.Peak{}
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"series": series,
			"peaks":  peaks,
		},
	})
}

// GetMonthlySeries handles GET /api/data/series/monthly.
func (h *DataHandler) GetMonthlySeries(w http.ResponseWriter, r *http.Request) {
	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	series := analytics.MonthlySeries(records)
	data := map[string]interface{}{"series": series}
	if series == nil {
		data["series"] = []analytics.MonthlyPoint{}
	}
	if peak, ok := analytics.PeakMonth(series); ok {
		data["peak"] = peak
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

// GetHeatmap handles GET /api/data/heatmap.
func (h *DataHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   analytics.DayHourHeatmap(records),
	})
}

// GetCompletionBreakdown handles GET /api/data/completion.
func (h *DataHandler) GetCompletionBreakdown(w http.ResponseWriter, r *http.Request) {
	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   analytics.BreakdownCompletion(records),
	})
}

// GetDurationHistogram handles GET /api/data/histogram.
func (h *DataHandler) GetDurationHistogram(w http.ResponseWriter, r *http.Request) {
	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	bins := analytics.DurationHistogram(records)
	if bins == nil {
		bins = []analytics.HistogramBin{}
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   bins,
	})
}

// GetPlaysPerUser handles GET /api/data/plays-per-user.
func (h *DataHandler) GetPlaysPerUser(w http.ResponseWriter, r *http.Request) {
	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	buckets := analytics.PlaysPerUser(records)
	if buckets == nil {
		buckets = []analytics.PlaysBucket{}
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   buckets,
	})
}

// GetOwnerSplit handles GET /api/data/owner-split.
func (h *DataHandler) GetOwnerSplit(w http.ResponseWriter, r *http.Request) {
	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   analytics.SplitOwnerViews(records),
	})
}

// GetTopVideos handles GET /api/data/top-videos. The ranking honors the
// active filter, so the chart always matches the KPI tiles beside it.
func (h *DataHandler) GetTopVideos(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if limit < 1 || limit > 100 {
		h.errorHandler.HandleError(w, r, invalidParam("limit", r.URL.Query().Get("limit"), "must be between 1 and 100"))
		return
	}

	req := v1.TopVideosRequest{Limit: limit, Metric: r.URL.Query().Get("metric")}
	switch req.Metric {
	case "", analytics.SortByViews, analytics.SortByUniqueViewers, analytics.SortByTotalMinutes:
	default:
		h.errorHandler.HandleError(w, r, invalidParam("metric", req.Metric, "must be views, unique_viewers or total_minutes"))
		return
	}

	records, err := h.filteredRecords(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	top := analytics.TopVideosBy(records, req.Limit, req.Metric)
	if top == nil {
		top = []analytics.VideoMetric{}
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   top,
		"count":  len(top),
	})
}

// GetLeaderboard handles GET /api/data/leaderboard. It pages the
// per-video summary table; record-level filters do not apply here
// because summaries are computed over the whole dataset.
func (h *DataHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePagination(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	q := r.URL.Query()
	minViews, err := queryInt(r, "min_views", 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if minViews < 0 {
		h.errorHandler.HandleError(w, r, invalidParam("min_views", q.Get("min_views"), "must not be negative"))
		return
	}

	req := v1.LeaderboardRequest{
		PaginationRequest: v1.PaginationRequest{
			Page:     page,
			PageSize: pageSize,
			Sort:     strings.ToLower(q.Get("sort")),
			SortBy:   q.Get("sort_by"),
		},
		Metric:   q.Get("metric"),
		MinViews: minViews,
	}

	sortBy := req.Metric
	if sortBy == "" {
		sortBy = req.SortBy
	}
	if sortBy != "" && !analytics.ValidSummarySort(sortBy) {
		h.errorHandler.HandleError(w, r, invalidParam("metric", sortBy, "is not a sortable column"))
		return
	}

	// The board reads top-down, so descending is the default.
	desc := true
	switch req.Sort {
	case "", "desc":
	case "asc":
		desc = false
	default:
		h.errorHandler.HandleError(w, r, invalidParam("sort", req.Sort, "must be asc or desc"))
		return
	}

	minRate := 0.0
	if raw := q.Get("min_completion_rate"); raw != "" {
		minRate, err = strconv.ParseFloat(raw, 64)
		if err != nil || minRate < 0 || minRate > 1 {
			h.errorHandler.HandleError(w, r, invalidParam("min_completion_rate", raw, "must be a fraction between 0 and 1"))
			return
		}
	}

	snap, err := h.service.Snapshot()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filter := domain.VideoSummaryFilter{
		VideoNames:        splitList(q.Get("videos")),
		NamePattern:       q.Get("video_query"),
		Categories:        splitList(q.Get("categories")),
		MinViews:          req.MinViews,
		MinCompletionRate: minRate,
		SortBy:            sortBy,
		SortDesc:          desc,
		Limit:             pageSize,
		Offset:            (page - 1) * pageSize,
	}

	rows, total := analytics.FilterSummaries(snap.Summaries, filter)
	if rows == nil {
		rows = []domain.VideoSummary{}
	}

	h.logger.DebugContext(r.Context(), "leaderboard served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("sort_by", sortBy),
		slog.Int("total", total))

	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"data":      rows,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}
