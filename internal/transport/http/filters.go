package http

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "watchlens/internal/errors"
	v1 "watchlens/pkg/contracts/api/v1"
	"watchlens/pkg/contracts/domain"
)

// Paging defaults shared by the records and leaderboard endpoints.
const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// ParseWatchFilter reads the shared filter grammar off the query string.
// Every dashboard endpoint and the CSV export accept the same
// parameters, so a chart and the download it sits next to always
// describe the same subset.
func ParseWatchFilter(r *http.Request) (domain.WatchFilter, error) {
	return BuildWatchFilter(filterRequestFromQuery(r))
}

// filterRequestFromQuery lifts the filter dimensions off the query
// string into the wire contract, untouched.
func filterRequestFromQuery(r *http.Request) v1.FilterRequest {
	q := r.URL.Query()
	return v1.FilterRequest{
		From:          q.Get("from"),
		To:            q.Get("to"),
		Hours:         q.Get("hours"),
		AmPm:          q.Get("am_pm"),
		Weekdays:      q.Get("weekdays"),
		AcademicYears: q.Get("academic_years"),
		Videos:        q.Get("videos"),
		VideoQuery:    q.Get("video_query"),
		Categories:    q.Get("categories"),
		Completion:    q.Get("completion"),
		Questionnaire: q.Get("questionnaire"),
		RepeatOnly:    q.Get("repeat_only"),
		OwnerView:     q.Get("owner_view"),
		Users:         q.Get("users"),
		MinDuration:   q.Get("min_duration"),
		MaxDuration:   q.Get("max_duration"),
	}
}

// BuildWatchFilter converts the wire-level filter into a domain filter.
// Parse failures wrap errors.ErrInvalidFilterParam and name the
// offending parameter.
func BuildWatchFilter(req v1.FilterRequest) (domain.WatchFilter, error) {
	var filter domain.WatchFilter

	from, err := parseDateParam("from", req.From)
	if err != nil {
		return filter, err
	}
	filter.DateFrom = from

	to, err := parseDateParam("to", req.To)
	if err != nil {
		return filter, err
	}
	if to != nil {
		// Widen to the end of the day so to=2023-01-05 keeps that
		// day's evening records.
		end := to.AddDate(0, 0, 1).Add(-time.Second)
		filter.DateTo = &end
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return filter, invalidParam("to", req.To, "must not be before from")
	}

	filter.Hours, err = parseHoursParam(req.Hours)
	if err != nil {
		return filter, err
	}

	if req.AmPm != "" {
		switch strings.ToUpper(req.AmPm) {
		case string(domain.MeridiemAM):
			m := domain.MeridiemAM
			filter.Meridiem = &m
		case string(domain.MeridiemPM):
			m := domain.MeridiemPM
			filter.Meridiem = &m
		default:
			return filter, invalidParam("am_pm", req.AmPm, "must be AM or PM")
		}
	}

	filter.Weekdays = splitList(req.Weekdays)
	filter.AcademicYears = splitList(req.AcademicYears)
	filter.VideoNames = splitList(req.Videos)
	filter.VideoQuery = strings.TrimSpace(req.VideoQuery)
	filter.Categories = splitList(req.Categories)

	filter.Completion, err = parseCompletionParam(req.Completion)
	if err != nil {
		return filter, err
	}

	if filter.Questionnaire, err = parseBoolParam("questionnaire", req.Questionnaire); err != nil {
		return filter, err
	}
	if filter.RepeatOnly, err = parseBoolParam("repeat_only", req.RepeatOnly); err != nil {
		return filter, err
	}
	if filter.OwnerView, err = parseBoolParam("owner_view", req.OwnerView); err != nil {
		return filter, err
	}

	filter.Users = splitList(req.Users)

	if filter.MinDurationMinutes, err = parseMinutesParam("min_duration", req.MinDuration); err != nil {
		return filter, err
	}
	if filter.MaxDurationMinutes, err = parseMinutesParam("max_duration", req.MaxDuration); err != nil {
		return filter, err
	}
	if filter.MinDurationMinutes != nil && filter.MaxDurationMinutes != nil &&
		*filter.MaxDurationMinutes < *filter.MinDurationMinutes {
		return filter, invalidParam("max_duration", req.MaxDuration, "must not be below min_duration")
	}

	return filter, nil
}

// parsePagination reads page and page_size with the contract defaults.
func parsePagination(r *http.Request) (page, pageSize int, err error) {
	page, err = queryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	if page < 1 {
		return 0, 0, invalidParam("page", r.URL.Query().Get("page"), "must be at least 1")
	}

	pageSize, err = queryInt(r, "page_size", defaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return 0, 0, invalidParam("page_size", r.URL.Query().Get("page_size"),
			fmt.Sprintf("must be between 1 and %d", maxPageSize))
	}

	return page, pageSize, nil
}

// queryInt reads an integer query parameter, using fallback when absent.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, raw, "must be an integer")
	}
	return v, nil
}

func invalidParam(name, value, reason string) error {
	return fmt.Errorf("%w: %s=%q %s", apperrors.ErrInvalidFilterParam, name, value, reason)
}

// splitList splits a comma-separated parameter, dropping empty entries.
// Nil means the dimension is inactive.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func parseDateParam(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, invalidParam(name, raw, "is not a YYYY-MM-DD date")
	}
	return &t, nil
}

func parseHoursParam(raw string) ([]int, error) {
	parts := splitList(raw)
	if parts == nil {
		return nil, nil
	}
	hours := make([]int, 0, len(parts))
	for _, part := range parts {
		h, err := strconv.Atoi(part)
		if err != nil || h < 0 || h > 23 {
			return nil, invalidParam("hours", part, "must be an hour between 0 and 23")
		}
		hours = append(hours, h)
	}
	return hours, nil
}

func parseCompletionParam(raw string) ([]domain.CompletionStatus, error) {
	parts := splitList(raw)
	if parts == nil {
		return nil, nil
	}
	statuses := make([]domain.CompletionStatus, 0, len(parts))
	for _, part := range parts {
		status := domain.CompletionStatus(strings.ToLower(part))
		if !status.Valid() {
			return nil, invalidParam("completion", part, "must be completed, not_completed or unknown")
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseBoolParam(name, raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	switch strings.ToLower(raw) {
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	}
	return nil, invalidParam(name, raw, "must be true or false")
}

func parseMinutesParam(name, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, invalidParam(name, raw, "must be a number of minutes")
	}
	if v < 0 {
		return nil, invalidParam(name, raw, "must not be negative")
	}
	return &v, nil
}
