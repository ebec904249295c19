package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Dataset and operation sentinel errors. Services return these so the
// transport layer can map them onto consistent problem responses.
var (
	ErrDatasetNotBuilt    = errors.New("dataset not built")
	ErrDatasetEmpty       = errors.New("dataset empty")
	ErrNoSourceFiles      = errors.New("no source files")
	ErrSourceUnreadable   = errors.New("source file unreadable")
	ErrBuildInProgress    = errors.New("build already in progress")
	ErrBuildUpToDate      = errors.New("dataset already up to date")
	ErrBuildCancelled     = errors.New("build cancelled")
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrInvalidFilterParam = errors.New("invalid filter parameter")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapDatasetError maps dataset and operation errors to HTTP problem details
func MapDatasetError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api#trace-%s", traceID)

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return NewProblemDetails(
			apiErr.StatusCode,
			"/errors/"+apiErr.ErrorCode,
			http.StatusText(apiErr.StatusCode),
			apiErr.Message,
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", apiErr.ErrorCode)
	}

	switch {
	case errors.Is(err, ErrDatasetNotBuilt):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/dataset-not-built",
			"Dataset Not Built",
			"No assembled dataset is available yet. Run a build or wait for the current one to finish.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "DATASET_NOT_BUILT")

	case errors.Is(err, ErrDatasetEmpty):
		return NewProblemDetails(
			http.StatusOK,
			"/errors/dataset-empty",
			"Dataset Empty",
			"The assembled dataset contains no records. Check the build report for exclusions.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "DATASET_EMPTY")

	case errors.Is(err, ErrNoSourceFiles):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/no-source-files",
			"No Source Files",
			"No recognizable spreadsheet files were found in the raw data directory.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "NO_SOURCE_FILES")

	case errors.Is(err, ErrSourceUnreadable):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/source-unreadable",
			"Source Unreadable",
			"A source file could not be opened as a spreadsheet.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "SOURCE_UNREADABLE")

	case errors.Is(err, ErrBuildInProgress):
		return NewProblemDetails(
			http.StatusConflict,
			"/errors/build-in-progress",
			"Build In Progress",
			"A dataset build is already running. Wait for it to finish before starting another.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "BUILD_IN_PROGRESS")

	case errors.Is(err, ErrBuildUpToDate):
		return NewProblemDetails(
			http.StatusConflict,
			"/errors/build-up-to-date",
			"Dataset Up To Date",
			"No raw file changed since the last build. Pass force to rebuild anyway.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "BUILD_UP_TO_DATE")

	case errors.Is(err, ErrBuildCancelled):
		return NewProblemDetails(
			http.StatusConflict,
			"/errors/build-cancelled",
			"Build Cancelled",
			"The dataset build was cancelled before completion.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "BUILD_CANCELLED")

	case errors.Is(err, ErrUnknownOperation):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/operation-not-found",
			"Operation Not Found",
			"No operation with the given identifier exists.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "OPERATION_NOT_FOUND")

	case errors.Is(err, ErrInvalidFilterParam):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-filter",
			"Invalid Filter",
			err.Error(),
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INVALID_FILTER")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
