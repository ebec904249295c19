package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMiddleware(buf *bytes.Buffer) *ErrorMiddleware {
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	handler := NewErrorHandler(logger, false)
	return NewErrorMiddleware(handler, logger)
}

func TestErrorMiddlewarePassesThrough(t *testing.T) {
	var buf bytes.Buffer
	mw := newTestMiddleware(&buf)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/overview/metrics?am_pm=PM", nil)

	mw.Handler(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	logLine := buf.String()
	assert.Contains(t, logLine, "http request")
	assert.Contains(t, logLine, "/api/overview/metrics")
	assert.Contains(t, logLine, "am_pm=PM")
}

func TestErrorMiddlewareLogsErrorBody(t *testing.T) {
	var buf bytes.Buffer
	mw := newTestMiddleware(&buf)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Body must still be readable downstream after capture.
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "force")
		w.WriteHeader(http.StatusConflict)
	})

	body := strings.NewReader(`{"force":true}`)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/operations/rebuild", body)
	r.ContentLength = int64(len(`{"force":true}`))

	mw.Handler(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Contains(t, entry["request_body"], "force")
}

func TestErrorMiddlewareRecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	mw := newTestMiddleware(&buf)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api", nil)

	mw.Handler(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	handler := NewErrorHandler(logger, false)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api", nil)

	RecoveryMiddleware(handler)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
