package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"watchlens/internal/config"
	"watchlens/pkg/contracts"
)

// ClientCounter reports how many websocket clients are connected.
// Satisfied by *websocket.Hub.
type ClientCounter interface {
	ClientCount() int
}

// HealthStatus represents the overall health of the application
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual component
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TotalFiles       int     `json:"total_files"`
	TotalSizeBytes   int64   `json:"total_size_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	ActiveOperations int     `json:"active_operations"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// HealthService aggregates component checks for the health, readiness
// and liveness endpoints.
type HealthService struct {
	logger    *slog.Logger
	paths     *config.Paths
	data      *DataService
	ops       *OperationService
	clients   ClientCounter
	startTime time.Time
}

// NewHealthService creates a new health service
func NewHealthService(data *DataService, ops *OperationService, clients ClientCounter, paths *config.Paths, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		logger:    logger,
		paths:     paths,
		data:      data,
		ops:       ops,
		clients:   clients,
		startTime: time.Now(),
	}
}

// HealthCheck performs a comprehensive health check of all components.
// A server without a built dataset is degraded, not unhealthy: it still
// serves the dashboard shell, the build panel and this endpoint.
func (h *HealthService) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	services := map[string]ServiceHealth{
		"dataset":    h.checkDatasetHealth(),
		"sources":    h.checkSourcesHealth(),
		"websocket":  h.checkWebSocketHealth(),
		"operations": h.checkOperationsHealth(),
	}

	overall := "healthy"
	for _, svc := range services {
		switch svc.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	h.logger.DebugContext(ctx, "health check performed",
		slog.String("status", overall))

	return &HealthStatus{
		Status:    overall,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services:  services,
	}, nil
}

// ReadinessCheck reports whether the server can accept traffic. The
// dataset is deliberately not part of readiness: an empty server that
// can run a build is ready.
func (h *HealthService) ReadinessCheck(ctx context.Context) (bool, map[string]bool) {
	checks := map[string]bool{
		"data_dir":   h.dataDirWritable(),
		"websocket":  h.clients != nil,
		"operations": h.ops != nil,
	}

	ready := true
	for _, ok := range checks {
		if !ok {
			ready = false
			break
		}
	}

	h.logger.DebugContext(ctx, "readiness check performed",
		slog.Bool("ready", ready))
	return ready, checks
}

// LivenessCheck reports process vitals. It only fails when the process
// itself is wedged, which is never detectable from inside, so it always
// reports alive.
func (h *HealthService) LivenessCheck(ctx context.Context) map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"status":         "alive",
		"timestamp":      time.Now(),
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"goroutines":     runtime.NumGoroutine(),
		"alloc_bytes":    mem.Alloc,
	}
}

// Version returns detailed build and version information.
func (h *HealthService) Version(ctx context.Context) contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

// SystemStats collects runtime and data directory statistics.
func (h *HealthService) SystemStats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if h.clients != nil {
		stats.WebSocketClients = h.clients.ClientCount()
	}
	if h.ops != nil {
		stats.ActiveOperations = h.ops.ActiveCount()
	}

	if h.paths != nil {
		err := filepath.Walk(h.paths.DataDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if !info.IsDir() {
				stats.TotalFiles++
				stats.TotalSizeBytes += info.Size()
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("walk data dir: %w", err)
		}
	}

	return stats, nil
}

// GetDetailedHealth combines the component checks with system stats for
// the verbose health view.
func (h *HealthService) GetDetailedHealth(ctx context.Context) (*HealthStatus, error) {
	status, err := h.HealthCheck(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := h.SystemStats(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "system stats unavailable",
			slog.String("error", err.Error()))
		return status, nil
	}

	status.Runtime = map[string]interface{}{
		"uptime_seconds":    stats.UptimeSeconds,
		"total_files":       stats.TotalFiles,
		"total_size_bytes":  stats.TotalSizeBytes,
		"websocket_clients": stats.WebSocketClients,
		"active_operations": stats.ActiveOperations,
		"go_version":        stats.GoVersion,
	}
	return status, nil
}

func (h *HealthService) checkDatasetHealth() ServiceHealth {
	if h.data == nil {
		return ServiceHealth{Status: "unhealthy", Message: "data service not configured"}
	}

	status := h.data.Status()
	if !status.Built {
		return ServiceHealth{Status: "degraded", Message: "no dataset built yet"}
	}
	return ServiceHealth{
		Status:  "healthy",
		Message: fmt.Sprintf("%d rows across %d videos", status.Rows, status.Videos),
	}
}

func (h *HealthService) checkSourcesHealth() ServiceHealth {
	if h.paths == nil {
		return ServiceHealth{Status: "unhealthy", Message: "paths not configured"}
	}

	entries, err := os.ReadDir(h.paths.RawDir)
	if os.IsNotExist(err) {
		return ServiceHealth{Status: "degraded", Message: "raw directory does not exist yet"}
	}
	if err != nil {
		return ServiceHealth{Status: "unhealthy", Message: fmt.Sprintf("raw directory unreadable: %v", err)}
	}

	files := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			files++
		}
	}
	if files == 0 {
		return ServiceHealth{Status: "degraded", Message: "raw directory is empty"}
	}
	return ServiceHealth{Status: "healthy", Message: fmt.Sprintf("%d source files", files)}
}

func (h *HealthService) checkWebSocketHealth() ServiceHealth {
	if h.clients == nil {
		return ServiceHealth{Status: "degraded", Message: "websocket hub not running"}
	}
	return ServiceHealth{
		Status:  "healthy",
		Message: fmt.Sprintf("%d clients connected", h.clients.ClientCount()),
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *HealthService) checkOperationsHealth() ServiceHealth {
	if h.ops == nil {
		return ServiceHealth{Status: "degraded", Message: "operation service not running"}
	}
	return ServiceHealth{
		Status:  "healthy",
		Message: fmt.Sprintf("%d active operations", h.ops.ActiveCount()),
	}
}

func (h *HealthService) dataDirWritable() bool {
	if h.paths == nil {
		return false
	}
	if err := os.MkdirAll(h.paths.DataDir, 0755); err != nil {
		return false
	}
	probe := filepath.Join(h.paths.DataDir, ".health-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}
