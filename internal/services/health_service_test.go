package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlens/internal/config"
	v1 "watchlens/pkg/contracts/api/v1"
)

type fakeClientCounter struct {
	count int
}

func (f *fakeClientCounter) ClientCount() int { return f.count }

func TestHealthCheckAllHealthy(t *testing.T) {
	svc, _, data := newTestOperationService(t, true)
	dataset, summaries := sampleDataset()
	_, err := data.Publish(context.Background(), dataset, summaries)
	require.NoError(t, err)

	health := NewHealthService(data, svc, &fakeClientCounter{count: 2}, svc.paths, testLogger())

	status, err := health.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.NotEmpty(t, status.Version)
	require.Len(t, status.Services, 4)
	for name, svcHealth := range status.Services {
		assert.Equal(t, "healthy", svcHealth.Status, "service %s", name)
	}
	assert.Contains(t, status.Services["dataset"].Message, "3 rows")
	assert.Contains(t, status.Services["websocket"].Message, "2 clients")
}

func TestHealthCheckDegradedWithoutDataset(t *testing.T) {
	svc, _, data := newTestOperationService(t, true)
	health := NewHealthService(data, svc, &fakeClientCounter{}, svc.paths, testLogger())

	status, err := health.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "degraded", status.Services["dataset"].Status)
	assert.Equal(t, "healthy", status.Services["sources"].Status)
}

func TestHealthCheckDegradedWithEmptyRawDir(t *testing.T) {
	svc, _, data := newTestOperationService(t, false)
	health := NewHealthService(data, svc, &fakeClientCounter{}, svc.paths, testLogger())

	status, err := health.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", status.Services["sources"].Status)
	assert.Contains(t, status.Services["sources"].Message, "empty")
}

func TestHealthCheckUnhealthyWithoutDataService(t *testing.T) {
	paths := config.PathsFromBase(t.TempDir())
	health := NewHealthService(nil, nil, nil, paths, testLogger())

	status, err := health.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy", status.Services["dataset"].Status)
	assert.Equal(t, "degraded", status.Services["websocket"].Status)
	assert.Equal(t, "degraded", status.Services["operations"].Status)
}

func TestReadinessCheck(t *testing.T) {
	svc, _, data := newTestOperationService(t, true)
	health := NewHealthService(data, svc, &fakeClientCounter{}, svc.paths, testLogger())

	ready, checks := health.ReadinessCheck(context.Background())
	assert.True(t, ready)
	assert.True(t, checks["data_dir"])
	assert.True(t, checks["websocket"])
	assert.True(t, checks["operations"])
}

func TestReadinessCheckMissingHub(t *testing.T) {
	svc, _, data := newTestOperationService(t, true)
	health := NewHealthService(data, svc, nil, svc.paths, testLogger())

	ready, checks := health.ReadinessCheck(context.Background())
	assert.False(t, ready)
	assert.False(t, checks["websocket"])
}

func TestLivenessCheck(t *testing.T) {
	health := NewHealthService(nil, nil, nil, nil, testLogger())

	vitals := health.LivenessCheck(context.Background())
	assert.Equal(t, "alive", vitals["status"])
	assert.Contains(t, vitals, "uptime_seconds")
	assert.Positive(t, vitals["goroutines"])
}

func TestHealthServiceVersion(t *testing.T) {
	health := NewHealthService(nil, nil, nil, nil, testLogger())

	info := health.Version(context.Background())
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.APIVersion)
}

func TestSystemStats(t *testing.T) {
	svc, _, data := newTestOperationService(t, true)

	id, err := svc.StartRebuild(context.Background(), v1.RebuildRequest{})
	require.NoError(t, err)
	waitForOperation(t, svc, id, "completed")
	waitForIdle(t, svc)

	health := NewHealthService(data, svc, &fakeClientCounter{count: 3}, svc.paths, testLogger())

	stats, err := health.SystemStats(context.Background())
	require.NoError(t, err)
	// One raw fixture plus the four published artifacts.
	assert.GreaterOrEqual(t, stats.TotalFiles, 5)
	assert.Positive(t, stats.TotalSizeBytes)
	assert.Equal(t, 3, stats.WebSocketClients)
	assert.Zero(t, stats.ActiveOperations)
	assert.NotEmpty(t, stats.GoVersion)
}

func TestGetDetailedHealth(t *testing.T) {
	svc, _, data := newTestOperationService(t, true)
	dataset, summaries := sampleDataset()
	_, err := data.Publish(context.Background(), dataset, summaries)
	require.NoError(t, err)

	health := NewHealthService(data, svc, &fakeClientCounter{}, svc.paths, testLogger())

	status, err := health.GetDetailedHealth(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.Runtime)
	assert.Contains(t, status.Runtime, "total_files")
	assert.Contains(t, status.Runtime, "go_version")
}
