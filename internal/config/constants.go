package config

import "time"

// Application constants - all hardcoded values for the WatchLens system
const (
	// Application Info
	AppName    = "WatchLens"
	AppVersion = "0.3.0"

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir      = "data"
	DefaultLogsDir      = "logs"
	DefaultWebDir       = "web"
	DefaultRawDir       = "data/raw"
	DefaultProcessedDir = "data/processed"
	DefaultExportsDir   = "data/exports"

	// Operation Timeouts
	DefaultOperationTimeout = 15 * time.Minute
	BuildTimeout            = 10 * time.Minute
	ReportGenerationTimeout = 5 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// Source File Classification
	// Filenames are matched case-insensitively against these patterns to
	// decide which parser handles a raw export.
	WatchHistoryPattern  = `(?i)(watch|view).*(histor|log|record).*\.(xlsx|xlsm|csv)$`
	QuestionnairePattern = `(?i)(questionnaire|survey|form).*\.(xlsx|xlsm|csv)$`
	VideoMetaPattern     = `(?i)(video|content).*(meta|info|list|catalog).*\.(xlsx|xlsm|csv)$`

	// Dataset output filenames
	RecordsCSVName      = "watch_records.csv"
	SummariesCSVName    = "video_summary.csv"
	SummariesJSONName   = "video_summary.json"
	BuildReportJSONName = "build_report.json"
	InsightsJSONName    = "engagement_insights.json"
)

// Feature Flags - compile-time configuration
const (
	// Core Features
	FeatureWebSocketEnabled   = true
	FeatureMetricsEnabled     = true
	FeatureHealthCheckEnabled = true

	// Security Features
	FeatureRateLimitingEnabled = true

	// Development Features
	FeatureDebugLoggingEnabled = false
	FeatureMockDataEnabled     = false
)

// API Endpoints (internal)
const (
	APIBasePath        = "/api/v1"
	OperationsEndpoint = "/api/v1/operations"
	DataEndpoint       = "/api/v1/data"
	AnalyticsEndpoint  = "/api/v1/analytics"
	ExportEndpoint     = "/api/v1/export"
	HealthEndpoint     = "/health"
	MetricsEndpoint    = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)

// GetFeatureFlag returns the value of a feature flag
func GetFeatureFlag(flag string) bool {
	switch flag {
	case "websocket":
		return FeatureWebSocketEnabled
	case "metrics":
		return FeatureMetricsEnabled
	case "health_check":
		return FeatureHealthCheckEnabled
	case "rate_limiting":
		return FeatureRateLimitingEnabled
	case "debug_logging":
		return FeatureDebugLoggingEnabled
	case "mock_data":
		return FeatureMockDataEnabled
	default:
		return false
	}
}
