package operations

import (
	"time"
)

// Step identifiers, in pipeline order.
const (
	StepIDScan      = "scan"
	StepIDIngest    = "ingest"
	StepIDNormalize = "normalize"
	StepIDDerive    = "derive"
	StepIDPublish   = "publish"
)

// Human-readable step names shown on the dashboard build panel.
const (
	StepNameScan      = "Source Scan"
	StepNameIngest    = "Workbook Ingest"
	StepNameNormalize = "Record Normalization"
	StepNameDerive    = "Feature Derivation"
	StepNamePublish   = "Dataset Publish"
)

// Keys for values steps hand to each other through the operation state.
const (
	CtxKeySourceDir  = "source_dir"
	CtxKeyDatasetDir = "dataset_dir"
	CtxKeyFiles      = "files"
	CtxKeyInputs     = "inputs"
	CtxKeyFilesFound = "files_found"
	CtxKeyParsed     = "parse_results"
	CtxKeyRowsRead   = "rows_read"
	CtxKeyRecords    = "watch_records"
	CtxKeyMetaRows   = "meta_rows"
	CtxKeyUsers      = "questionnaire_users"
	CtxKeyReport     = "build_report"
	CtxKeyRowsKept   = "rows_kept"
	CtxKeyDataset    = "dataset"
	CtxKeySummaries  = "video_summaries"
	CtxKeyArtifacts  = "artifacts"
)

// EventOperationSnapshot is the websocket event type carrying a complete
// operation snapshot.
const EventOperationSnapshot = "operation:snapshot"

// Default step timeouts. Ingest dominates: workbooks are slow to open
// and a term's export can hold tens of thousands of rows.
const (
	DefaultStepTimeout      = 5 * time.Minute
	DefaultScanTimeout      = 1 * time.Minute
	DefaultIngestTimeout    = 15 * time.Minute
	DefaultNormalizeTimeout = 5 * time.Minute
	DefaultDeriveTimeout    = 5 * time.Minute
	DefaultPublishTimeout   = 2 * time.Minute
)

// RetryConfig defines retry behavior for steps that fail with a
// retryable error.
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration.
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest asks the manager to run a build. StepID restricts the
// run to a single registered step; empty means the full pipeline. The
// directory fields override the configured defaults for this run only.
type OperationRequest struct {
	ID         string                 `json:"id"`
	StepID     string                 `json:"step_id,omitempty"`
	SourceDir  string                 `json:"source_dir,omitempty"`
	DatasetDir string                 `json:"dataset_dir,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse reports the outcome of a finished operation.
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatus       `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}
