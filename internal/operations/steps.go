package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"watchlens/internal/dataprocessing"
	"watchlens/internal/files"
	"watchlens/pkg/contracts/domain"
)

// SnapshotPublisher receives the finished dataset at the end of a build.
// The dataset service implements it: it writes the artifacts and swaps
// the served snapshot in one move. It returns the artifact paths it
// wrote.
type SnapshotPublisher interface {
	Publish(ctx context.Context, dataset *dataprocessing.Dataset, summaries []domain.VideoSummary) ([]string, error)
}

// StepOptions carries the shared wiring for the built-in steps.
type StepOptions struct {
	// SourceDir is where scan looks for raw exports when the request
	// does not name a directory.
	SourceDir string

	// DatasetDir is where published artifacts land when the request
	// does not name a directory.
	DatasetDir string

	// Workers bounds concurrent file parsing during ingest.
	Workers int

	// Broadcaster receives per-step progress. Nil disables progress
	// pushes; the steps still run.
	Broadcaster *StatusBroadcaster

	// Publisher receives the finished dataset. Required by the publish
	// step.
	Publisher SnapshotPublisher
}

// reportProgress records progress on the step state and pushes it to
// clients in one call.
func reportProgress(options *StepOptions, state *OperationState, stepID string, progress int, message string) {
	if stepState := state.GetStep(stepID); stepState != nil {
		stepState.UpdateProgress(float64(progress), message)
	}
	if options != nil && options.Broadcaster != nil {
		options.Broadcaster.UpdateStepProgress(state.ID, stepID, progress, message)
	}
}

// ScanStep discovers raw export files and classifies each by filename.
type ScanStep struct {
	BaseStep
	discovery *files.Discovery
	logger    *slog.Logger
	options   *StepOptions
}

// NewScanStep creates the scan step.
func NewScanStep(logger *slog.Logger, options *StepOptions) *ScanStep {
	if logger == nil {
		logger = slog.Default()
	}
	if options == nil {
		options = &StepOptions{}
	}
	return &ScanStep{
		BaseStep:  NewBaseStep(StepIDScan, StepNameScan, nil),
		discovery: files.NewDiscovery(""),
		logger:    logger.With(slog.String("step", StepIDScan)),
		options:   options,
	}
}

// Validate requires a source directory from the request or the options.
func (s *ScanStep) Validate(state *OperationState) error {
	if s.sourceDir(state) == "" {
		return fmt.Errorf("no source directory configured")
	}
	return nil
}

func (s *ScanStep) sourceDir(state *OperationState) string {
	if dir := state.ConfigString(CtxKeySourceDir); dir != "" {
		return dir
	}
	return s.options.SourceDir
}

// requestedFiles returns the set of file names the request limited the
// build to, or nil when the request did not name any.
func requestedFiles(state *OperationState) map[string]bool {
	val, ok := state.GetConfig(CtxKeyFiles)
	if !ok {
		return nil
	}
	names, ok := val.([]string)
	if !ok || len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// Execute lists the source directory and publishes the classified
// inputs for ingest.
func (s *ScanStep) Execute(ctx context.Context, state *OperationState) error {
	dir := s.sourceDir(state)
	reportProgress(s.options, state, s.ID(), 10, fmt.Sprintf("scanning %s", dir))

	sources, err := s.discovery.FindSourceFiles(dir)
	if err != nil {
		return NewExecutionError(s.ID(), fmt.Errorf("scan %s: %w", dir, err), false)
	}
	if only := requestedFiles(state); only != nil {
		kept := sources[:0]
		for _, source := range sources {
			if only[source.Name] {
				kept = append(kept, source)
			}
		}
		sources = kept
		if len(sources) == 0 {
			return NewFatalError(fmt.Sprintf("none of the requested files found in %s", dir), nil)
		}
	}
	if len(sources) == 0 {
		return NewFatalError(fmt.Sprintf("no source files found in %s", dir), nil)
	}

	inputs := make([]dataprocessing.Input, len(sources))
	classified := 0
	for i, source := range sources {
		inputs[i] = dataprocessing.Input{
			Path: source.Path,
			Name: source.Name,
			Kind: source.Kind,
		}
		if source.Kind != "" {
			classified++
		}
	}

	state.SetContext(CtxKeyInputs, inputs)
	state.SetContext(CtxKeyFilesFound, len(sources))
	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("files_found", len(sources))
		stepState.SetMetadata("classified", classified)
	}

	s.logger.InfoContext(ctx, "sources scanned",
		slog.String("dir", dir),
		slog.Int("files", len(sources)),
		slog.Int("classified", classified))

	reportProgress(s.options, state, s.ID(), 100,
		fmt.Sprintf("found %d files, %d classified", len(sources), classified))
	return nil
}

// IngestStep parses every scanned file into canonical rows. Files parse
// concurrently; results keep input order so the build stays
// deterministic.
type IngestStep struct {
	BaseStep
	parser  *dataprocessing.SourceParser
	logger  *slog.Logger
	options *StepOptions
}

// NewIngestStep creates the ingest step.
func NewIngestStep(logger *slog.Logger, options *StepOptions) *IngestStep {
	if logger == nil {
		logger = slog.Default()
	}
	if options == nil {
		options = &StepOptions{}
	}
	return &IngestStep{
		BaseStep: NewBaseStep(StepIDIngest, StepNameIngest, []string{StepIDScan}),
		parser:   dataprocessing.NewSourceParser(logger),
		logger:   logger.With(slog.String("step", StepIDIngest)),
		options:  options,
	}
}

// Validate requires scanned inputs in the state.
func (s *IngestStep) Validate(state *OperationState) error {
	if _, ok := state.GetContext(CtxKeyInputs); !ok {
		return fmt.Errorf("no scanned inputs in operation state")
	}
	return nil
}

// Execute parses the inputs. Parse failures are retryable; exports are
// sometimes still locked by the program that wrote them.
func (s *IngestStep) Execute(ctx context.Context, state *OperationState) error {
	val, _ := state.GetContext(CtxKeyInputs)
	inputs, ok := val.([]dataprocessing.Input)
	if !ok {
		return NewFatalError("scanned inputs have unexpected type", nil)
	}

	workers := s.options.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*dataprocessing.ParseResult, len(inputs))
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, input := range inputs {
		if input.Kind == "" {
			results[i] = &dataprocessing.ParseResult{Report: domain.SourceReport{
				File:       input.Name,
				Skipped:    true,
				SkipReason: "file name matches no known source shape",
			}}
			atomic.AddInt64(&done, 1)
			continue
		}
		g.Go(func() error {
			result, err := s.parser.Parse(gctx, input.Path, input.Kind)
			if err != nil {
				return fmt.Errorf("parse %s: %w", input.Name, err)
			}
			if input.Name != "" {
				result.Report.File = input.Name
			}
			results[i] = result

			n := atomic.AddInt64(&done, 1)
			pct := 5 + int(float64(n)/float64(len(inputs))*90)
			reportProgress(s.options, state, s.ID(), pct,
				fmt.Sprintf("parsed %s (%d/%d)", input.Name, n, len(inputs)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return NewExecutionError(s.ID(), err, true)
	}

	rowsRead := 0
	for _, result := range results {
		rowsRead += result.Report.RowsRead
	}

	state.SetContext(CtxKeyParsed, results)
	state.SetContext(CtxKeyRowsRead, rowsRead)
	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("rows_read", rowsRead)
	}

	s.logger.InfoContext(ctx, "sources ingested",
		slog.Int("files", len(inputs)),
		slog.Int("rows_read", rowsRead))

	reportProgress(s.options, state, s.ID(), 100,
		fmt.Sprintf("read %d rows from %d files", rowsRead, len(inputs)))
	return nil
}

// NormalizeStep merges parsed sources in input order, removes exact
// duplicates, and opens the build report.
type NormalizeStep struct {
	BaseStep
	dedup   *dataprocessing.Deduplicator
	logger  *slog.Logger
	options *StepOptions
}

// NewNormalizeStep creates the normalize step.
func NewNormalizeStep(logger *slog.Logger, options *StepOptions) *NormalizeStep {
	if logger == nil {
		logger = slog.Default()
	}
	if options == nil {
		options = &StepOptions{}
	}
	return &NormalizeStep{
		BaseStep: NewBaseStep(StepIDNormalize, StepNameNormalize, []string{StepIDIngest}),
		dedup:    dataprocessing.NewDeduplicator(logger),
		logger:   logger.With(slog.String("step", StepIDNormalize)),
		options:  options,
	}
}

// Validate requires parse results in the state.
func (s *NormalizeStep) Validate(state *OperationState) error {
	if _, ok := state.GetContext(CtxKeyParsed); !ok {
		return fmt.Errorf("no parse results in operation state")
	}
	return nil
}

// Execute folds per-file results into one record set and its report.
func (s *NormalizeStep) Execute(ctx context.Context, state *OperationState) error {
	val, _ := state.GetContext(CtxKeyParsed)
	results, ok := val.([]*dataprocessing.ParseResult)
	if !ok {
		return NewFatalError("parse results have unexpected type", nil)
	}

	report := &domain.BuildReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	var records []domain.WatchRecord
	var metaRows []domain.VideoMeta
	questionnaireUsers := make(map[string]bool)

	for _, result := range results {
		report.AddSource(result.Report)
		records = append(records, result.Records...)
		metaRows = append(metaRows, result.Meta...)
		for user := range result.Users {
			questionnaireUsers[user] = true
		}
	}
	reportProgress(s.options, state, s.ID(), 50,
		fmt.Sprintf("merged %d sources", len(results)))

	records, stats := s.dedup.DeduplicateWithStats(records)
	if stats.DuplicatesRemoved > 0 {
		if report.ExcludedByReason == nil {
			report.ExcludedByReason = make(map[domain.ExclusionReason]int)
		}
		report.ExcludedByReason[domain.ExcludeDuplicate] += stats.DuplicatesRemoved
		report.RowsKept -= stats.DuplicatesRemoved
	}

	state.SetContext(CtxKeyRecords, records)
	state.SetContext(CtxKeyMetaRows, metaRows)
	state.SetContext(CtxKeyUsers, questionnaireUsers)
	state.SetContext(CtxKeyReport, report)
	state.SetContext(CtxKeyRowsKept, report.RowsKept)
	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("rows_kept", report.RowsKept)
		stepState.SetMetadata("duplicates_removed", stats.DuplicatesRemoved)
	}

	s.logger.InfoContext(ctx, "records normalized",
		slog.Int("rows_kept", report.RowsKept),
		slog.Int("duplicates_removed", stats.DuplicatesRemoved),
		slog.Int("excluded", report.ExcludedTotal()))

	reportProgress(s.options, state, s.ID(), 100,
		fmt.Sprintf("kept %d rows, removed %d duplicates", report.RowsKept, stats.DuplicatesRemoved))
	return nil
}

// DeriveStep joins video metadata onto the kept rows, derives the
// dashboard features, and builds the per-video summary table.
type DeriveStep struct {
	BaseStep
	summarizer *dataprocessing.Summarizer
	logger     *slog.Logger
	options    *StepOptions
}

// NewDeriveStep creates the derive step.
func NewDeriveStep(logger *slog.Logger, options *StepOptions) *DeriveStep {
	if logger == nil {
		logger = slog.Default()
	}
	if options == nil {
		options = &StepOptions{}
	}
	return &DeriveStep{
		BaseStep:   NewBaseStep(StepIDDerive, StepNameDerive, []string{StepIDNormalize}),
		summarizer: dataprocessing.NewSummarizer(dataprocessing.DefaultSummarizerConfig()),
		logger:     logger.With(slog.String("step", StepIDDerive)),
		options:    options,
	}
}

// Validate requires normalized records and an open report.
func (s *DeriveStep) Validate(state *OperationState) error {
	if _, ok := state.GetContext(CtxKeyRecords); !ok {
		return fmt.Errorf("no normalized records in operation state")
	}
	if _, ok := state.GetContext(CtxKeyReport); !ok {
		return fmt.Errorf("no build report in operation state")
	}
	return nil
}

// Execute assembles the derived table and summaries.
func (s *DeriveStep) Execute(ctx context.Context, state *OperationState) error {
	records, ok := contextValue[[]domain.WatchRecord](state, CtxKeyRecords)
	if !ok {
		return NewFatalError("normalized records have unexpected type", nil)
	}
	metaRows, _ := contextValue[[]domain.VideoMeta](state, CtxKeyMetaRows)
	users, _ := contextValue[map[string]bool](state, CtxKeyUsers)
	report, ok := contextValue[*domain.BuildReport](state, CtxKeyReport)
	if !ok {
		return NewFatalError("build report has unexpected type", nil)
	}

	meta := dataprocessing.BuildMetaIndex(metaRows)
	derived := dataprocessing.Derive(records, meta, users)
	reportProgress(s.options, state, s.ID(), 60,
		fmt.Sprintf("derived %d rows", len(derived)))

	dataprocessing.FinalizeReport(report, derived)
	summaries := s.summarizer.GenerateFromRecords(derived, meta)

	dataset := &dataprocessing.Dataset{
		Records: derived,
		Meta:    meta,
		Report:  *report,
	}
	state.SetContext(CtxKeyDataset, dataset)
	state.SetContext(CtxKeySummaries, summaries)
	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("dataset_rows", len(derived))
		stepState.SetMetadata("videos", report.Videos)
		stepState.SetMetadata("viewers", report.Viewers)
	}

	s.logger.InfoContext(ctx, "features derived",
		slog.Int("dataset_rows", len(derived)),
		slog.Int("videos", report.Videos),
		slog.Int("viewers", report.Viewers))

	reportProgress(s.options, state, s.ID(), 100,
		fmt.Sprintf("derived %d rows across %d videos", len(derived), report.Videos))
	return nil
}

// PublishStep hands the finished dataset to the publisher, which writes
// the artifacts and swaps the served snapshot.
type PublishStep struct {
	BaseStep
	logger  *slog.Logger
	options *StepOptions
}

// NewPublishStep creates the publish step.
func NewPublishStep(logger *slog.Logger, options *StepOptions) *PublishStep {
	if logger == nil {
		logger = slog.Default()
	}
	if options == nil {
		options = &StepOptions{}
	}
	return &PublishStep{
		BaseStep: NewBaseStep(StepIDPublish, StepNamePublish, []string{StepIDDerive}),
		logger:   logger.With(slog.String("step", StepIDPublish)),
		options:  options,
	}
}

// Validate requires a publisher and a finished dataset.
func (s *PublishStep) Validate(state *OperationState) error {
	if s.options.Publisher == nil {
		return fmt.Errorf("no publisher configured")
	}
	if _, ok := state.GetContext(CtxKeyDataset); !ok {
		return fmt.Errorf("no dataset in operation state")
	}
	return nil
}

// Execute publishes the dataset. Publishing is idempotent, so failures
// are retryable.
func (s *PublishStep) Execute(ctx context.Context, state *OperationState) error {
	dataset, ok := contextValue[*dataprocessing.Dataset](state, CtxKeyDataset)
	if !ok {
		return NewFatalError("dataset has unexpected type", nil)
	}
	summaries, _ := contextValue[[]domain.VideoSummary](state, CtxKeySummaries)

	dataset.Report.FinishedAt = time.Now().UTC()
	reportProgress(s.options, state, s.ID(), 30, "writing artifacts")

	artifacts, err := s.options.Publisher.Publish(ctx, dataset, summaries)
	if err != nil {
		return NewExecutionError(s.ID(), fmt.Errorf("publish dataset: %w", err), true)
	}

	state.SetContext(CtxKeyArtifacts, artifacts)
	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("artifacts", len(artifacts))
		stepState.SetMetadata("dataset_rows", len(dataset.Records))
	}

	s.logger.InfoContext(ctx, "dataset published",
		slog.String("run_id", dataset.Report.RunID),
		slog.Int("rows", len(dataset.Records)),
		slog.Int("artifacts", len(artifacts)))

	reportProgress(s.options, state, s.ID(), 100,
		fmt.Sprintf("published %d rows, %d artifacts", len(dataset.Records), len(artifacts)))
	return nil
}

// contextValue reads a typed value from the operation context.
func contextValue[T any](state *OperationState, key string) (T, bool) {
	var zero T
	val, ok := state.GetContext(key)
	if !ok {
		return zero, false
	}
	typed, ok := val.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// StepFactory builds the full pipeline step set keyed by step ID.
func StepFactory(logger *slog.Logger, options *StepOptions) map[string]Step {
	return map[string]Step{
		StepIDScan:      NewScanStep(logger, options),
		StepIDIngest:    NewIngestStep(logger, options),
		StepIDNormalize: NewNormalizeStep(logger, options),
		StepIDDerive:    NewDeriveStep(logger, options),
		StepIDPublish:   NewPublishStep(logger, options),
	}
}

// RegisterPipeline registers the five build steps on the registry in
// pipeline order.
func RegisterPipeline(registry *Registry, logger *slog.Logger, options *StepOptions) error {
	steps := []Step{
		NewScanStep(logger, options),
		NewIngestStep(logger, options),
		NewNormalizeStep(logger, options),
		NewDeriveStep(logger, options),
		NewPublishStep(logger, options),
	}
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time checks that every built-in step satisfies Step.
var (
	_ Step = (*ScanStep)(nil)
	_ Step = (*IngestStep)(nil)
	_ Step = (*NormalizeStep)(nil)
	_ Step = (*DeriveStep)(nil)
	_ Step = (*PublishStep)(nil)
)
