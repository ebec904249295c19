package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"watchlens/internal/config"
	apperrors "watchlens/internal/errors"
	"watchlens/internal/files"
	"watchlens/internal/operations"
	v1 "watchlens/pkg/contracts/api/v1"
)

// Snapshot housekeeping. Finished operations stay queryable for a while
// so a dashboard that reconnects after a build can still show its
// outcome.
const (
	snapshotRetention   = time.Hour
	snapshotSweepPeriod = 10 * time.Minute
)

// BuildHub is the websocket surface the operation service needs. Step
// snapshots go out through the operations manager; the refresh event
// tells connected dashboards to reload once a build has landed.
type BuildHub interface {
	BroadcastJSON(message map[string]interface{})
	BroadcastRefresh(operationID string, rows int)
}

// OperationService runs dataset builds through the operations manager,
// one at a time, and exposes their progress snapshots to the HTTP and
// websocket layers.
type OperationService struct {
	manager *operations.Manager
	hub     BuildHub
	data    *DataService
	paths   *config.Paths
	logger  *slog.Logger

	mu       sync.Mutex
	building bool

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewOperationService wires the build pipeline against the executable's
// directory layout.
func NewOperationService(hub BuildHub, data *DataService, cfg *config.Config, logger *slog.Logger) (*OperationService, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	return NewOperationServiceWithPaths(hub, data, cfg, paths, logger)
}

// NewOperationServiceWithPaths wires the build pipeline over an
// explicit path layout.
func NewOperationServiceWithPaths(hub BuildHub, data *DataService, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*OperationService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := operations.NewRegistry()
	manager := operations.NewManager(hub, registry, operations.NewConfig(), logger)

	workers := 0
	if cfg != nil {
		workers = cfg.BuildWorkers()
	}
	err := operations.RegisterPipeline(registry, logger, &operations.StepOptions{
		SourceDir:   paths.RawDir,
		DatasetDir:  paths.ProcessedDir,
		Workers:     workers,
		Broadcaster: manager.Broadcaster(),
		Publisher:   data,
	})
	if err != nil {
		manager.Stop()
		return nil, fmt.Errorf("register build pipeline: %w", err)
	}

	s := &OperationService{
		manager: manager,
		hub:     hub,
		data:    data,
		paths:   paths,
		logger:  logger,
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepSnapshots()

	logger.Info("OperationService initialized",
		slog.String("source_dir", paths.RawDir),
		slog.Int("workers", workers))
	return s, nil
}

// StartRebuild launches a dataset build in the background and returns
// its operation ID. Only one build runs at a time; a second request
// while one is active fails with ErrBuildInProgress. Unless the request
// forces it, a rebuild is refused while no raw file is newer than the
// last finished build.
func (s *OperationService) StartRebuild(ctx context.Context, req v1.RebuildRequest) (string, error) {
	if !req.Force && len(req.Files) == 0 && s.upToDate() {
		return "", apperrors.ErrBuildUpToDate
	}

	s.mu.Lock()
	if s.building {
		s.mu.Unlock()
		return "", apperrors.ErrBuildInProgress
	}
	s.building = true
	s.mu.Unlock()

	id := uuid.New().String()
	params := map[string]interface{}{}
	if len(req.Files) > 0 {
		params[operations.CtxKeyFiles] = req.Files
	}

	s.logger.InfoContext(ctx, "build requested",
		slog.String("operation_id", id),
		slog.Int("requested_files", len(req.Files)),
		slog.Bool("force", req.Force))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.building = false
			s.mu.Unlock()
		}()
		s.runBuild(id, params)
	}()

	return id, nil
}

// runBuild executes the pipeline detached from the triggering request.
// Cancellation goes through CancelOperation, not the HTTP context.
func (s *OperationService) runBuild(id string, params map[string]interface{}) {
	resp, err := s.manager.Execute(context.Background(), operations.OperationRequest{
		ID:         id,
		SourceDir:  s.paths.RawDir,
		DatasetDir: s.paths.ProcessedDir,
		Parameters: params,
	})
	if err != nil {
		s.logger.Error("build failed",
			slog.String("operation_id", id),
			slog.String("error", err.Error()))
		return
	}

	rows := s.data.RowCount()
	s.logger.Info("build finished",
		slog.String("operation_id", id),
		slog.String("status", string(resp.Status)),
		slog.Duration("duration", resp.Duration),
		slog.Int("rows", rows))
	if s.hub != nil {
		s.hub.BroadcastRefresh(id, rows)
	}
}

// upToDate reports whether every raw file predates the last finished
// build. Deletions alone do not count as changes; force a rebuild to
// pick those up.
func (s *OperationService) upToDate() bool {
	snap, err := s.data.Snapshot()
	if err != nil {
		return false
	}
	builtAt := snap.Report.FinishedAt
	if builtAt.IsZero() {
		return false
	}

	sources, err := files.NewDiscovery("").FindSourceFiles(s.paths.RawDir)
	if err != nil || len(sources) == 0 {
		return false
	}
	infos := make([]files.FileInfo, 0, len(sources))
	for _, src := range sources {
		infos = append(infos, src.FileInfo)
	}
	latest, ok := files.GetLatestFile(infos)
	if !ok {
		return false
	}
	return !latest.ModTime.After(builtAt)
}

// Status returns the progress snapshot of one operation. Finished
// operations remain available until the retention sweep removes them.
func (s *OperationService) Status(id string) (*operations.OperationSnapshot, error) {
	snap, ok := s.manager.Broadcaster().GetSnapshot(id)
	if !ok {
		return nil, apperrors.ErrUnknownOperation
	}
	return snap, nil
}

// List returns progress snapshots of all known operations.
func (s *OperationService) List() []*operations.OperationSnapshot {
	return s.manager.Broadcaster().GetAllSnapshots()
}

// Cancel stops a running operation.
func (s *OperationService) Cancel(id string) error {
	err := s.manager.CancelOperation(id)
	if errors.Is(err, operations.ErrOperationNotFound) {
		return apperrors.ErrUnknownOperation
	}
	return err
}

// ActiveCount returns the number of operations currently executing.
func (s *OperationService) ActiveCount() int {
	return s.manager.ActiveCount()
}

// Manager exposes the underlying operations manager.
func (s *OperationService) Manager() *operations.Manager {
	return s.manager
}

func (s *OperationService) sweepSnapshots() {
	defer s.wg.Done()
	ticker := time.NewTicker(snapshotSweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.manager.Broadcaster().CleanupOldOperations(snapshotRetention); removed > 0 {
				s.logger.Debug("operation snapshots swept", slog.Int("removed", removed))
			}
		case <-s.done:
			return
		}
	}
}

// Stop cancels running operations and waits for background work to
// finish.
func (s *OperationService) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		for _, op := range s.manager.ListOperations() {
			if err := s.manager.CancelOperation(op.ID); err != nil {
				s.logger.Warn("cancel on shutdown failed",
					slog.String("operation_id", op.ID),
					slog.String("error", err.Error()))
			}
		}
		s.wg.Wait()
		s.manager.Stop()
	})
}
