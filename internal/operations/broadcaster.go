package operations

import (
	"log/slog"
	"sync"
	"time"
)

// EventHub fans messages out to connected dashboard clients. The
// websocket hub satisfies it; tests substitute a recorder.
type EventHub interface {
	BroadcastJSON(message map[string]interface{})
}

// StatusBroadcaster is the single authority for operation status seen by
// clients. Every change goes through it, it applies changes one at a
// time, and it always broadcasts the complete snapshot rather than a
// delta, so clients never need to reassemble state from fragments.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        EventHub
	logger     *slog.Logger
	updates    chan updateRequest
	stop       chan struct{}
	stopOnce   sync.Once
}

// OperationSnapshot is the complete state of one operation at a point in
// time, shaped for the dashboard.
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Status      string         `json:"status"`
	Progress    int            `json:"progress"`
	CurrentStep string         `json:"current_step,omitempty"`
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot is the client-facing state of a single step.
type StepSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`
	Progress int                    `json:"progress"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type updateRequest struct {
	operationID string
	apply       func(*OperationSnapshot)
	done        chan struct{}
}

// NewStatusBroadcaster creates a broadcaster pushing snapshots to hub.
// A nil hub is allowed; snapshots are then kept for polling only.
func NewStatusBroadcaster(hub EventHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	sb := &StatusBroadcaster{
		operations: make(map[string]*OperationSnapshot),
		hub:        hub,
		logger:     logger,
		updates:    make(chan updateRequest, 100),
		stop:       make(chan struct{}),
	}
	go sb.processUpdates()
	return sb
}

// processUpdates applies updates strictly one at a time.
func (sb *StatusBroadcaster) processUpdates() {
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	snapshot, exists := sb.operations[req.operationID]
	if !exists {
		snapshot = &OperationSnapshot{
			OperationID: req.operationID,
			Status:      string(OperationStatusPending),
			StartedAt:   time.Now(),
			Steps:       []StepSnapshot{},
		}
		sb.operations[req.operationID] = snapshot
	}

	req.apply(snapshot)
	snapshot.UpdatedAt = time.Now()

	if len(snapshot.Steps) > 0 {
		total := 0
		for _, step := range snapshot.Steps {
			total += step.Progress
		}
		snapshot.Progress = total / len(snapshot.Steps)
	}

	if terminalSnapshotStatus(snapshot.Status) && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}

	out := copySnapshot(snapshot)
	sb.mu.Unlock()

	sb.broadcast(out)
}

func terminalSnapshotStatus(status string) bool {
	return OperationStatus(status).Terminal()
}

// broadcast pushes one complete snapshot to all connected clients.
func (sb *StatusBroadcaster) broadcast(snapshot *OperationSnapshot) {
	if sb.hub == nil {
		return
	}

	sb.logger.Debug("broadcasting operation snapshot",
		slog.String("operation_id", snapshot.OperationID),
		slog.String("status", snapshot.Status),
		slog.Int("progress", snapshot.Progress),
		slog.String("current_step", snapshot.CurrentStep))

	sb.hub.BroadcastJSON(map[string]interface{}{
		"type":      EventOperationSnapshot,
		"data":      snapshot,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// update queues a snapshot mutation and waits until it has been applied
// and broadcast, so callers observe their own writes.
func (sb *StatusBroadcaster) update(operationID string, apply func(*OperationSnapshot)) {
	req := updateRequest{
		operationID: operationID,
		apply:       apply,
		done:        make(chan struct{}),
	}

	select {
	case sb.updates <- req:
		// The queue is buffered, so the send can win even while the
		// broadcaster is stopping. Wait on stop too or this would hang
		// on a request nobody will process.
		select {
		case <-req.done:
		case <-sb.stop:
		}
	case <-sb.stop:
	}
}

// CreateOperation seeds the snapshot with every step the run will
// execute, all pending, so clients render the full plan immediately.
func (sb *StatusBroadcaster) CreateOperation(operationID string, steps []Step) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusPending)
		snapshot.Progress = 0
		snapshot.Steps = make([]StepSnapshot, len(steps))
		for i, step := range steps {
			snapshot.Steps[i] = StepSnapshot{
				ID:     step.ID(),
				Name:   step.Name(),
				Status: string(StepStatusPending),
			}
		}
		snapshot.Message = "build created"
	})
}

// StartOperation marks the operation running.
func (sb *StatusBroadcaster) StartOperation(operationID string) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusRunning)
		snapshot.Message = "build started"
	})
}

// StartStep marks a step running and makes it the current step.
func (sb *StatusBroadcaster) StartStep(operationID, stepID string) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = string(StepStatusRunning)
				snapshot.Steps[i].Error = ""
				snapshot.CurrentStep = snapshot.Steps[i].Name
				return
			}
		}
	})
}

// UpdateStepProgress records step progress. Progress never moves
// backwards while a step is running; late updates from slow goroutines
// would otherwise make the bar jump around.
func (sb *StatusBroadcaster) UpdateStepProgress(operationID, stepID string, progress int, message string) {
	sb.UpdateStepWithMetadata(operationID, stepID, progress, message, nil)
}

// UpdateStepWithMetadata records step progress plus step metadata shown
// in the dashboard's build detail view.
func (sb *StatusBroadcaster) UpdateStepWithMetadata(operationID, stepID string, progress int, message string, metadata map[string]interface{}) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID != stepID {
				continue
			}
			step := &snapshot.Steps[i]
			if !(step.Status == string(StepStatusRunning) && progress < step.Progress) {
				step.Progress = progress
			}
			step.Message = message
			if metadata != nil {
				step.Metadata = metadata
			}
			if progress > 0 && progress < 100 && step.Status == string(StepStatusPending) {
				step.Status = string(StepStatusRunning)
				snapshot.CurrentStep = step.Name
			}
			return
		}
	})
}

// CompleteStep marks a step completed.
func (sb *StatusBroadcaster) CompleteStep(operationID, stepID string, message string) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = string(StepStatusCompleted)
				snapshot.Steps[i].Progress = 100
				snapshot.Steps[i].Message = message
				return
			}
		}
	})
}

// FailStep marks a step failed.
func (sb *StatusBroadcaster) FailStep(operationID, stepID string, err error) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = string(StepStatusFailed)
				if err != nil {
					snapshot.Steps[i].Error = err.Error()
				}
				return
			}
		}
	})
}

// SkipStep marks a step skipped with the reason.
func (sb *StatusBroadcaster) SkipStep(operationID, stepID, reason string) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = string(StepStatusSkipped)
				snapshot.Steps[i].Message = reason
				return
			}
		}
	})
}

// CompleteOperation marks the operation completed. Steps still pending
// or running are folded into completed so the bar reaches 100.
func (sb *StatusBroadcaster) CompleteOperation(operationID string, message string) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusCompleted)
		snapshot.Progress = 100
		snapshot.CurrentStep = ""
		snapshot.Message = message
		for i := range snapshot.Steps {
			switch snapshot.Steps[i].Status {
			case string(StepStatusPending), string(StepStatusRunning):
				snapshot.Steps[i].Status = string(StepStatusCompleted)
				snapshot.Steps[i].Progress = 100
			}
		}
	})
}

// FailOperation marks the operation failed.
func (sb *StatusBroadcaster) FailOperation(operationID string, err error) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusFailed)
		snapshot.CurrentStep = ""
		if err != nil {
			snapshot.Error = err.Error()
		}
	})
}

// CancelOperation marks the operation cancelled.
func (sb *StatusBroadcaster) CancelOperation(operationID string) {
	sb.update(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusCancelled)
		snapshot.CurrentStep = ""
		snapshot.Message = "build cancelled"
	})
}

// GetSnapshot returns a copy of one operation's snapshot.
func (sb *StatusBroadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.operations[operationID]
	if !exists {
		return nil, false
	}
	return copySnapshot(snapshot), true
}

// GetAllSnapshots returns copies of every tracked operation snapshot.
func (sb *StatusBroadcaster) GetAllSnapshots() []*OperationSnapshot {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshots := make([]*OperationSnapshot, 0, len(sb.operations))
	for _, snapshot := range sb.operations {
		snapshots = append(snapshots, copySnapshot(snapshot))
	}
	return snapshots
}

// CleanupOldOperations drops terminal operations older than maxAge and
// returns how many were removed.
func (sb *StatusBroadcaster) CleanupOldOperations(maxAge time.Duration) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, snapshot := range sb.operations {
		if !terminalSnapshotStatus(snapshot.Status) || snapshot.CompletedAt == nil {
			continue
		}
		if now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(sb.operations, id)
			removed++
			sb.logger.Info("dropped finished operation",
				slog.String("operation_id", id),
				slog.String("status", snapshot.Status),
				slog.Duration("age", now.Sub(*snapshot.CompletedAt)))
		}
	}
	return removed
}

// Stop shuts the broadcaster down. Safe to call more than once.
func (sb *StatusBroadcaster) Stop() {
	sb.stopOnce.Do(func() {
		close(sb.stop)
	})
}

func copySnapshot(snapshot *OperationSnapshot) *OperationSnapshot {
	out := *snapshot
	out.Steps = make([]StepSnapshot, len(snapshot.Steps))
	copy(out.Steps, snapshot.Steps)
	for i := range out.Steps {
		if len(out.Steps[i].Metadata) == 0 {
			continue
		}
		meta := make(map[string]interface{}, len(out.Steps[i].Metadata))
		for k, v := range out.Steps[i].Metadata {
			meta[k] = v
		}
		out.Steps[i].Metadata = meta
	}
	if snapshot.CompletedAt != nil {
		t := *snapshot.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
