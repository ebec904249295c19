package operations

import (
	"context"
	"sync"
	"time"
)

// Step is one unit of work in a build. Implementations read their inputs
// from the operation state, do their work, and write their outputs back
// for the steps that follow.
type Step interface {
	// ID returns the stable identifier used for dependencies, timeouts
	// and snapshot matching.
	ID() string

	// Name returns the human-readable name shown to dashboard clients.
	Name() string

	// Execute runs the step. It must respect ctx cancellation.
	Execute(ctx context.Context, state *OperationState) error

	// Validate checks whether the step can run against the current
	// state. A non-nil error skips the step without executing it.
	Validate(state *OperationState) error

	// Dependencies returns the IDs of steps that must complete first.
	Dependencies() []string
}

// StepStatus is the lifecycle state of a single step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the runtime state of one step within an operation.
type StepState struct {
	mu sync.RWMutex

	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StepStatus             `json:"status"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Progress  float64                `json:"progress"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStepState creates a pending step state.
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:       id,
		Name:     name,
		Status:   StepStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start marks the step running and stamps the start time.
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.EndTime = nil
	s.Status = StepStatusRunning
	s.Progress = 0
	s.Error = ""
}

// Complete marks the step completed.
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
	s.Progress = 100
}

// Fail marks the step failed with the given error.
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	if err != nil {
		s.Error = err.Error()
	}
}

// Skip marks the step skipped with the given reason.
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusSkipped
	s.Message = reason
}

// UpdateProgress records step progress and a message for the snapshot.
func (s *StepState) UpdateProgress(progress float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Progress = progress
	s.Message = message
}

// SetMetadata attaches a key/value pair carried into snapshots and logs.
func (s *StepState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Metadata == nil {
		s.Metadata = make(map[string]interface{})
	}
	s.Metadata[key] = value
}

// CurrentStatus returns the status under the read lock.
func (s *StepState) CurrentStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// CurrentProgress returns the progress under the read lock.
func (s *StepState) CurrentProgress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Progress
}

// Duration returns how long the step has run, or took to run.
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// Clone returns a copy safe to hand outside the package.
func (s *StepState) Clone() *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &StepState{
		ID:       s.ID,
		Name:     s.Name,
		Status:   s.Status,
		Progress: s.Progress,
		Message:  s.Message,
		Error:    s.Error,
	}
	if s.StartTime != nil {
		t := *s.StartTime
		clone.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		clone.EndTime = &t
	}
	if len(s.Metadata) > 0 {
		clone.Metadata = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// BaseStep carries the identity shared by every step implementation.
type BaseStep struct {
	id           string
	name         string
	dependencies []string
}

// NewBaseStep creates the embedded identity for a step.
func NewBaseStep(id, name string, dependencies []string) BaseStep {
	if dependencies == nil {
		dependencies = []string{}
	}
	return BaseStep{
		id:           id,
		name:         name,
		dependencies: dependencies,
	}
}

// ID returns the step identifier.
func (b *BaseStep) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Name returns the step name.
func (b *BaseStep) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Dependencies returns the IDs of the steps this one waits for.
func (b *BaseStep) Dependencies() []string {
	if b == nil {
		return nil
	}
	return b.dependencies
}

// Validate passes by default; steps override it when they have
// preconditions worth checking before execution.
func (b *BaseStep) Validate(state *OperationState) error {
	return nil
}
