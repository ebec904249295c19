package operations

import (
	"sync"
	"time"
)

// OperationStatus is the lifecycle state of a whole operation.
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s OperationStatus) Terminal() bool {
	switch s {
	case OperationStatusCompleted, OperationStatusFailed, OperationStatusCancelled:
		return true
	}
	return false
}

// OperationState is the complete state of one build run: overall status,
// per-step states, and two keyed stores. Config holds request inputs,
// Context holds values steps produce for the steps after them.
type OperationState struct {
	mu sync.RWMutex

	ID        string          `json:"id"`
	Status    OperationStatus `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`

	Steps   map[string]*StepState  `json:"steps"`
	Context map[string]interface{} `json:"context"`
	Config  map[string]interface{} `json:"config"`

	Error error `json:"-"`
}

// NewOperationState creates a pending operation state.
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
		Config:    make(map[string]interface{}),
	}
}

// Start marks the operation running.
func (o *OperationState) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Status = OperationStatusRunning
	o.StartTime = time.Now()
}

// Complete marks the operation completed.
func (o *OperationState) Complete() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Status.Terminal() {
		return
	}
	now := time.Now()
	o.EndTime = &now
	o.Status = OperationStatusCompleted
}

// Fail marks the operation failed. A cancelled operation stays
// cancelled; the cancellation is the cause, not a failure.
func (o *OperationState) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Status.Terminal() {
		return
	}
	now := time.Now()
	o.EndTime = &now
	o.Status = OperationStatusFailed
	o.Error = err
}

// Cancel marks the operation cancelled.
func (o *OperationState) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Status.Terminal() {
		return
	}
	now := time.Now()
	o.EndTime = &now
	o.Status = OperationStatusCancelled
}

// CurrentStatus returns the status under the read lock.
func (o *OperationState) CurrentStatus() OperationStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.Status
}

// GetStep returns the state of one step, or nil if it was never set.
func (o *OperationState) GetStep(stepID string) *StepState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.Steps[stepID]
}

// SetStep installs the state of one step.
func (o *OperationState) SetStep(stepID string, state *StepState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Steps[stepID] = state
}

// GetContext reads a value produced by an earlier step.
func (o *OperationState) GetContext(key string) (interface{}, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	val, ok := o.Context[key]
	return val, ok
}

// SetContext publishes a value for later steps.
func (o *OperationState) SetContext(key string, value interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Context[key] = value
}

// GetConfig reads a request-scoped configuration value.
func (o *OperationState) GetConfig(key string) (interface{}, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	val, ok := o.Config[key]
	return val, ok
}

// ConfigString reads a configuration value as a string. Missing keys and
// non-string values return the empty string.
func (o *OperationState) ConfigString(key string) string {
	val, ok := o.GetConfig(key)
	if !ok {
		return ""
	}
	s, _ := val.(string)
	return s
}

// SetConfig stores a request-scoped configuration value.
func (o *OperationState) SetConfig(key string, value interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Config[key] = value
}

// Duration returns the operation's elapsed or total wall time.
func (o *OperationState) Duration() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.EndTime != nil {
		return o.EndTime.Sub(o.StartTime)
	}
	return time.Since(o.StartTime)
}

// IsComplete reports whether every step reached a terminal status.
func (o *OperationState) IsComplete() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, step := range o.Steps {
		switch step.CurrentStatus() {
		case StepStatusPending, StepStatusRunning:
			return false
		}
	}
	return true
}

// HasFailures reports whether any step failed.
func (o *OperationState) HasFailures() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, step := range o.Steps {
		if step.CurrentStatus() == StepStatusFailed {
			return true
		}
	}
	return false
}

// FailedSteps returns the IDs of failed steps in no particular order.
func (o *OperationState) FailedSteps() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var failed []string
	for id, step := range o.Steps {
		if step.CurrentStatus() == StepStatusFailed {
			failed = append(failed, id)
		}
	}
	return failed
}

// Clone returns a deep copy safe to hand outside the package.
func (o *OperationState) Clone() *OperationState {
	o.mu.RLock()
	defer o.mu.RUnlock()

	clone := &OperationState{
		ID:        o.ID,
		Status:    o.Status,
		StartTime: o.StartTime,
		Steps:     make(map[string]*StepState, len(o.Steps)),
		Context:   make(map[string]interface{}, len(o.Context)),
		Config:    make(map[string]interface{}, len(o.Config)),
		Error:     o.Error,
	}
	if o.EndTime != nil {
		t := *o.EndTime
		clone.EndTime = &t
	}
	for id, step := range o.Steps {
		clone.Steps[id] = step.Clone()
	}
	for k, v := range o.Context {
		clone.Context[k] = v
	}
	for k, v := range o.Config {
		clone.Config[k] = v
	}
	return clone
}
