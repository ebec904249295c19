package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager runs operations. It owns the step registry, enforces
// dependency order, applies per-step timeouts and retries, and reports
// every state change through the status broadcaster.
type Manager struct {
	registry    *Registry
	config      *Config
	broadcaster *StatusBroadcaster
	logger      *slog.Logger

	mu      sync.RWMutex
	running map[string]*runningOperation
}

// runningOperation pairs an in-flight operation with the cancel func
// that stops it.
type runningOperation struct {
	state  *OperationState
	cancel context.CancelFunc
}

// NewManager creates a manager broadcasting through hub. A nil hub
// disables pushes; snapshots stay available for polling.
func NewManager(hub EventHub, registry *Registry, config *Config, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		registry:    registry,
		config:      config,
		broadcaster: NewStatusBroadcaster(hub, logger),
		logger:      logger,
		running:     make(map[string]*runningOperation),
	}
}

// RegisterStep adds a step to the registry.
func (m *Manager) RegisterStep(step Step) error {
	return m.registry.Register(step)
}

// Registry returns the step registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Broadcaster returns the status broadcaster, the read side for
// operation status queries.
func (m *Manager) Broadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// Config returns the active configuration.
func (m *Manager) Config() *Config {
	return m.config
}

// Execute runs an operation to completion and returns its outcome. The
// request's StepID narrows the run to one registered step; otherwise
// every registered step runs in dependency order.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := NewOperationState(req.ID)
	if req.SourceDir != "" {
		state.SetConfig(CtxKeySourceDir, req.SourceDir)
	}
	if req.DatasetDir != "" {
		state.SetConfig(CtxKeyDatasetDir, req.DatasetDir)
	}
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.storeOperation(state, cancel)
	defer m.removeOperation(req.ID)

	steps, err := m.resolveSteps(req)
	if err != nil {
		m.logger.ErrorContext(ctx, "operation rejected",
			slog.String("operation_id", req.ID),
			slog.String("error", err.Error()))
		state.Fail(err)
		m.broadcaster.FailOperation(req.ID, err)
		return m.response(state), err
	}

	for _, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}
	m.broadcaster.CreateOperation(req.ID, steps)

	m.logger.InfoContext(ctx, "operation started",
		slog.String("operation_id", req.ID),
		slog.Int("steps", len(steps)))

	state.Start()
	m.broadcaster.StartOperation(req.ID)

	err = m.executeSequential(runCtx, state, steps)

	switch {
	case err == nil:
		state.Complete()
		m.broadcaster.CompleteOperation(req.ID, "build completed")
		m.logger.InfoContext(ctx, "operation completed",
			slog.String("operation_id", req.ID),
			slog.Duration("duration", state.Duration()))
	case IsCancellation(err) || state.CurrentStatus() == OperationStatusCancelled:
		state.Cancel()
		m.broadcaster.CancelOperation(req.ID)
		m.logger.WarnContext(ctx, "operation cancelled",
			slog.String("operation_id", req.ID),
			slog.Duration("duration", state.Duration()))
	default:
		state.Fail(err)
		m.broadcaster.FailOperation(req.ID, err)
		m.logger.ErrorContext(ctx, "operation failed",
			slog.String("operation_id", req.ID),
			slog.Duration("duration", state.Duration()),
			slog.String("error", err.Error()))
	}

	return m.response(state), err
}

// resolveSteps picks the steps for the request in execution order.
func (m *Manager) resolveSteps(req OperationRequest) ([]Step, error) {
	if req.StepID != "" {
		step, err := m.registry.Get(req.StepID)
		if err != nil {
			return nil, fmt.Errorf("requested step not found: %w", err)
		}
		return []Step{step}, nil
	}

	steps, err := m.registry.DependencyOrder()
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps registered")
	}
	return steps, nil
}

// executeSequential runs steps in order, stopping at the first failure
// unless the configuration says to continue.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for _, step := range steps {
		select {
		case <-ctx.Done():
			return NewCancellationError(step.ID())
		default:
		}

		stepState := state.GetStep(step.ID())
		if stepState != nil && stepState.CurrentStatus() == StepStatusSkipped {
			continue
		}

		if err := m.executeStep(ctx, state, step); err != nil {
			if IsCancellation(err) {
				return err
			}
			if !m.config.ContinueOnError {
				m.skipDependents(state, steps, step.ID())
				return err
			}
			m.logger.Warn("step failed, continuing",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// executeStep runs one step with dependency checks, validation, a fresh
// timeout per attempt, and retries for retryable failures.
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("no state for step %q", step.ID()), nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		reason := fmt.Sprintf("dependencies not met: %v", err)
		stepState.Skip(reason)
		m.broadcaster.SkipStep(state.ID, step.ID(), reason)
		return err
	}

	if err := step.Validate(state); err != nil {
		reason := fmt.Sprintf("validation failed: %v", err)
		stepState.Skip(reason)
		m.broadcaster.SkipStep(state.ID, step.ID(), reason)
		return NewValidationError(step.ID(), err.Error())
	}

	timeout := m.config.StepTimeout(step.ID())
	retry := m.config.Retry
	var lastErr error

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := retryDelay(attempt-1, retry)
			m.logger.Warn("retrying step",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", retry.MaxAttempts),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return NewCancellationError(step.ID())
			}
		}

		stepState.Start()
		m.broadcaster.StartStep(state.ID, step.ID())

		// Each attempt gets its own deadline; a retry after a timeout
		// starts with a full budget.
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		err := step.Execute(stepCtx, state)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			stepState.Complete()
			m.broadcaster.CompleteStep(state.ID, step.ID(), "completed")
			m.logger.Info("step completed",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Duration("duration", elapsed))
			return nil
		}

		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			cancelErr := NewCancellationError(step.ID())
			stepState.Fail(cancelErr)
			m.broadcaster.FailStep(state.ID, step.ID(), cancelErr)
			return cancelErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = NewTimeoutError(step.ID(), timeout.String())
		}

		m.logger.Error("step execution failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()))

		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	stepState.Fail(lastErr)
	m.broadcaster.FailStep(state.ID, step.ID(), lastErr)
	return WrapError(lastErr, step.ID(), "step failed")
}

// skipDependents marks every step downstream of the failed one skipped,
// transitively.
func (m *Manager) skipDependents(state *OperationState, steps []Step, failedID string) {
	for _, step := range steps {
		for _, dep := range step.Dependencies() {
			if dep != failedID {
				continue
			}
			stepState := state.GetStep(step.ID())
			if stepState != nil && stepState.CurrentStatus() == StepStatusPending {
				reason := fmt.Sprintf("dependency %s failed", failedID)
				stepState.Skip(reason)
				m.broadcaster.SkipStep(state.ID, step.ID(), reason)
				m.skipDependents(state, steps, step.ID())
			}
			break
		}
	}
}

// checkDependencies verifies every dependency completed.
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.Dependencies() {
		depState := state.GetStep(dep)
		if depState == nil {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not part of this run", dep))
		}
		if status := depState.CurrentStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not completed (status %s)", dep, status))
		}
	}
	return nil
}

// retryDelay returns the backoff before retry number n, growing
// geometrically from the initial delay up to the cap.
func retryDelay(n int, retry RetryConfig) time.Duration {
	delay := retry.InitialDelay
	for i := 1; i < n; i++ {
		delay = time.Duration(float64(delay) * retry.Multiplier)
		if delay >= retry.MaxDelay {
			return retry.MaxDelay
		}
	}
	if delay > retry.MaxDelay {
		return retry.MaxDelay
	}
	return delay
}

// GetOperation returns a copy of an in-flight operation's state.
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, exists := m.running[id]
	if !exists {
		return nil, ErrOperationNotFound
	}
	return op.state.Clone(), nil
}

// ListOperations returns copies of all in-flight operations.
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]*OperationState, 0, len(m.running))
	for _, op := range m.running {
		states = append(states, op.state.Clone())
	}
	return states
}

// ActiveCount returns how many operations are currently in flight.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.running)
}

// CancelOperation stops a running operation. The in-flight step sees
// its context cancelled; steps after it never start.
func (m *Manager) CancelOperation(id string) error {
	m.mu.Lock()
	op, exists := m.running[id]
	m.mu.Unlock()

	if !exists {
		return ErrOperationNotFound
	}
	if op.state.CurrentStatus().Terminal() {
		return ErrOperationNotRunning
	}

	op.state.Cancel()
	op.cancel()
	m.logger.Info("operation cancel requested", slog.String("operation_id", id))
	return nil
}

// Stop shuts down the broadcaster. Run no operations after calling it.
func (m *Manager) Stop() {
	m.broadcaster.Stop()
}

func (m *Manager) response(state *OperationState) *OperationResponse {
	clone := state.Clone()
	resp := &OperationResponse{
		ID:       clone.ID,
		Status:   clone.Status,
		Duration: clone.Duration(),
		Steps:    clone.Steps,
	}
	if clone.Error != nil {
		resp.Error = clone.Error.Error()
	}
	return resp
}

func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[state.ID] = &runningOperation{state: state, cancel: cancel}
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.running, id)
}
