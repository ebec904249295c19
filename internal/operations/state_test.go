package operations

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationStateLifecycle(t *testing.T) {
	state := NewOperationState("op-1")
	assert.Equal(t, OperationStatusPending, state.CurrentStatus())

	state.Start()
	assert.Equal(t, OperationStatusRunning, state.CurrentStatus())

	state.Complete()
	assert.Equal(t, OperationStatusCompleted, state.CurrentStatus())
	require.NotNil(t, state.EndTime)
}

func TestOperationStateTerminalStatusSticks(t *testing.T) {
	tests := []struct {
		name   string
		first  func(*OperationState)
		second func(*OperationState)
		want   OperationStatus
	}{
		{
			name:   "fail after cancel keeps cancelled",
			first:  func(s *OperationState) { s.Cancel() },
			second: func(s *OperationState) { s.Fail(errors.New("late failure")) },
			want:   OperationStatusCancelled,
		},
		{
			name:   "cancel after complete keeps completed",
			first:  func(s *OperationState) { s.Complete() },
			second: func(s *OperationState) { s.Cancel() },
			want:   OperationStatusCompleted,
		},
		{
			name:   "complete after fail keeps failed",
			first:  func(s *OperationState) { s.Fail(errors.New("boom")) },
			second: func(s *OperationState) { s.Complete() },
			want:   OperationStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewOperationState("op")
			state.Start()
			tt.first(state)
			tt.second(state)
			assert.Equal(t, tt.want, state.CurrentStatus())
		})
	}
}

func TestOperationStatusTerminal(t *testing.T) {
	assert.False(t, OperationStatusPending.Terminal())
	assert.False(t, OperationStatusRunning.Terminal())
	assert.True(t, OperationStatusCompleted.Terminal())
	assert.True(t, OperationStatusFailed.Terminal())
	assert.True(t, OperationStatusCancelled.Terminal())
}

func TestOperationStateContextAndConfig(t *testing.T) {
	state := NewOperationState("op")

	state.SetContext(CtxKeyRowsRead, 120)
	val, ok := state.GetContext(CtxKeyRowsRead)
	require.True(t, ok)
	assert.Equal(t, 120, val)

	_, ok = state.GetContext("missing")
	assert.False(t, ok)

	state.SetConfig(CtxKeySourceDir, "/srv/raw")
	state.SetConfig("workers", 4)
	assert.Equal(t, "/srv/raw", state.ConfigString(CtxKeySourceDir))
	assert.Equal(t, "", state.ConfigString("missing"))
	assert.Equal(t, "", state.ConfigString("workers"))
}

func TestOperationStateStepQueries(t *testing.T) {
	state := NewOperationState("op")
	state.SetStep("scan", NewStepState("scan", "Source Scan"))
	state.SetStep("ingest", NewStepState("ingest", "Workbook Ingest"))

	assert.Nil(t, state.GetStep("missing"))
	assert.False(t, state.IsComplete())
	assert.False(t, state.HasFailures())
	assert.Empty(t, state.FailedSteps())

	state.GetStep("scan").Complete()
	assert.False(t, state.IsComplete())

	state.GetStep("ingest").Fail(errors.New("locked"))
	assert.True(t, state.IsComplete())
	assert.True(t, state.HasFailures())
	assert.Equal(t, []string{"ingest"}, state.FailedSteps())
}

func TestOperationStateCloneIsIndependent(t *testing.T) {
	state := NewOperationState("op")
	state.Start()
	state.SetStep("scan", NewStepState("scan", "Source Scan"))
	state.GetStep("scan").UpdateProgress(40, "scanning")
	state.SetContext(CtxKeyFilesFound, 3)
	state.SetConfig(CtxKeySourceDir, "/srv/raw")

	clone := state.Clone()
	require.NotSame(t, state, clone)
	assert.Equal(t, state.ID, clone.ID)
	assert.Equal(t, OperationStatusRunning, clone.Status)
	assert.EqualValues(t, 40, clone.Steps["scan"].CurrentProgress())
	assert.Equal(t, 3, clone.Context[CtxKeyFilesFound])
	assert.Equal(t, "/srv/raw", clone.Config[CtxKeySourceDir])

	clone.Steps["scan"].UpdateProgress(90, "changed")
	clone.SetContext(CtxKeyFilesFound, 99)
	assert.EqualValues(t, 40, state.GetStep("scan").CurrentProgress())
	val, _ := state.GetContext(CtxKeyFilesFound)
	assert.Equal(t, 3, val)
}
