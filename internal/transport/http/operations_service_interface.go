package http

import (
	"context"

	"watchlens/internal/operations"
	v1 "watchlens/pkg/contracts/api/v1"
)

// BuildService is the operations service surface the handlers use to
// trigger and observe dataset builds.
type BuildService interface {
	// StartRebuild launches a build in the background and returns its
	// operation ID. It returns errors.ErrBuildInProgress while another
	// build is running and errors.ErrBuildUpToDate when nothing changed
	// and the request did not force.
	StartRebuild(ctx context.Context, req v1.RebuildRequest) (string, error)

	// Status returns the snapshot of one operation, or
	// errors.ErrUnknownOperation.
	Status(id string) (*operations.OperationSnapshot, error)

	// List returns snapshots of all retained operations, newest first.
	List() []*operations.OperationSnapshot

	// Cancel requests cancellation of a running operation.
	Cancel(id string) error
}
