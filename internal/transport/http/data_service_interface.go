package http

import (
	"watchlens/internal/services"
	"watchlens/pkg/contracts/domain"
)

// DataProvider is the read side of the dataset service as the handlers
// see it. Reads are served from the in-memory snapshot and never block
// on I/O, so the methods take no context.
type DataProvider interface {
	// Status describes what the server is currently serving. It never
	// fails; an unbuilt dataset reports Built: false.
	Status() services.DatasetStatus

	// Snapshot returns the current immutable dataset snapshot, or
	// errors.ErrDatasetNotBuilt before the first build or load.
	Snapshot() (*services.Snapshot, error)

	// Report returns the build report persisted with the snapshot.
	Report() (domain.BuildReport, error)
}
