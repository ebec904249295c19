// Package services contains the business logic layer of the dashboard
// server, sitting between the HTTP transport and the data packages.
//
// Three services carry the whole surface:
//
//   - DataService owns the in-memory dataset snapshot and the artifact
//     files it is persisted to. Builds publish new generations through
//     it and every read path starts from it. Snapshots are immutable
//     and swapped wholesale, so readers never need a lock beyond the
//     pointer load.
//
//   - OperationService runs dataset builds through the operations
//     manager, one at a time. It hands out operation IDs for the
//     rebuild endpoint, exposes progress snapshots for polling, and
//     broadcasts a refresh event when a build lands.
//
//   - HealthService aggregates per-component checks for the health,
//     readiness and liveness endpoints and collects system statistics.
//
// Services accept dependencies through their constructors and return
// the sentinel errors of internal/errors. The transport layer maps
// those onto RFC 7807 problem responses, keeping status-code decisions
// out of this package.
package services
