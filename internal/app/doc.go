// Package app assembles the WatchLens dashboard server: configuration,
// logging, OpenTelemetry, the WebSocket hub, the dataset and build
// services, the chi router and the embedded dashboard pages.
//
// The package exposes two constructors. NewApplication reads the
// process environment and roots all paths at the executable, which is
// what cmd/web uses. NewApplicationWithConfig takes every dependency
// explicitly so tests can run against a temporary directory without
// exporters.
//
// Lifecycle: Run blocks until SIGINT or SIGTERM, then drains the HTTP
// server, stops any running build and closes the hub. Start loads the
// last published dataset from disk before the server accepts requests,
// so the first page load never races the snapshot.
package app
