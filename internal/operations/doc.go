// Package operations runs the dataset build as a sequence of steps with
// per-step state, retries and timeouts. Progress is pushed to dashboard
// clients as complete operation snapshots through the websocket hub, so
// a client that connects mid-build still sees the whole picture.
package operations
