// Package websocket pushes dataset build progress to connected
// dashboard pages. A single Hub fans typed JSON events out to every
// client; clients that stop draining their send buffer are dropped so
// one stalled browser tab cannot block a rebuild broadcast.
package websocket
