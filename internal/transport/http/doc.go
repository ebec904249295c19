// Package http implements the HTTP handlers behind the WatchLens
// dashboard. It is a thin layer between chi and the service packages:
// handlers parse and validate the request, call one service method, and
// render the result.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service
//	                                              ↓
//	HTTP Response ← render.JSON / CSV stream ←───┘
//
// Handlers never touch the raw exports or the artifact files. They read
// from the in-memory dataset snapshot held by services.DataService, so
// every endpoint answers from one consistent build even while a rebuild
// is running.
//
// # Analytics Endpoints
//
// The dashboard endpoints share one query-string filter grammar, parsed
// by ParseWatchFilter into a domain.WatchFilter. Each endpoint applies
// the filter to the snapshot and computes its payload with the analytics
// package. An empty result is a normal zero-valued payload, not an
// error; only a server with no built dataset at all answers 503.
//
// # Error Handling
//
// Errors render as RFC 7807 problem documents through
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/dataset/not-built",
//	    "title": "Dataset Not Built",
//	    "status": 503,
//	    "detail": "No assembled dataset is available yet",
//	    "instance": "/api/data/metrics"
//	}
//
// Handlers map service sentinels (dataset not built, build in progress,
// unknown operation) through the shared handler rather than writing
// status codes by hand.
package http
