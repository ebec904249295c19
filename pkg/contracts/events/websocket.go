// Package events contains event contract definitions for WebSocket
// communication in the WatchLens system.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Core operational message - the primary event type
	MessageTypeOperationSnapshot MessageType = "operation:snapshot"

	// Dataset messages
	MessageTypeDatasetUpdated MessageType = "dataset:updated"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`       // Unique message ID
	Type      MessageType `json:"type"`               // Message type
	Timestamp time.Time   `json:"timestamp"`          // Message timestamp
	TraceID   string      `json:"trace_id,omitempty"` // Request trace ID
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"` // Message payload
}

// OperationSnapshot is the primary message type for all operation updates.
// This is the ONLY message type used for dataset build progress.
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Status      string         `json:"status"`       // pending|running|completed|failed|cancelled
	Progress    int            `json:"progress"`     // 0-100
	CurrentStep string         `json:"current_step"` // Current active step name
	Steps       []StepSnapshot `json:"steps"`        // All steps with their status
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot represents the state of a single step
type StepSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`   // pending|running|completed|failed|skipped
	Progress int                    `json:"progress"` // 0-100
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"` // Per-file ingest details
}

// DatasetUpdatedEvent tells connected dashboards a rebuild finished and
// the in-memory dataset was swapped.
type DatasetUpdatedEvent struct {
	BaseMessage
	Data struct {
		RunID    string `json:"run_id"`
		Rows     int    `json:"rows"`
		Videos   int    `json:"videos"`
		Viewers  int    `json:"viewers"`
		Excluded int    `json:"excluded"`
		DateFrom string `json:"date_from,omitempty"`
		DateTo   string `json:"date_to,omitempty"`
	} `json:"data"`
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	BaseMessage
	Data struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
		Retry   bool        `json:"retry"`
		Fatal   bool        `json:"fatal"`
	} `json:"data"`
}

// SystemStatusEvent represents a system status event
type SystemStatusEvent struct {
	BaseMessage
	Data struct {
		Status     string            `json:"status"` // healthy|degraded|unhealthy
		Components map[string]string `json:"components"`
		Uptime     string            `json:"uptime"`
		Version    string            `json:"version"`
	} `json:"data"`
}
