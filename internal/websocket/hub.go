package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"watchlens/internal/infrastructure"
)

// Event types pushed to dashboard clients.
const (
	TypeConnection        = "connection"
	TypeOperationStatus   = "operation:status"
	TypeOperationProgress = "operation:progress"
	TypeDatasetRefresh    = "dataset:refresh"
	TypeError             = "error"

	// Message levels
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	// Optional, counts active connections when wired.
	metrics *infrastructure.BusinessMetrics

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

// SetMetrics wires connection counting into the shared instruments.
func (h *Hub) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	h.metrics = metrics
}

// Start starts the hub's main loop.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run processes register, unregister and broadcast events until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			ctx := clientContext(client)
			h.logger.InfoContext(ctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if h.metrics != nil {
				h.metrics.WebsocketConnections.Add(ctx, 1)
			}

			h.sendWelcome(ctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				ctx := clientContext(client)
				h.logger.InfoContext(ctx, "client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))

				if h.metrics != nil {
					h.metrics.WebsocketConnections.Add(ctx, -1)
				}
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			sent := int64(0)
			for _, client := range clients {
				select {
				case client.send <- message:
					sent++
				default:
					// Client stopped draining its buffer, drop it.
					h.mu.Lock()
					if _, ok := h.clients[client]; ok {
						close(client.send)
						delete(h.clients, client)
					}
					h.mu.Unlock()

					ctx := clientContext(client)
					h.logger.WarnContext(ctx, "client send buffer full, disconnecting",
						slog.String("client_id", client.id))

					if h.metrics != nil {
						h.metrics.WebsocketConnections.Add(ctx, -1)
					}
				}
			}

			h.mu.Lock()
			h.messagesSent += sent
			h.mu.Unlock()
		}
	}
}

func clientContext(client *Client) context.Context {
	ctx := context.Background()
	if client.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, client.traceID)
	}
	return ctx
}

// sendWelcome confirms the connection to a newly registered client.
func (h *Hub) sendWelcome(ctx context.Context, client *Client) {
	msg := map[string]interface{}{
		"type": TypeConnection,
		"data": map[string]interface{}{
			"status":    "connected",
			"client_id": client.id,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if client.traceID != "" {
		msg["trace_id"] = client.traceID
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case client.send <- jsonData:
	default:
		h.logger.WarnContext(ctx, "welcome message dropped, client buffer full",
			slog.String("client_id", client.id))
	}
}

// BroadcastStatus announces an operation lifecycle change.
func (h *Hub) BroadcastStatus(operationID, status, message string) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeOperationStatus,
		"data": map[string]interface{}{
			"operation_id": operationID,
			"status":       status,
			"message":      message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastProgress reports step progress during a dataset build.
func (h *Hub) BroadcastProgress(operationID, step string, current, total int, message string) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(current) / float64(total) * 100
	}

	h.broadcastJSON(map[string]interface{}{
		"type": TypeOperationProgress,
		"data": map[string]interface{}{
			"operation_id": operationID,
			"step":         step,
			"current":      current,
			"total":        total,
			"percentage":   percentage,
			"message":      message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastRefresh tells dashboards the dataset snapshot was swapped
// and cached queries are stale.
func (h *Hub) BroadcastRefresh(operationID string, rows int) {
	h.broadcastJSON(map[string]interface{}{
		"type": TypeDatasetRefresh,
		"data": map[string]interface{}{
			"operation_id": operationID,
			"rows":         rows,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastError reports a failed build step.
func (h *Hub) BroadcastError(operationID, step string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}

	h.broadcastJSON(map[string]interface{}{
		"type": TypeError,
		"data": map[string]interface{}{
			"operation_id": operationID,
			"step":         step,
			"message":      detail,
			"level":        LevelError,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastJSON sends a pre-assembled message to every client.
func (h *Hub) BroadcastJSON(message map[string]interface{}) {
	h.broadcastJSON(message)
}

func (h *Hub) broadcastJSON(message map[string]interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", fmt.Sprintf("%v", message["type"])))
		return
	}

	select {
	case h.broadcast <- jsonData:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stop gracefully stops the hub and closes all client connections.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Stats returns a snapshot of hub counters for the health endpoint.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}
