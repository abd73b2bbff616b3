package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"attendcli/internal/infrastructure"
	"attendcli/pkg/contracts/events"
)

// Wire values for the envelope type field, bound to the event contracts so
// the served payloads and the published contract cannot drift apart.
const (
	TypeConnection = string(events.MessageTypeConnect)
	TypeProgress   = string(events.MessageTypeProcessingProgress)
	TypeResult     = string(events.MessageTypeResultReady)
	TypeStatus     = string(events.MessageTypeSystemStatus)
	TypeError      = string(events.MessageTypeError)
)

// ErrorRecoveryHints maps processing error codes to the suggestion shown to
// the person who uploaded the report.
var ErrorRecoveryHints = map[string]string{
	"REPORT_EMPTY":       "The uploaded report has no data rows",
	"REPORT_SHAPE":       "Check that the report keeps the punch report column layout",
	"UNSUPPORTED_UPLOAD": "Upload a .csv or .xlsx punch report",
	"PROCESSING_ERROR":   "Check the report contents and try again",
	"default":            "Please try again or contact support",
}

// Hub tracks connected clients and fans processing events out to them. All
// client set mutation happens on the Run goroutine; the channels serialize
// register, unregister and broadcast requests.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	quit        chan struct{}
	running     bool
	metricsQuit chan struct{}
}

// NewHub creates a hub. A nil logger falls back to the process logger.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:     make(map[*Client]bool),
		broadcast:   make(chan []byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger.With(slog.String("component", "websocket.hub")),
		quit:        make(chan struct{}),
		metricsQuit: make(chan struct{}),
	}
}

// Start launches the hub loop and the periodic metrics reporter. Calling it
// on a running hub is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
	go h.reportMetrics()
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			// Run owns the send channels, so the close-out happens here
			// and never races a fan-out
			h.closeAllClients()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	h.mu.Unlock()

	ctx := client.traceCtx()
	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	GetMetrics().RecordConnection()
	if otel := GetOTelMetrics(); otel != nil {
		otel.RecordConnection(ctx)
		otel.RecordClientCount(ctx, int64(count))
	}

	// Greet the new client so the browser can show its connection state.
	welcome, err := json.Marshal(envelope(TypeConnection, map[string]interface{}{
		"status":    "connected",
		"message":   "Connected to attendance processing service",
		"client_id": client.id,
	}, client.traceID))
	if err != nil {
		return
	}
	select {
	case client.send <- welcome:
	default:
		h.logger.WarnContext(ctx, "client buffer full before welcome",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.traceCtx()
	connectedFor := time.Since(client.connectedAt)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", connectedFor))

	GetMetrics().RecordDisconnection(connectedFor)
	if otel := GetOTelMetrics(); otel != nil {
		otel.RecordDisconnection(ctx, connectedFor, "normal")
		otel.RecordClientCount(ctx, int64(count))
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting",
		slog.Int("client_count", len(clients)),
		slog.Int("message_size", len(message)))

	delivered := 0
	dropped := 0
	for _, client := range clients {
		select {
		case client.send <- message:
			delivered++
		default:
			// Slow consumer: cut it loose rather than stall the hub.
			dropped++
			h.mu.Lock()
			close(client.send)
			delete(h.clients, client)
			h.mu.Unlock()

			h.logger.WarnContext(client.traceCtx(), "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
			GetMetrics().RecordDroppedMessage()
		}
	}

	h.mu.Lock()
	h.messagesSent += int64(delivered)
	h.droppedClients += int64(dropped)
	h.mu.Unlock()

	if dropped > 0 {
		h.logger.Warn("broadcast dropped slow clients",
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped))
	}

	if otel := GetOTelMetrics(); otel != nil {
		ctx := context.Background()
		otel.RecordBroadcast(ctx)
		if dropped > 0 {
			otel.RecordDroppedMessages(ctx, int64(dropped), "slow_client")
		}
	}
}

// envelope wraps a payload in the wire format every client consumes.
func envelope(msgType string, data interface{}, traceID string) map[string]interface{} {
	msg := map[string]interface{}{
		"type":      msgType,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if traceID != "" {
		msg["trace_id"] = traceID
	}
	return msg
}

// transmit marshals an envelope onto the broadcast channel.
func (h *Hub) transmit(msg map[string]interface{}) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast envelope",
			slog.String("error", err.Error()),
			slog.Any("type", msg["type"]))
		return
	}

	// A stopped hub no longer drains broadcast, drop instead of blocking
	select {
	case h.broadcast <- jsonData:
	case <-h.quit:
	}
}

// BroadcastProcessingProgress pushes a pipeline stage update for a run.
func (h *Hub) BroadcastProcessingProgress(progress events.ProcessingProgress) {
	h.BroadcastProcessingProgressWithTrace(progress, "")
}

// BroadcastProcessingProgressWithTrace pushes a pipeline stage update with
// trace correlation.
func (h *Hub) BroadcastProcessingProgressWithTrace(progress events.ProcessingProgress, traceID string) {
	h.transmit(envelope(TypeProgress, progress, traceID))
}

// BroadcastResultReady announces a stored workbook available for download.
func (h *Hub) BroadcastResultReady(result events.ResultReady, traceID string) {
	h.transmit(envelope(TypeResult, result, traceID))
}

// BroadcastStatus pushes a service status change, such as shutdown.
func (h *Hub) BroadcastStatus(status, message string) {
	h.transmit(envelope(TypeStatus, map[string]interface{}{
		"status":  status,
		"message": message,
	}, ""))
}

// BroadcastError pushes a structured processing failure with a recovery hint.
func (h *Hub) BroadcastError(code, message, details, stage string, recoverable bool) {
	hint := ErrorRecoveryHints[code]
	if hint == "" {
		hint = ErrorRecoveryHints["default"]
	}
	h.transmit(envelope(TypeError, map[string]interface{}{
		"code":        code,
		"message":     message,
		"details":     details,
		"stage":       stage,
		"recoverable": recoverable,
		"hint":        hint,
	}, ""))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns a snapshot of the hub's counters.
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_clients":   h.droppedClients,
	}
}

// Stop shuts the hub down and closes every client channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	close(h.metricsQuit)
}

// Register queues a client for registration. No-op after Stop.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister queues a client for removal. No-op after Stop.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// reportMetrics logs hub counters every 30 seconds while the hub runs.
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.metricsQuit:
			h.logger.Info("metrics reporting shutting down")
			return

		case <-ticker.C:
			h.mu.RLock()
			activeClients := len(h.clients)
			sent := h.messagesSent
			total := h.totalConnections
			h.mu.RUnlock()

			depth := int64(len(h.broadcast))
			GetMetrics().RecordQueueDepth(depth)
			if otel := GetOTelMetrics(); otel != nil {
				otel.RecordQueueDepth(context.Background(), depth)
			}

			h.logger.Info("websocket hub metrics",
				slog.Int("active_clients", activeClients),
				slog.Int64("total_connections", total),
				slog.Int64("messages_sent", sent),
				slog.Int64("broadcast_queue", depth))
		}
	}
}
