package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"attendcli/internal/infrastructure"
)

const (
	// writeWait bounds a single frame write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long the read side waits for a pong before the
	// connection is considered dead.
	pongWait = 60 * time.Second

	// pingPeriod must stay under pongWait so pings keep refreshing the
	// read deadline.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; browsers only send heartbeats.
	maxMessageSize = 512

	// sendBufferSize is how many broadcast frames may queue per client
	// before the hub drops the connection.
	sendBufferSize = 256
)

// heartbeatFrame is the keepalive the browser client sends on a timer.
var heartbeatFrame = []byte(`{"type":"heartbeat"}`)

// Client owns one browser connection. The read pump consumes heartbeats and
// detects the peer going away; the write pump relays hub broadcasts.
type Client struct {
	hub  *Hub
	conn Connection

	// send buffers outbound frames; the hub drops the client when it fills.
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger

	sentMessages int64
	sentBytes    int64
	recvMessages int64
	recvBytes    int64
}

// NewClient wraps an upgraded gorilla connection.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return newClient(hub, wrapConn(conn), logger)
}

// NewClientWithTrace tags every log line and envelope from this client with
// the originating request's trace ID.
func NewClientWithTrace(hub *Hub, conn *websocket.Conn, traceID string, logger *slog.Logger) *Client {
	c := newClient(hub, wrapConn(conn), logger)
	c.traceID = traceID
	c.logger = c.logger.With(slog.String("trace_id", traceID))
	return c
}

// NewClientWithConn accepts any Connection, which keeps the pumps testable
// without a live socket.
func NewClientWithConn(hub *Hub, conn Connection, logger *slog.Logger) *Client {
	return newClient(hub, conn, logger)
}

func newClient(hub *Hub, conn Connection, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// traceCtx carries the client's trace ID for log correlation.
func (c *Client) traceCtx() context.Context {
	if c.traceID == "" {
		return context.Background()
	}
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// ReadPump drains inbound frames until the peer goes away, then unregisters
// the client. Inbound traffic is heartbeats only; other frames are counted
// and ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.traceCtx(), "websocket read pump stopped",
			slog.Duration("connected_for", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.recvMessages),
			slog.Int64("bytes_received", c.recvBytes))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(c.traceCtx(), "websocket closed unexpectedly",
					slog.String("error", err.Error()))
				if otel := GetOTelMetrics(); otel != nil {
					otel.RecordConnectionError(c.traceCtx(), "unexpected_close")
				}
			}
			return
		}

		message = bytes.TrimSpace(message)
		c.recvMessages++
		c.recvBytes += int64(len(message))

		if otel := GetOTelMetrics(); otel != nil {
			otel.RecordMessageReceived(c.traceCtx(), "client_message", int64(len(message)))
		}

		if bytes.Equal(message, heartbeatFrame) {
			// the pong handler already refreshed the read deadline
			c.logger.Debug("heartbeat received")
		}
	}
}

// WritePump relays hub broadcasts to the peer and keeps the connection alive
// with pings. One goroutine per connection; the gorilla API allows a single
// concurrent writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.InfoContext(c.traceCtx(), "websocket write pump stopped",
			slog.Int64("messages_sent", c.sentMessages),
			slog.Int64("bytes_sent", c.sentBytes))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.writeFrame(message) {
				return
			}
			// Relay whatever the hub queued behind this frame.
			for n := len(c.send); n > 0; n-- {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !c.writeFrame(<-c.send) {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.traceCtx(), "ping failed",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// writeFrame sends one text frame and reports whether the pump should
// continue.
func (c *Client) writeFrame(message []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.ErrorContext(c.traceCtx(), "websocket write failed",
			slog.String("error", err.Error()))
		if otel := GetOTelMetrics(); otel != nil {
			otel.RecordMessageError(c.traceCtx(), "server_message", "write_failed")
		}
		return false
	}
	c.sentMessages++
	c.sentBytes += int64(len(message))
	if otel := GetOTelMetrics(); otel != nil {
		otel.RecordMessageSent(c.traceCtx(), "server_message", int64(len(message)))
	}
	return true
}

// ServeWS registers an upgraded connection with the hub and starts its pumps.
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := NewClient(hub, conn, nil)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
