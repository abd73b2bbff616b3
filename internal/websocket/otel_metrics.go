package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "attendcli.websocket"

// OTelMetrics exports websocket counters through OpenTelemetry. Attributes
// stay low cardinality: message types, directions and reasons, never client
// or run IDs.
type OTelMetrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	connectionErrors   metric.Int64Counter

	messagesTotal metric.Int64Counter
	messageBytes  metric.Int64Counter
	messageErrors metric.Int64Counter

	queueDepth      metric.Int64Gauge
	droppedMessages metric.Int64Counter

	broadcasts  metric.Int64Counter
	clientCount metric.Int64Gauge
}

// NewOTelMetrics registers the websocket instruments on the global meter
// provider.
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(meterName)

	connectionsTotal, err := meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of websocket connections"),
	)
	if err != nil {
		return nil, err
	}

	connectionsActive, err := meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active websocket connections"),
	)
	if err != nil {
		return nil, err
	}

	connectionDuration, err := meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Lifetime of closed websocket connections"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	connectionErrors, err := meter.Int64Counter(
		"websocket_connection_errors_total",
		metric.WithDescription("Total number of websocket connection errors"),
	)
	if err != nil {
		return nil, err
	}

	messagesTotal, err := meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of websocket messages"),
	)
	if err != nil {
		return nil, err
	}

	messageBytes, err := meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("Total bytes of websocket messages"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	messageErrors, err := meter.Int64Counter(
		"websocket_message_errors_total",
		metric.WithDescription("Total number of websocket message errors"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge(
		"websocket_broadcast_queue_depth",
		metric.WithDescription("Depth of the hub broadcast queue"),
	)
	if err != nil {
		return nil, err
	}

	droppedMessages, err := meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Total number of broadcasts dropped for slow clients"),
	)
	if err != nil {
		return nil, err
	}

	broadcasts, err := meter.Int64Counter(
		"websocket_broadcasts_total",
		metric.WithDescription("Total number of hub broadcast operations"),
	)
	if err != nil {
		return nil, err
	}

	clientCount, err := meter.Int64Gauge(
		"websocket_client_count",
		metric.WithDescription("Current number of connected websocket clients"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelMetrics{
		connectionsTotal:   connectionsTotal,
		connectionsActive:  connectionsActive,
		connectionDuration: connectionDuration,
		connectionErrors:   connectionErrors,
		messagesTotal:      messagesTotal,
		messageBytes:       messageBytes,
		messageErrors:      messageErrors,
		queueDepth:         queueDepth,
		droppedMessages:    droppedMessages,
		broadcasts:         broadcasts,
		clientCount:        clientCount,
	}, nil
}

// RecordConnection counts a new connection.
func (m *OTelMetrics) RecordConnection(ctx context.Context) {
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

// RecordDisconnection counts a closed connection and its lifetime.
func (m *OTelMetrics) RecordDisconnection(ctx context.Context, duration time.Duration, reason string) {
	attrs := metric.WithAttributes(attribute.String("reason", reason))
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordConnectionError counts a connection failure by kind.
func (m *OTelMetrics) RecordConnectionError(ctx context.Context, kind string) {
	m.connectionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", kind),
	))
}

// RecordMessageSent counts one outbound message.
func (m *OTelMetrics) RecordMessageSent(ctx context.Context, messageType string, size int64) {
	attrs := metric.WithAttributes(
		attribute.String("direction", "outbound"),
		attribute.String("message_type", messageType),
	)
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, size, attrs)
}

// RecordMessageReceived counts one inbound message.
func (m *OTelMetrics) RecordMessageReceived(ctx context.Context, messageType string, size int64) {
	attrs := metric.WithAttributes(
		attribute.String("direction", "inbound"),
		attribute.String("message_type", messageType),
	)
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, size, attrs)
}

// RecordMessageError counts a failed message by kind.
func (m *OTelMetrics) RecordMessageError(ctx context.Context, messageType, kind string) {
	m.messageErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message_type", messageType),
		attribute.String("error_type", kind),
	))
}

// RecordQueueDepth records the current broadcast queue depth.
func (m *OTelMetrics) RecordQueueDepth(ctx context.Context, depth int64) {
	m.queueDepth.Record(ctx, depth)
}

// RecordDroppedMessages counts broadcasts dropped for slow clients.
func (m *OTelMetrics) RecordDroppedMessages(ctx context.Context, count int64, reason string) {
	m.droppedMessages.Add(ctx, count, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordBroadcast counts one hub fan-out.
func (m *OTelMetrics) RecordBroadcast(ctx context.Context) {
	m.broadcasts.Add(ctx, 1)
}

// RecordClientCount records the number of connected clients.
func (m *OTelMetrics) RecordClientCount(ctx context.Context, count int64) {
	m.clientCount.Record(ctx, count)
}

var globalOTelMetrics *OTelMetrics

// InitOTelMetrics wires the package's global instruments. Called once at
// startup; before that, recording is a no-op.
func InitOTelMetrics() error {
	metrics, err := NewOTelMetrics()
	if err != nil {
		return err
	}
	globalOTelMetrics = metrics
	return nil
}

// GetOTelMetrics returns the global instruments, or nil before
// InitOTelMetrics.
func GetOTelMetrics() *OTelMetrics {
	return globalOTelMetrics
}
