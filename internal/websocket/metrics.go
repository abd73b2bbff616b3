package websocket

import (
	"sync"
	"time"
)

// Metrics aggregates websocket counters for in-process inspection. The
// OpenTelemetry instruments cover export; this stays cheap enough to snapshot
// on every status request.
type Metrics struct {
	mu sync.RWMutex

	TotalConnections  int64
	ActiveConnections int64
	PeakConnections   int64

	MessagesSent     int64
	MessagesReceived int64
	BytesSent        int64
	BytesReceived    int64
	MessageErrors    int64
	DroppedMessages  int64

	MaxQueueDepth int64
	avgQueueDepth int64

	ErrorsByType map[string]int64

	startedAt      time.Time
	closedConns    int64
	connectedTotal time.Duration
}

// NewMetrics returns a zeroed metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		ErrorsByType: make(map[string]int64),
		startedAt:    time.Now(),
	}
}

// RecordConnection counts a new connection.
func (m *Metrics) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalConnections++
	m.ActiveConnections++
	if m.ActiveConnections > m.PeakConnections {
		m.PeakConnections = m.ActiveConnections
	}
}

// RecordDisconnection counts a closed connection and its lifetime.
func (m *Metrics) RecordDisconnection(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ActiveConnections--
	m.closedConns++
	m.connectedTotal += duration
}

// RecordMessage counts one message in the given direction, "sent" or
// "received".
func (m *Metrics) RecordMessage(direction string, size int64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch direction {
	case "sent":
		m.MessagesSent++
		m.BytesSent += size
	case "received":
		m.MessagesReceived++
		m.BytesReceived += size
	}
	if !success {
		m.MessageErrors++
	}
}

// RecordError counts an error by kind.
func (m *Metrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorsByType[kind]++
}

// RecordQueueDepth tracks the broadcast queue depth as a smoothed average
// and a high-water mark.
func (m *Metrics) RecordQueueDepth(depth int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if depth > m.MaxQueueDepth {
		m.MaxQueueDepth = depth
	}
	if m.avgQueueDepth == 0 {
		m.avgQueueDepth = depth
	} else {
		m.avgQueueDepth = (m.avgQueueDepth*9 + depth) / 10
	}
}

// RecordDroppedMessage counts a message dropped because a client fell behind.
func (m *Metrics) RecordDroppedMessage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DroppedMessages++
}

// Snapshot returns the current counters in a shape ready for a status
// payload.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errs := make(map[string]int64, len(m.ErrorsByType))
	for k, v := range m.ErrorsByType {
		errs[k] = v
	}

	var avgConn time.Duration
	if m.closedConns > 0 {
		avgConn = m.connectedTotal / time.Duration(m.closedConns)
	}

	return map[string]interface{}{
		"connections": map[string]interface{}{
			"total":           m.TotalConnections,
			"active":          m.ActiveConnections,
			"peak":            m.PeakConnections,
			"avg_duration_ms": avgConn.Milliseconds(),
		},
		"messages": map[string]interface{}{
			"sent":           m.MessagesSent,
			"received":       m.MessagesReceived,
			"bytes_sent":     m.BytesSent,
			"bytes_received": m.BytesReceived,
			"errors":         m.MessageErrors,
			"dropped":        m.DroppedMessages,
		},
		"queue": map[string]interface{}{
			"avg_depth": m.avgQueueDepth,
			"max_depth": m.MaxQueueDepth,
		},
		"errors":         errs,
		"uptime_seconds": time.Since(m.startedAt).Seconds(),
	}
}

// Reset zeroes every counter. Tests use it to isolate the global collector.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalConnections = 0
	m.ActiveConnections = 0
	m.PeakConnections = 0
	m.MessagesSent = 0
	m.MessagesReceived = 0
	m.BytesSent = 0
	m.BytesReceived = 0
	m.MessageErrors = 0
	m.DroppedMessages = 0
	m.MaxQueueDepth = 0
	m.avgQueueDepth = 0
	m.ErrorsByType = make(map[string]int64)
	m.startedAt = time.Now()
	m.closedConns = 0
	m.connectedTotal = 0
}

var globalMetrics = NewMetrics()

// GetMetrics returns the process-wide metrics collector.
func GetMetrics() *Metrics {
	return globalMetrics
}
