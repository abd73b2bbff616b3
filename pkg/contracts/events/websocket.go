// Package events contains event contract definitions for WebSocket
// communication in the attendance processing service.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Core processing message - the primary event type
	MessageTypeProcessingProgress MessageType = "processing_progress"

	// System messages
	MessageTypeSystemStatus  MessageType = "system:status"
	MessageTypeSystemMetrics MessageType = "system:metrics"

	// Result messages
	MessageTypeResultReady MessageType = "result:ready"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// Pipeline stage names reported in progress events.
const (
	StageIngest    = "ingest"
	StageNormalize = "normalize"
	StageHours     = "hours"
	StageLateness  = "lateness"
	StageRules     = "rules"
	StageSummarize = "summarize"
	StageExport    = "export"
	StageComplete  = "complete"
	StageFailed    = "failed"
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

// ProcessingProgress is the payload pushed to clients while an uploaded
// report moves through the pipeline. Stage is one of the Stage* constants.
type ProcessingProgress struct {
	ResultID string `json:"result_id"`
	Stage    string `json:"stage"`
	Rows     int    `json:"rows,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ResultReady is pushed once a processed workbook has been stored and is
// available for download.
type ResultReady struct {
	ResultID      string    `json:"result_id"`
	DownloadURL   string    `json:"download_url"`
	Rows          int       `json:"rows"`
	DeductionRows int       `json:"deduction_rows"`
	SummaryRows   int       `json:"summary_rows"`
	CompletedAt   time.Time `json:"completed_at"`
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

// SystemMetricsEvent represents system metrics event
type SystemMetricsEvent struct {
	BaseMessage
	Data struct {
		CPU         float64   `json:"cpu_percent"`
		Memory      float64   `json:"memory_percent"`
		Disk        float64   `json:"disk_percent"`
		Connections int       `json:"active_connections"`
		RequestRate float64   `json:"request_rate"`
		ErrorRate   float64   `json:"error_rate"`
		Timestamp   time.Time `json:"timestamp"`
	} `json:"data"`
}
