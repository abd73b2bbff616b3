package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log line.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// BufferedSlogHandler is a slog.Handler that records every log line for
// later assertions. Handlers derived through Logger.With or WithGroup
// share the same buffer, so a test can hand a derived logger to the code
// under test and still assert on the root handler.
type BufferedSlogHandler struct {
	sink   *recordSink
	prefix string
	bound  []slog.Attr
}

type recordSink struct {
	mu      sync.Mutex
	records []LogRecord
	t       *testing.T
}

// NewBufferedSlogHandler creates a handler that captures all levels.
func NewBufferedSlogHandler(t *testing.T) *BufferedSlogHandler {
	return &BufferedSlogHandler{sink: &recordSink{t: t}}
}

// NewTestLogger returns a logger wired to a fresh buffered handler.
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	handler := NewBufferedSlogHandler(t)
	return slog.New(handler), handler
}

// Enabled implements slog.Handler. Every level is captured.
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.bound))
	for _, a := range h.bound {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
		return true
	})

	h.sink.mu.Lock()
	h.sink.records = append(h.sink.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	t := h.sink.t
	h.sink.mu.Unlock()

	// Mirror to the test log so failures show the full stream
	if t != nil {
		t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler. Bound attributes are qualified with
// the groups open at bind time and appear on every later record.
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.bound = append([]slog.Attr{}, h.bound...)
	for _, a := range attrs {
		derived.bound = append(derived.bound, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &derived
}

// WithGroup implements slog.Handler. Groups flatten into dotted keys, so
// WithGroup("req") turns attribute "id" into "req.id".
func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.prefix = h.prefix + name + "."
	return &derived
}

// GetRecords returns a copy of all captured records.
func (h *BufferedSlogHandler) GetRecords() []LogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	records := make([]LogRecord, len(h.sink.records))
	copy(records, h.sink.records)
	return records
}

// GetRecordsByLevel returns the captured records at exactly the given level.
func (h *BufferedSlogHandler) GetRecordsByLevel(level slog.Level) []LogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	var filtered []LogRecord
	for _, r := range h.sink.records {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ContainsMessage reports whether any record's message contains the
// given substring.
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	for _, r := range h.sink.records {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record carries the attribute. Values
// compare with ==; slog stores integer attrs as int64.
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	for _, r := range h.sink.records {
		if val, ok := r.Attrs[key]; ok && val == value {
			return true
		}
	}
	return false
}

// Count returns the number of captured records.
func (h *BufferedSlogHandler) Count() int {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return len(h.sink.records)
}

// Clear discards all captured records.
func (h *BufferedSlogHandler) Clear() {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.records = h.sink.records[:0]
}

// AssertLogContains fails the test unless a record at the given level
// contains the message substring.
func AssertLogContains(t *testing.T, handler *BufferedSlogHandler, level slog.Level, message string) {
	t.Helper()

	records := handler.GetRecordsByLevel(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return
		}
	}

	t.Errorf("expected log message not found at level %s: %q", level, message)
	for _, r := range records {
		t.Logf("  captured at %s: %s", level, r.Message)
	}
}

// AssertLogAttr fails the test unless some record carries the attribute.
func AssertLogAttr(t *testing.T, handler *BufferedSlogHandler, key string, expectedValue any) {
	t.Helper()

	if !handler.ContainsAttr(key, expectedValue) {
		t.Errorf("expected log attribute not found: %s=%v", key, expectedValue)
		for _, r := range handler.GetRecords() {
			t.Logf("  captured: %s %v", r.Message, r.Attrs)
		}
	}
}

// AssertNoErrors fails the test if any error-level record was captured.
func AssertNoErrors(t *testing.T, handler *BufferedSlogHandler) {
	t.Helper()

	for _, r := range handler.GetRecordsByLevel(slog.LevelError) {
		t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
	}
}
