package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcli/pkg/contracts/events"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

// addTestClient registers a scripted client and consumes its welcome frame,
// which doubles as the registration barrier.
func addTestClient(t *testing.T, hub *Hub, buffer int) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := NewClientWithConn(hub, newScriptedConn(), logger)
	client.send = make(chan []byte, buffer)
	hub.Register(client)

	select {
	case <-client.send:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for welcome frame")
	}
	return client
}

func receiveEnvelope(t *testing.T, client *Client) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-client.send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
		return nil
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, hub.running)
}

func TestHubNilLogger(t *testing.T) {
	hub := NewHub(nil)
	assert.NotNil(t, hub.logger)
}

func TestHubStartStop(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	hub.Start()
	assert.True(t, hub.running)
	hub.Start()
	assert.True(t, hub.running, "second Start is a no-op")

	hub.Stop()
	assert.False(t, hub.running)
	hub.Stop()
	assert.False(t, hub.running, "second Stop is a no-op")
}

func TestHubWelcomeMessage(t *testing.T) {
	hub := newTestHub(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := NewClientWithConn(hub, newScriptedConn(), logger)
	hub.Register(client)

	msg := receiveEnvelope(t, client)
	assert.Equal(t, TypeConnection, msg["type"])
	data := msg["data"].(map[string]interface{})
	assert.Equal(t, "connected", data["status"])
	assert.Equal(t, client.id, data["client_id"])
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestHubBroadcastFanOut(t *testing.T) {
	hub := newTestHub(t)
	clients := []*Client{
		addTestClient(t, hub, 16),
		addTestClient(t, hub, 16),
		addTestClient(t, hub, 16),
	}

	hub.BroadcastProcessingProgress(events.ProcessingProgress{
		ResultID: "run-fanout",
		Stage:    events.StageSummarize,
		Message:  "Aggregating employee totals",
	})

	for i, client := range clients {
		msg := receiveEnvelope(t, client)
		assert.Equal(t, TypeProgress, msg["type"], "client %d", i)
		data := msg["data"].(map[string]interface{})
		assert.Equal(t, "run-fanout", data["result_id"])
		assert.Equal(t, "Aggregating employee totals", data["message"])
	}
}

func TestHubBroadcastMethods(t *testing.T) {
	hub := newTestHub(t)
	client := addTestClient(t, hub, 16)

	tests := []struct {
		name      string
		broadcast func()
		check     func(t *testing.T, msg map[string]interface{})
	}{
		{
			name: "processing progress",
			broadcast: func() {
				hub.BroadcastProcessingProgress(events.ProcessingProgress{
					ResultID: "run-42",
					Stage:    events.StageRules,
					Rows:     120,
					Message:  "Applying deduction rules",
				})
			},
			check: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeProgress, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "run-42", data["result_id"])
				assert.Equal(t, events.StageRules, data["stage"])
				assert.Equal(t, float64(120), data["rows"])
				assert.Equal(t, "Applying deduction rules", data["message"])
				_, hasTrace := msg["trace_id"]
				assert.False(t, hasTrace, "no trace field without a trace ID")
			},
		},
		{
			name: "result ready",
			broadcast: func() {
				hub.BroadcastResultReady(events.ResultReady{
					ResultID:      "run-42",
					DownloadURL:   "/api/attendance/results/run-42/download",
					Rows:          120,
					DeductionRows: 7,
					SummaryRows:   5,
					CompletedAt:   time.Now(),
				}, "")
			},
			check: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeResult, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "run-42", data["result_id"])
				assert.Equal(t, "/api/attendance/results/run-42/download", data["download_url"])
				assert.Equal(t, float64(7), data["deduction_rows"])
			},
		},
		{
			name: "status",
			broadcast: func() {
				hub.BroadcastStatus("shutting_down", "Server is shutting down")
			},
			check: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeStatus, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "shutting_down", data["status"])
				assert.Equal(t, "Server is shutting down", data["message"])
			},
		},
		{
			name: "error with hint",
			broadcast: func() {
				hub.BroadcastError("REPORT_EMPTY", "No data rows", "Sheet parsed to zero rows", "ingest", true)
			},
			check: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeError, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "REPORT_EMPTY", data["code"])
				assert.Equal(t, "No data rows", data["message"])
				assert.Equal(t, "Sheet parsed to zero rows", data["details"])
				assert.Equal(t, "ingest", data["stage"])
				assert.Equal(t, true, data["recoverable"])
				assert.Equal(t, ErrorRecoveryHints["REPORT_EMPTY"], data["hint"])
			},
		},
		{
			name: "error with unknown code falls back to default hint",
			broadcast: func() {
				hub.BroadcastError("WAT", "Mystery failure", "", "rules", false)
			},
			check: func(t *testing.T, msg map[string]interface{}) {
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, ErrorRecoveryHints["default"], data["hint"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.broadcast()
			msg := receiveEnvelope(t, client)
			ts, err := time.Parse(time.RFC3339, msg["timestamp"].(string))
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now(), ts, time.Minute)
			tt.check(t, msg)
		})
	}
}

func TestHubProcessingStages(t *testing.T) {
	hub := newTestHub(t)
	client := addTestClient(t, hub, 16)

	stages := []string{
		events.StageIngest,
		events.StageNormalize,
		events.StageHours,
		events.StageLateness,
		events.StageRules,
		events.StageSummarize,
		events.StageExport,
		events.StageComplete,
	}

	for _, stage := range stages {
		t.Run(stage, func(t *testing.T) {
			hub.BroadcastProcessingProgress(events.ProcessingProgress{
				ResultID: "run-7",
				Stage:    stage,
			})

			msg := receiveEnvelope(t, client)
			assert.Equal(t, TypeProgress, msg["type"])
			data := msg["data"].(map[string]interface{})
			assert.Equal(t, stage, data["stage"])
			assert.Equal(t, "run-7", data["result_id"])
		})
	}
}

func TestHubTracePropagation(t *testing.T) {
	hub := newTestHub(t)
	client := addTestClient(t, hub, 16)

	hub.BroadcastProcessingProgressWithTrace(events.ProcessingProgress{
		ResultID: "run-1",
		Stage:    events.StageExport,
	}, "trace-789")

	msg := receiveEnvelope(t, client)
	assert.Equal(t, TypeProgress, msg["type"])
	assert.Equal(t, "trace-789", msg["trace_id"])

	hub.BroadcastResultReady(events.ResultReady{ResultID: "run-1"}, "trace-abc")
	msg = receiveEnvelope(t, client)
	assert.Equal(t, "trace-abc", msg["trace_id"])
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := newTestHub(t)
	addTestClient(t, hub, 1)
	assert.Equal(t, 1, hub.ClientCount())

	// The first broadcast fills the buffer, the second forces the drop.
	hub.BroadcastStatus("active", "one")
	hub.BroadcastStatus("active", "two")

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)

	metrics := hub.GetHubMetrics()
	assert.GreaterOrEqual(t, metrics["dropped_clients"].(int64), int64(1))
}

func TestHubMetricsSnapshot(t *testing.T) {
	hub := newTestHub(t)
	addTestClient(t, hub, 16)
	addTestClient(t, hub, 16)

	for i := 0; i < 5; i++ {
		hub.BroadcastStatus("active", fmt.Sprintf("beat %d", i))
	}
	// transmit is synchronous up to the fan-out, so one more broadcast
	// guarantees the previous five were processed
	hub.BroadcastStatus("active", "fence")

	metrics := hub.GetHubMetrics()
	assert.Equal(t, 2, metrics["active_clients"])
	assert.Equal(t, int64(2), metrics["total_connections"])
	assert.GreaterOrEqual(t, metrics["messages_sent"].(int64), int64(10))
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	hub.Start()
	client := addTestClient(t, hub, 16)

	hub.Stop()

	select {
	case _, open := <-client.send:
		assert.False(t, open, "send channel closes on hub stop")
	case <-time.After(time.Second):
		t.Fatal("send channel still open after hub stop")
	}
	assert.Equal(t, 0, hub.ClientCount())

	// Broadcasts after Stop drop instead of blocking
	hub.BroadcastStatus("shutting_down", "late broadcast")
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := newTestHub(t)

	var wg sync.WaitGroup
	clientCount := 10
	clients := make([]*Client, clientCount)
	for i := range clients {
		clients[i] = addTestClient(t, hub, 256)
	}
	assert.Equal(t, clientCount, hub.ClientCount())

	// Drain concurrently so nobody's buffer fills mid-test.
	for _, client := range clients {
		go func(c *Client) {
			for range c.send {
			}
		}(client)
	}

	broadcasts := 50
	wg.Add(broadcasts)
	for i := 0; i < broadcasts; i++ {
		go func(n int) {
			defer wg.Done()
			hub.BroadcastProcessingProgress(events.ProcessingProgress{
				ResultID: "run-concurrent",
				Stage:    events.StageRules,
				Rows:     n,
			})
		}(i)
	}

	wg.Add(5)
	for i := 0; i < 5; i++ {
		go func() {
			defer wg.Done()
			_ = hub.GetHubMetrics()
			_ = hub.ClientCount()
		}()
	}
	wg.Wait()
}

func TestErrorRecoveryHints(t *testing.T) {
	tests := []struct {
		code string
		hint string
	}{
		{"REPORT_EMPTY", "The uploaded report has no data rows"},
		{"REPORT_SHAPE", "Check that the report keeps the punch report column layout"},
		{"UNSUPPORTED_UPLOAD", "Upload a .csv or .xlsx punch report"},
		{"PROCESSING_ERROR", "Check the report contents and try again"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.hint, ErrorRecoveryHints[tt.code])
		})
	}
}

func TestMessageTypeValues(t *testing.T) {
	assert.Equal(t, "processing_progress", TypeProgress)
	assert.Equal(t, "result:ready", TypeResult)
	assert.Equal(t, "system:status", TypeStatus)
	assert.Equal(t, "connect", TypeConnection)
	assert.Equal(t, "error", TypeError)
}

func BenchmarkHubBroadcast(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	for i := 0; i < 100; i++ {
		client := NewClientWithConn(hub, newScriptedConn(), logger)
		hub.Register(client)
		go func(c *Client) {
			for range c.send {
			}
		}(client)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastProcessingProgress(events.ProcessingProgress{
			ResultID: "run-bench",
			Stage:    events.StageRules,
			Rows:     i,
		})
	}
}
