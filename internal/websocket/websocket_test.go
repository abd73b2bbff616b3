package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcli/pkg/contracts/events"
)

// dialTestServer upgrades connections through ServeWS and dials one live
// client against it.
func dialTestServer(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ServeWS(hub, conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readLiveEnvelope(t *testing.T, ws *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestServeWSDeliversEvents(t *testing.T) {
	hub := newTestHub(t)
	ws := dialTestServer(t, hub)

	welcome := readLiveEnvelope(t, ws)
	assert.Equal(t, TypeConnection, welcome["type"])
	data := welcome["data"].(map[string]interface{})
	assert.Equal(t, "connected", data["status"])
	assert.NotEmpty(t, data["client_id"])

	hub.BroadcastProcessingProgress(events.ProcessingProgress{
		ResultID: "run-live",
		Stage:    events.StageExport,
		Rows:     88,
	})

	progress := readLiveEnvelope(t, ws)
	assert.Equal(t, TypeProgress, progress["type"])
	payload := progress["data"].(map[string]interface{})
	assert.Equal(t, "run-live", payload["result_id"])
	assert.Equal(t, events.StageExport, payload["stage"])
	assert.Equal(t, float64(88), payload["rows"])
}

func TestServeWSHeartbeat(t *testing.T) {
	hub := newTestHub(t)
	ws := dialTestServer(t, hub)
	readLiveEnvelope(t, ws)

	err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
	require.NoError(t, err)

	// The connection survives the heartbeat: a later broadcast still lands.
	hub.BroadcastStatus("active", "processing")
	status := readLiveEnvelope(t, ws)
	assert.Equal(t, TypeStatus, status["type"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestServeWSCleansUpOnClose(t *testing.T) {
	hub := newTestHub(t)
	ws := dialTestServer(t, hub)
	readLiveEnvelope(t, ws)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestServeWSMultipleClients(t *testing.T) {
	hub := newTestHub(t)
	first := dialTestServer(t, hub)
	second := dialTestServer(t, hub)
	readLiveEnvelope(t, first)
	readLiveEnvelope(t, second)

	hub.BroadcastResultReady(events.ResultReady{
		ResultID:    "run-pair",
		DownloadURL: "/api/attendance/results/run-pair/download",
		Rows:        12,
	}, "")

	for _, ws := range []*websocket.Conn{first, second} {
		msg := readLiveEnvelope(t, ws)
		assert.Equal(t, TypeResult, msg["type"])
		data := msg["data"].(map[string]interface{})
		assert.Equal(t, "run-pair", data["result_id"])
	}
}
