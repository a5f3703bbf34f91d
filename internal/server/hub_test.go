package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cognisense-backend/internal/models"
)

func testReading(sessionID string, level models.LoadLevel) *models.Reading {
	return &models.Reading{
		LoadLevel:  level,
		Confidence: 0.9,
		Probabilities: models.Probabilities{
			Low:    0.05,
			Medium: 0.05,
			High:   0.9,
		},
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
	}
}

// dialHub starts a test server around the hub and opens one websocket
// client against it.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/load", hub.HandleWS())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/load"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitClients(t, hub, 1)

	hub.Broadcast(testReading("s1", models.LoadHigh))

	frame := readFrame(t, conn)
	assert.Equal(t, "high", frame["load_level"])
	assert.Equal(t, "s1", frame["session_id"])
	assert.InDelta(t, 0.9, frame["confidence"].(float64), 1e-9)
}

func TestLatestReadingReplayedOnConnect(t *testing.T) {
	hub := NewHub()
	hub.Broadcast(testReading("s1", models.LoadMedium))

	conn := dialHub(t, hub)

	frame := readFrame(t, conn)
	assert.Equal(t, "medium", frame["load_level"])
}

func TestPauseResumeCommands(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitClients(t, hub, 1)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "pause"}))
	frame := readFrame(t, conn)
	assert.Equal(t, "paused", frame["status"])

	// Broadcasts are suppressed while paused.
	hub.Broadcast(testReading("s1", models.LoadHigh))

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "resume"}))
	frame = readFrame(t, conn)
	assert.Equal(t, "streaming", frame["status"])

	hub.Broadcast(testReading("s1", models.LoadLow))
	frame = readFrame(t, conn)
	assert.Equal(t, "low", frame["load_level"])
}

func TestPingCommand(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitClients(t, hub, 1)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	frame := readFrame(t, conn)
	assert.Equal(t, "pong", frame["status"])
}

func TestMalformedCommandIgnored(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitClients(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// Connection stays up and continues to receive broadcasts.
	hub.Broadcast(testReading("s1", models.LoadMedium))
	frame := readFrame(t, conn)
	assert.Equal(t, "medium", frame["load_level"])
}

func TestClientCountTracksDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}
