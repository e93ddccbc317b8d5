package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/model"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv, "")
	waitClients(t, h, 1)

	h.PublishVehicleUpdate(events.VehicleUpdate{VehicleID: "d1", Status: model.StatusFlying})
	h.PublishDeliveryStatus(events.DeliveryStatus{DeliveryID: 1000, Status: model.StatusCompleted})

	f := read(t, conn)
	assert.Equal(t, events.TopicVehicleUpdates, f.Topic)
	var u events.VehicleUpdate
	require.NoError(t, json.Unmarshal(f.Payload, &u))
	assert.Equal(t, "d1", u.VehicleID)

	f = read(t, conn)
	assert.Equal(t, events.TopicDeliveryStatus, f.Topic)
}

func TestHubReplaysLastState(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	h.PublishSystemState(events.SystemState{ActiveVehicles: 1, AvailableVehicles: 4})
	h.PublishSystemState(events.SystemState{ActiveVehicles: 2, AvailableVehicles: 3})

	conn := dial(t, srv, "")
	f := read(t, conn)
	require.Equal(t, events.TopicSystemState, f.Topic)
	var s events.SystemState
	require.NoError(t, json.Unmarshal(f.Payload, &s))
	assert.Equal(t, 2, s.ActiveVehicles)
	assert.Equal(t, 3, s.AvailableVehicles)
}

func TestHubTopicFilter(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv, "?topics=delivery-status")
	waitClients(t, h, 1)

	h.PublishSystemState(events.SystemState{})
	h.PublishVehicleUpdate(events.VehicleUpdate{VehicleID: "d1"})
	h.PublishDeliveryStatus(events.DeliveryStatus{DeliveryID: 1001})

	f := read(t, conn)
	assert.Equal(t, events.TopicDeliveryStatus, f.Topic)
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv, "")
	waitClients(t, h, 1)
	h.Close()
	assert.Equal(t, 0, h.Clients())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	// publishing after close is a no-op
	h.PublishSystemState(events.SystemState{})
}

func TestParseTopics(t *testing.T) {
	assert.Nil(t, parseTopics(""))
	assert.Equal(t, map[string]bool{"a": true, "b": true}, parseTopics("a, b,,"))
}
