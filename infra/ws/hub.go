// Package ws streams engine events to browser clients over WebSocket.
//
// Every frame is a JSON envelope {"topic": ..., "payload": ...} carrying one
// of the three event topics. A client may restrict the topics it receives
// with ?topics=vehicle-updates,system-state. New clients get the last known
// system state immediately after connecting.
package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/infra/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Envelope is the frame written to clients.
type Envelope struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]bool
}

func (c *client) wants(topic string) bool {
	return len(c.topics) == 0 || c.topics[topic]
}

// Hub fans events out to connected WebSocket clients. Slow clients drop frames.
type Hub struct {
	upgrader websocket.Upgrader
	log      logger.Logger

	mu        sync.RWMutex
	clients   map[*client]struct{}
	lastState []byte
	closed    bool
}

// NewHub creates an empty hub accepting connections from any origin.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     logger.New("ws"),
		clients: make(map[*client]struct{}),
	}
}

// PublishVehicleUpdate broadcasts a vehicle update.
func (h *Hub) PublishVehicleUpdate(u events.VehicleUpdate) {
	h.broadcast(events.TopicVehicleUpdates, u)
}

// PublishSystemState broadcasts a system state and keeps it for late joiners.
func (h *Hub) PublishSystemState(s events.SystemState) {
	h.broadcast(events.TopicSystemState, s)
}

// PublishDeliveryStatus broadcasts a delivery status.
func (h *Hub) PublishDeliveryStatus(d events.DeliveryStatus) {
	h.broadcast(events.TopicDeliveryStatus, d)
}

func (h *Hub) broadcast(topic string, payload any) {
	frame, err := json.Marshal(Envelope{Topic: topic, Payload: payload})
	if err != nil {
		h.log.Errorf("encode %s: %v", topic, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if topic == events.TopicSystemState {
		h.lastState = frame
	}
	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			h.log.Warnf("dropping %s frame for slow client %s", topic, c.conn.RemoteAddr())
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("upgrade: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), topics: parseTopics(r.URL.Query().Get("topics"))}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.lastState != nil && c.wants(events.TopicSystemState) {
		c.send <- h.lastState
	}
	h.mu.Unlock()
	h.log.Debugf("client %s connected", conn.RemoteAddr())

	go h.writePump(c)
	h.readPump(c)
}

func parseTopics(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	topics := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics[t] = true
		}
	}
	return topics
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("unexpected close: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.log.Debugf("client %s disconnected", c.conn.RemoteAddr())
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
