package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cognisense-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsCommand is the control frame clients send upstream.
type wsCommand struct {
	Action string `json:"action"`
}

// wsClient is one dashboard connection. The mutex serializes writes
// between the broadcast path and command responses.
type wsClient struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	paused bool
}

func (c *wsClient) sendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsClient) setPaused(paused bool) {
	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()
}

func (c *wsClient) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Hub fans emitted readings out to every connected dashboard client
// and tracks the latest reading for the REST /load/live endpoint.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	latest  *models.Reading
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Start consumes readings from the channel and broadcasts each one.
// Runs until context is cancelled or the channel is closed.
func (h *Hub) Start(ctx context.Context, readings <-chan *models.Reading) {
	log.Println("Hub: Starting broadcast loop...")

	for {
		select {
		case <-ctx.Done():
			log.Println("Hub: Context cancelled, shutting down...")
			h.closeAll()
			return

		case reading, ok := <-readings:
			if !ok {
				log.Println("Hub: Reading channel closed, shutting down...")
				h.closeAll()
				return
			}
			h.Broadcast(reading)
		}
	}
}

// Broadcast sends a reading to all connected, non-paused clients.
// Dead connections are dropped from the registry.
func (h *Hub) Broadcast(reading *models.Reading) {
	h.mu.Lock()
	h.latest = reading
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.Unlock()

	for _, client := range targets {
		if client.isPaused() {
			continue
		}
		if err := client.sendJSON(reading); err != nil {
			h.remove(client)
		}
	}
}

// LatestReading returns the most recently broadcast reading, or nil.
func (h *Hub) LatestReading() *models.Reading {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWS upgrades a request to a WebSocket connection and serves the
// live stream until the client disconnects.
func (h *Hub) HandleWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Hub: failed to upgrade websocket: %v", err)
			return
		}

		client := &wsClient{conn: ws}
		h.add(client)
		log.Printf("Hub: client connected (%d total)", h.ClientCount())

		defer func() {
			h.remove(client)
			ws.Close()
			log.Printf("Hub: client disconnected (%d remaining)", h.ClientCount())
		}()

		// Replay the latest reading so a reconnecting dashboard is not
		// blank until the next tick.
		if latest := h.LatestReading(); latest != nil {
			if err := client.sendJSON(latest); err != nil {
				return
			}
		}

		h.readCommands(client)
	}
}

// readCommands pumps client control frames until the connection dies.
// Malformed frames are ignored; only pause/resume/ping are recognized.
func (h *Hub) readCommands(client *wsClient) {
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		switch cmd.Action {
		case "pause":
			client.setPaused(true)
			if err := client.sendJSON(map[string]string{"status": "paused"}); err != nil {
				return
			}
		case "resume":
			client.setPaused(false)
			if err := client.sendJSON(map[string]string{"status": "streaming"}); err != nil {
				return
			}
		case "ping":
			if err := client.sendJSON(map[string]string{"status": "pong"}); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(client *wsClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for client := range h.clients {
		client.conn.Close()
		delete(h.clients, client)
	}
	h.mu.Unlock()
}
