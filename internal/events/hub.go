package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one WebSocket connection registered to a single room. Adapted
// from the teacher's brackets/hub.go Client, trading its bespoke
// WebSocketMessage envelope for this package's typed Event.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	room     string
	isClosed bool
	mu       sync.Mutex
}

// Hub bridges Bus events to every WebSocket client subscribed to a room
// (spec.md §4.5). It owns one Bus subscription per active room and fans
// each event out to that room's clients, closing the subscription once the
// last client leaves.
type Hub struct {
	log *slog.Logger
	bus *Bus

	mu      sync.RWMutex
	clients map[string]map[*Client]bool
	cancel  map[string]func()
}

func NewHub(bus *Bus, log *slog.Logger) *Hub {
	return &Hub{
		log:     log,
		bus:     bus,
		clients: make(map[string]map[*Client]bool),
		cancel:  make(map[string]func()),
	}
}

// Register adds conn to room, starting a Bus relay for the room on its
// first client, then spawns the read/write pumps.
func (h *Hub) Register(conn *websocket.Conn, room string) {
	c := &Client{conn: conn, send: make(chan []byte, subBufferSize), room: room}

	h.mu.Lock()
	if h.clients[room] == nil {
		h.clients[room] = make(map[*Client]bool)
		ch, cancel := h.bus.Subscribe(room)
		h.cancel[room] = cancel
		go h.relay(room, ch)
	}
	h.clients[room][c] = true
	h.mu.Unlock()

	h.log.Debug("websocket client registered", "room", room, "clients", len(h.clients[room]))

	c.hub = h
	go c.writePump()
	go c.readPump()
}

func (h *Hub) relay(room string, ch <-chan Event) {
	for ev := range ch {
		payload, err := json.Marshal(ev)
		if err != nil {
			h.log.Error("marshal event for broadcast", "room", room, "error", err)
			continue
		}
		h.broadcastRaw(room, payload)
	}
}

func (h *Hub) broadcastRaw(room string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[room]
	h.mu.RUnlock()

	for c := range clients {
		c.mu.Lock()
		if c.isClosed {
			c.mu.Unlock()
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.log.Warn("dropping event for slow websocket client", "room", room)
		}
		c.mu.Unlock()
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[c.room]; ok {
		if _, ok := clients[c]; ok {
			c.mu.Lock()
			if !c.isClosed {
				close(c.send)
				c.isClosed = true
			}
			c.mu.Unlock()
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.clients, c.room)
				if cancel, ok := h.cancel[c.room]; ok {
					cancel()
					delete(h.cancel, c.room)
				}
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients are read-only observers of tournament state; inbound frames
		// are drained only to keep pong handling alive and detect disconnects.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
