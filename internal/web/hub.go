package web

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"nihilism/server/internal/engine"
)

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// Client is one websocket subscriber to a player's event feed
type Client struct {
	ID       string
	PlayerID string
	Conn     *websocket.Conn
	Send     chan []byte
	hub      *SessionHub
	mu       sync.Mutex
	closed   bool
}

// SessionHub fans session events out to the websocket clients watching each
// player. It is registered on the SessionStore as an observer
type SessionHub struct {
	mu      sync.RWMutex
	players map[string]map[string]*Client
	clients atomic.Int64
	dropped atomic.Int64
}

// NewSessionHub creates an empty hub
func NewSessionHub() *SessionHub {
	return &SessionHub{
		players: make(map[string]map[string]*Client),
	}
}

// Attach registers a connection for playerID and starts its pumps
func (h *SessionHub) Attach(playerID string, conn *websocket.Conn) *Client {
	c := &Client{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		hub:      h,
	}
	h.register(c)
	go c.writePump()
	go c.readPump()
	return c
}

func (h *SessionHub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers, ok := h.players[c.PlayerID]
	if !ok {
		watchers = make(map[string]*Client)
		h.players[c.PlayerID] = watchers
	}
	watchers[c.ID] = c
	total := h.clients.Inc()
	log.Printf("[Hub] Client %s watching player %s (total: %d)", c.ID, c.PlayerID, total)
}

// unregister removes c and closes its send channel. Sends happen under the
// read lock so the close never races a broadcast
func (h *SessionHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *SessionHub) removeLocked(c *Client) {
	watchers, ok := h.players[c.PlayerID]
	if !ok {
		return
	}
	if _, ok := watchers[c.ID]; !ok {
		return
	}
	delete(watchers, c.ID)
	if len(watchers) == 0 {
		delete(h.players, c.PlayerID)
	}
	close(c.Send)
	total := h.clients.Dec()
	log.Printf("[Hub] Client %s disconnected (total: %d)", c.ID, total)
}

// Notify implements engine.Observer. Slow clients miss events rather than
// block the session. A deleted player's clients are disconnected after the
// event is queued
func (h *SessionHub) Notify(ev engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Hub] Failed to marshal %s event: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	for _, c := range h.players[ev.PlayerID] {
		select {
		case c.Send <- data:
		default:
			h.dropped.Inc()
			log.Printf("[Hub] Client send buffer full: %s", c.ID)
		}
	}
	h.mu.RUnlock()

	if ev.Type == engine.EventDeleted {
		h.disconnectPlayer(ev.PlayerID)
	}
}

func (h *SessionHub) disconnectPlayer(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.players[playerID] {
		h.removeLocked(c)
	}
}

// ClientCount returns the number of connected clients
func (h *SessionHub) ClientCount() int64 {
	return h.clients.Load()
}

// Dropped returns how many messages were skipped for full client buffers
func (h *SessionHub) Dropped() int64 {
	return h.dropped.Load()
}

// Close disconnects every client
func (h *SessionHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, watchers := range h.players {
		for _, c := range watchers {
			h.removeLocked(c)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.mu.Unlock()
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Client] Error writing to %s: %v", c.ID, err)
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

		case <-ticker.C:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[Client] Error sending ping to %s: %v", c.ID, err)
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.Conn.Close()
}

// readPump discards inbound frames and keeps the read deadline alive. The
// feed is one way
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Client] Unexpected close from %s: %v", c.ID, err)
			}
			return
		}
	}
}
