// Package realtime delivers metric events to connected learners and runs the
// periodic metric streams.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 5 * time.Second

// Publisher delivers a named event to every connection of a user.
type Publisher interface {
	Publish(ctx context.Context, userID, event string, payload interface{}) error
}

// Envelope is the frame written to the socket.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	// gorilla allows one concurrent writer per connection
	writeMu sync.Mutex
}

func (c *client) write(deadline time.Time, v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

type Hub struct {
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	connections map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		connections: make(map[string]map[*client]struct{}),
	}
}

// ServeWS upgrades the request and keeps the connection registered for userID
// until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	h.register(userID, c)
	log.Debug().Str("userId", userID).Msg("WebSocket connected")

	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.unregister(userID, c)
			log.Debug().Str("userId", userID).Msg("WebSocket disconnected")
			return
		}
	}
}

func (h *Hub) register(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[userID] == nil {
		h.connections[userID] = make(map[*client]struct{})
	}
	h.connections[userID][c] = struct{}{}
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	conns := h.connections[userID]
	_, ok := conns[c]
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}

// Publish writes the event to every connection of the user. Connections that fail
// to accept the write are dropped. A user without connections is not an error.
func (h *Hub) Publish(ctx context.Context, userID, event string, payload interface{}) error {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.connections[userID]))
	for c := range h.connections[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	frame := Envelope{Event: event, Data: payload}
	failed := 0
	for _, c := range targets {
		if err := c.write(deadline, frame); err != nil {
			failed++
			log.Warn().Err(err).Str("userId", userID).Str("event", event).Msg("Error sending to user")
			h.unregister(userID, c)
		}
	}
	if failed > 0 && failed == len(targets) {
		return fmt.Errorf("failed to deliver %s to user %s", event, userID)
	}
	return nil
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.connections
	h.connections = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, conns := range all {
		for c := range conns {
			_ = c.conn.Close()
		}
	}
}
