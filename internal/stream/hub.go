package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/amirb2607/PortfolioHub/internal/reconciler"
	"github.com/amirb2607/PortfolioHub/pkg/logger"
)

// Message types
const (
	MsgTypeSnapshot = "snapshot"
	MsgTypeRefresh  = "refresh"
	MsgTypeError    = "error"
	MsgTypePing     = "ping"
	MsgTypePong     = "pong"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type string `json:"type"`
}

// ServerMessage represents a message to the client
type ServerMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Client represents one WebSocket connection, bound to a user.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan []byte
}

// userBridge forwards one user's reconciler snapshots to all of that
// user's connected clients.
type userBridge struct {
	clients     map[*Client]bool
	unsubscribe func()
}

// Hub fans portfolio snapshots out to WebSocket clients. The first
// client for a user opens a bridge to the user's reconciler; the last
// one to leave closes it.
type Hub struct {
	manager *reconciler.Manager

	mu    sync.RWMutex
	users map[string]*userBridge

	register   chan *Client
	unregister chan *Client
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewHub creates a new snapshot hub
func NewHub(manager *reconciler.Manager) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		manager:    manager,
		users:      make(map[string]*userBridge),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.addClient(client)
			logger.Info().Str("client_id", client.ID).Str("user_id", client.UserID).Msg("stream client connected")

		case client := <-h.unregister:
			h.removeClient(client)
			logger.Info().Str("client_id", client.ID).Str("user_id", client.UserID).Msg("stream client disconnected")
		}
	}
}

// Stop shuts down the hub and closes every bridge
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, bridge := range h.users {
		bridge.unsubscribe()
		for client := range bridge.clients {
			close(client.Send)
		}
		delete(h.users, userID)
	}
}

// Register adds a client to the hub. No-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub. No-op once the hub has
// stopped; Stop closes the remaining clients itself.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bridge, ok := h.users[client.UserID]
	if !ok {
		r, err := h.manager.Ensure(client.UserID)
		if err != nil {
			logger.Error().Err(err).Str("user_id", client.UserID).Msg("failed to start session for stream")
			client.sendError("failed to start session")
			close(client.Send)
			return
		}

		snapshots, unsubscribe := r.Subscribe()
		bridge = &userBridge{
			clients:     make(map[*Client]bool),
			unsubscribe: unsubscribe,
		}
		h.users[client.UserID] = bridge
		go h.pump(client.UserID, snapshots)
	}

	bridge.clients[client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bridge, ok := h.users[client.UserID]
	if !ok || !bridge.clients[client] {
		return
	}
	delete(bridge.clients, client)
	close(client.Send)

	if len(bridge.clients) == 0 {
		bridge.unsubscribe()
		delete(h.users, client.UserID)
	}
}

// pump forwards snapshots to all of the user's clients until the
// bridge closes.
func (h *Hub) pump(userID string, snapshots <-chan reconciler.Snapshot) {
	for snapshot := range snapshots {
		msg := ServerMessage{
			Type:      MsgTypeSnapshot,
			Data:      snapshot,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		data, err := json.Marshal(msg)
		if err != nil {
			logger.Error().Err(err).Msg("failed to marshal snapshot message")
			continue
		}

		h.mu.RLock()
		bridge, ok := h.users[userID]
		if ok {
			for client := range bridge.clients {
				select {
				case client.Send <- data:
				default:
					// Client buffer full, skip
				}
			}
		}
		h.mu.RUnlock()
	}
}

// NewClient creates a new stream client
func NewClient(id, userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan []byte, 16),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error().Err(err).Str("client_id", c.ID).Msg("stream read error")
			}
			break
		}

		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message format")
			continue
		}

		switch msg.Type {
		case MsgTypeRefresh:
			if r, err := c.Hub.manager.Ensure(c.UserID); err == nil {
				r.Refresh()
			}
		case MsgTypePing:
			c.sendPong()
		default:
			c.sendError("Unknown message type: " + msg.Type)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(errMsg string) {
	msg := ServerMessage{
		Type:      MsgTypeError,
		Error:     errMsg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, _ := json.Marshal(msg)
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) sendPong() {
	msg := ServerMessage{
		Type:      MsgTypePong,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, _ := json.Marshal(msg)
	select {
	case c.Send <- data:
	default:
	}
}
