package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"scorer-backend/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Notification event types
const (
	EventFriendRequest  = "friend_request"
	EventFriendAccepted = "friend_accepted"
	EventMatchCreated   = "match_created"
	EventMatchValidated = "match_validated"
	EventError          = "error"
	EventPing           = "ping"
	EventPong           = "pong"
)

const writeTimeout = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Notifier delivers best-effort realtime events to users
type Notifier interface {
	Notify(userID string, message WSMessage)
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, WSMessage) {}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections, one per user
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
	}
}

// Register registers a new WebSocket connection for a user. An existing
// connection for the same user is closed and replaced.
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	} else {
		metrics.WebSocketConnections.Inc()
	}
	h.connections[userID] = &wsClient{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes conn if it is still the user's current connection
func (h *WSHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.connections[userID]
	if !exists || client.conn != conn {
		return
	}
	client.conn.Close()
	delete(h.connections, userID)
	metrics.WebSocketConnections.Dec()
	log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.write(data); err != nil {
		h.Unregister(userID, client.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Notify sends message if the user is online and logs delivery failures
func (h *WSHub) Notify(userID string, message WSMessage) {
	if !h.IsOnline(userID) {
		return
	}
	if err := h.SendToUser(userID, message); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("type", message.Type).
			Msg("Failed to deliver notification")
	}
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// OnlineCount returns the number of connected users
func (h *WSHub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
