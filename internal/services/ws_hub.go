package services

import (
	"encoding/json"
	"sync"
	"time"

	"athlos-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage is a message pushed to a connected client. Payloads carry ids
// only: clients treat them as refetch triggers, never as the state itself.
type WSMessage struct {
	Type         string               `json:"type"`
	Timestamp    int64                `json:"timestamp"`
	PostID       string               `json:"post_id,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// wsConn serializes writes to one connection. Event handlers run on
// independent goroutines, and gorilla/websocket allows one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections keyed by profile id
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsConn
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{connections: make(map[string]*wsConn)}
}

// Register registers a connection for a profile, replacing any existing one
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[userID]; ok {
		existing.conn.Close()
	}
	h.connections[userID] = &wsConn{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes conn if it is still the registered connection for the
// profile. A connection that was already replaced by a reconnect is only
// closed, so the replacement stays registered.
func (h *WSHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if current, ok := h.connections[userID]; ok && current.conn == conn {
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
	h.mu.Unlock()

	conn.Close()
}

// IsOnline checks if a profile has a live connection
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[userID]
	return ok
}

// PushNotification delivers a notification to its recipient if online
func (h *WSHub) PushNotification(userID string, n *models.Notification) {
	h.send(userID, WSMessage{
		Type:         "notification",
		Timestamp:    time.Now().UnixMilli(),
		Notification: n,
	})
}

// BroadcastPostChange tells every connected client that the post set
// changed and the feed should be refetched
func (h *WSHub) BroadcastPostChange(kind, postID string) {
	msg := WSMessage{
		Type:      kind,
		Timestamp: time.Now().UnixMilli(),
		PostID:    postID,
	}

	h.mu.RLock()
	userIDs := make([]string, 0, len(h.connections))
	for userID := range h.connections {
		userIDs = append(userIDs, userID)
	}
	h.mu.RUnlock()

	for _, userID := range userIDs {
		h.send(userID, msg)
	}
}

// Close tears down every connection
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, c := range h.connections {
		c.conn.Close()
		delete(h.connections, userID)
	}
}

func (h *WSHub) send(userID string, msg WSMessage) {
	h.mu.RLock()
	c, ok := h.connections[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal WS message")
		return
	}

	if err := c.write(data); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send WS message")
		h.drop(userID, c)
	}
}

// drop removes a dead connection unless a reconnect already replaced it
func (h *WSHub) drop(userID string, c *wsConn) {
	h.mu.Lock()
	if current, ok := h.connections[userID]; ok && current == c {
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
	h.mu.Unlock()

	c.conn.Close()
}
