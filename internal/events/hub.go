// Package events pushes capture events to connected clients over WebSocket.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/quizmon/quizmon/internal/domain"
)

const writeTimeout = 5 * time.Second

// CaptureEvent is the wire shape of one capture notification.
type CaptureEvent struct {
	Type       string         `json:"type"`
	CreatureID int64          `json:"creatureId"`
	Name       string         `json:"name"`
	Sprite     string         `json:"sprite"`
	Variant    domain.Variant `json:"variant"`
	NewCapture bool           `json:"newCapture"`
}

// Hub tracks active event connections per user and fans capture events out
// to them.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[*websocket.Conn]bool)}
}

// Register adds a connection for a user.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.active[userID]; !ok {
		h.active[userID] = make(map[*websocket.Conn]bool)
	}
	h.active[userID][conn] = true
	slog.Info("Event feed connected", "user_id", userID)
}

// Unregister removes a connection for a user.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.active[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.active, userID)
		}
	}
}

// NotifyCapture implements encounter.CaptureNotifier. Writes happen on a
// separate goroutine so evaluation never blocks on a slow client.
func (h *Hub) NotifyCapture(userID string, creature *domain.Creature, variant domain.Variant, newCapture bool) {
	event := CaptureEvent{
		Type:       "capture",
		CreatureID: creature.ID,
		Name:       creature.Name,
		Sprite:     creature.Sprite,
		Variant:    variant,
		NewCapture: newCapture,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode capture event", "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.active[userID]))
	for conn := range h.active[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := c.Write(ctx, websocket.MessageText, payload); err != nil {
				slog.Debug("Capture event write failed", "user_id", userID, "error", err)
			}
		}(conn)
	}
}

// CloseUser terminates all connections for a user.
func (h *Hub) CloseUser(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.active[userID] {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
	}
	delete(h.active, userID)
}
