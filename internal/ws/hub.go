package ws

import (
	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

// Hub owns the connection registry and implements presence broadcast,
// the typing relay and best-effort live message delivery.
type Hub struct {
	registry *Registry
	log      logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		log:      log,
	}
}

// Register binds userID to conn, closes any replaced connection and
// broadcasts the new presence set.
func (h *Hub) Register(userID string, conn Conn) {
	if prev := h.registry.Register(userID, conn); prev != nil {
		h.log.Info("Replacing existing connection", "user_id", userID)
		prev.Close()
	}
	h.broadcastPresence()
}

// Unregister removes the binding if conn is still current, then
// broadcasts. A stale handle changes nothing.
func (h *Hub) Unregister(userID string, conn Conn) {
	if h.registry.Unregister(userID, conn) {
		h.broadcastPresence()
	}
}

// Online reports the current presence set.
func (h *Hub) Online() []string {
	return h.registry.Online()
}

// broadcastPresence sends the full online set to every connection.
// Full-set broadcast is idempotent and self-healing after a missed
// update, so no delta tracking is needed. Evicting a slow connection
// changes the set, so the pass repeats until one completes with no
// evictions; each repeat shrinks the registry, so it terminates.
func (h *Hub) broadcastPresence() {
	for {
		event := domain.PresenceEvent(h.registry.Online())

		evicted := false
		for id, conn := range h.registry.snapshot() {
			if !conn.Enqueue(event) {
				h.log.Warn("Dropping slow connection", "user_id", id)
				if h.registry.Unregister(id, conn) {
					conn.Close()
					evicted = true
				}
			}
		}
		if !evicted {
			return
		}
	}
}

// Typing relays a typing signal to the recipient, if connected. Typing
// state is advisory and perishable, so an offline recipient is a silent
// no-op.
func (h *Hub) Typing(from, to string) {
	if conn, ok := h.registry.Lookup(to); ok {
		conn.Enqueue(domain.TypingEvent(from))
	}
}

// StopTyping relays a stop-typing signal, same delivery policy as Typing.
func (h *Hub) StopTyping(from, to string) {
	if conn, ok := h.registry.Lookup(to); ok {
		conn.Enqueue(domain.StopTypingEvent(from))
	}
}

// PushMessage delivers a persisted message to the recipient's live
// connection. At-most-once, no retry: an offline recipient catches up
// through the history fetch on next connect.
func (h *Hub) PushMessage(userID string, msg *domain.Message) {
	conn, ok := h.registry.Lookup(userID)
	if !ok {
		return
	}
	if !conn.Enqueue(domain.NewMessageEvent(msg)) {
		h.log.Warn("Live delivery dropped, push buffer full", "user_id", userID)
	}
}
