package ws

import (
	"sync"

	"github.com/DarshikR/Chat-App/internal/domain"
)

// Conn is a live transport handle held by the registry. Enqueue is
// non-blocking and reports whether the event was accepted.
type Conn interface {
	Enqueue(event domain.Event) bool
	Close()
}

// Registry maps a user id to at most one live connection. It is the
// source of truth for who is online. Nothing is persisted; after a
// restart every user appears offline until they reconnect.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register stores conn for userID and returns the replaced connection,
// if any, so the caller can close it. Last connect wins.
func (r *Registry) Register(userID string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[userID]
	r.conns[userID] = conn
	return prev
}

// Unregister removes the mapping only if the stored handle is still the
// one being closed. A stale disconnect racing a fresher reconnect is a
// no-op. Reports whether the mapping changed.
func (r *Registry) Unregister(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[userID] != conn {
		return false
	}
	delete(r.conns, userID)
	return true
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// Online returns the current presence set, recomputed on every call.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) snapshot() map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Conn, len(r.conns))
	for id, conn := range r.conns {
		out[id] = conn
	}
	return out
}
