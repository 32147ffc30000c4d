package ws

import (
	"context"
	"log/slog"
	"sync"
)

// Hub tracks which live connections belong to which project and fans
// payloads out to exactly that project's connections. All methods are safe
// for concurrent use from independent session goroutines.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[Conn]struct{}),
	}
}

// Register adds a connection to a project's set. The set is created lazily on
// the first connection for a project. Registering the same connection twice
// is harmless.
func (h *Hub) Register(projectID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[projectID]
	if !ok {
		set = make(map[Conn]struct{})
		h.conns[projectID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a connection from a project's set and drops the set
// entirely once it is empty. Unregistering an absent connection or project is
// a logged no-op.
func (h *Hub) Unregister(projectID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[projectID]
	if !ok {
		slog.Debug("unregister on unknown project", "project_id", projectID)
		return
	}
	if _, ok := set[c]; !ok {
		slog.Debug("unregister on unknown connection", "project_id", projectID)
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, projectID)
	}
}

// Broadcast sends payload to every connection currently registered for the
// project. A write that reports WriteClosed removes that connection from the
// registry before Broadcast returns; other write failures are logged and the
// connection is kept. Broadcasting to a project with no connections is a no-op.
func (h *Hub) Broadcast(ctx context.Context, projectID string, payload []byte) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.conns[projectID]))
	for c := range h.conns[projectID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		switch res, err := c.Write(ctx, payload); res {
		case WriteClosed:
			slog.Info("pruning closed connection", "project_id", projectID)
			h.Unregister(projectID, c)
		case WriteFailed:
			slog.Warn("broadcast send failed", "project_id", projectID, "error", err)
		case WriteOK:
		}
	}
}

// ConnectionCount returns the number of live connections for a project.
func (h *Hub) ConnectionCount(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[projectID])
}
