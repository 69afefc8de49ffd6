package signal

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

// Hub maps connection ids to live websocket connections and implements
// core.Transport on top of them.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]core.SignalConnection
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.ConnID]core.SignalConnection)}
}

func (h *Hub) Add(id domain.ConnID, c core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = c
}

func (h *Hub) Remove(id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send encodes ev as a JSON text frame and enqueues it without blocking.
func (h *Hub) Send(to domain.ConnID, ev core.Event) error {
	h.mu.RLock()
	c, ok := h.conns[to]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrConnClosed, to)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	return c.TrySend(b)
}

// Close shuts the connection down; its read pump then reports the
// disconnect.
func (h *Hub) Close(id domain.ConnID) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	if ok {
		c.Close()
	}
}
