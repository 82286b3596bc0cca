package server

import (
	"errors"
	"sync"

	"snapshare/internal/observability"
)

const (
	maxStreamConns   = 10000
	streamBufferSize = 64
)

var (
	errHubClosed = errors.New("event stream is shutting down")
	errHubFull   = errors.New("server connection limit reached")
)

// streamClient is one subscriber of the post event stream.
type streamClient struct {
	userID uint
	send   chan []byte
}

// eventHub fans post events from Redis out to every connected client.
type eventHub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	closed  bool
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*streamClient]struct{})}
}

func (h *eventHub) Register(userID uint) (*streamClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errHubClosed
	}
	if len(h.clients) >= maxStreamConns {
		return nil, errHubFull
	}
	c := &streamClient{userID: userID, send: make(chan []byte, streamBufferSize)}
	h.clients[c] = struct{}{}
	return c, nil
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *eventHub) Unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues payload for every client. Clients whose buffer is full
// miss the frame rather than stall the subscriber.
func (h *eventHub) Broadcast(payload string) {
	data := []byte(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		}
	}
}

func (h *eventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *eventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
