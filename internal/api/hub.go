package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/metrics"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

// clientBuffer is how many events a feed client may lag behind
const clientBuffer = 64

// Hub broadcasts stored records to the live feed clients. It implements
// storage.Sink. A client whose buffer is full is disconnected; ingestion
// never waits for a feed client.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	remoteAddr string
	send       chan []byte
}

// NewHub creates an empty hub
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		metrics: m,
		clients: make(map[*client]struct{}),
	}
}

// Store implements storage.Sink
func (h *Hub) Store(_ context.Context, station string, rec protocol.Record) error {
	if h.Clients() == 0 {
		return nil
	}

	data, err := json.Marshal(NewEvent(station, rec, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to encode feed event: %w", err)
	}

	h.broadcast(data)
	return nil
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Warn("Dropping slow feed client", zap.String("remote_addr", c.remoteAddr))
			h.metrics.FeedsDropped.Inc()
			h.removeLocked(c)
		}
	}
}

func (h *Hub) subscribe(remoteAddr string) *client {
	c := &client{
		remoteAddr: remoteAddr,
		send:       make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.metrics.FeedClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	logging.Info("Feed client connected", zap.String("remote_addr", remoteAddr))
	return c
}

// unsubscribe may be called more than once for the same client
func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.FeedClients.Set(float64(len(h.clients)))
	logging.Info("Feed client disconnected", zap.String("remote_addr", c.remoteAddr))
}

// Clients returns the number of connected feed clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
