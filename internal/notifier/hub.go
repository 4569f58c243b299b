// Package notifier fans accepted moves out to every connected observer.
package notifier

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/observability"
)

// Observer transports
const (
	TransportSSE       = "sse"
	TransportWebSocket = "ws"
)

// Buffer size for outgoing messages per observer
const sendBufferSize = 256

// Message is one event delivered to observers. Data is the JSON payload.
type Message struct {
	Event model.EventType
	Data  []byte

	// seq orders the message against client registrations
	seq uint64
}

// Client is one connected observer
type Client struct {
	transport   string
	send        chan Message
	connectedAt time.Time

	// since is the last message sequence issued before the client registered
	since uint64
}

// NewClient creates an observer for the given transport
func NewClient(transport string) *Client {
	return &Client{
		transport:   transport,
		send:        make(chan Message, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Messages returns the channel the hub delivers to. It is closed when the
// client is unregistered or the hub shuts down.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// Hub is the single global channel every observer subscribes to. There is no
// replay: observers only receive messages whose Broadcast began after their
// Register call. Messages still queued when a client registers are skipped
// for that client.
type Hub struct {
	clients map[*Client]bool
	seq     atomic.Uint64
	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *observability.Metrics

	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a hub; call Run to start delivering
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "notifier")),
		metrics:    metrics,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, sendBufferSize),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns after Close
func (h *Hub) Run() {
	h.logger.Info("notifier hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.metrics.Observers.WithLabelValues(client.transport).Inc()
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("observer registered",
				slog.String("transport", client.transport),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.metrics.Observers.WithLabelValues(client.transport).Dec()
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("observer unregistered",
					slog.String("transport", client.transport),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			sentCount := 0
			droppedCount := 0
			for client := range h.clients {
				if message.seq <= client.since {
					continue
				}
				select {
				case client.send <- message:
					sentCount++
				default:
					droppedCount++
				}
			}
			h.mu.RUnlock()
			if droppedCount > 0 {
				h.logger.Warn("broadcast partial failure - observer buffers full",
					slog.String("event", string(message.Event)),
					slog.Int("sent", sentCount),
					slog.Int("dropped", droppedCount))
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				delete(h.clients, client)
				h.metrics.Observers.WithLabelValues(client.transport).Dec()
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("notifier hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a client to the hub. It returns false if the hub is closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	client.since = h.seq.Load()

	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for every observer. It returns false when the hub
// backlog is full or the hub is closed and the message was dropped.
func (h *Hub) Broadcast(message Message) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	message.seq = h.seq.Add(1)
	select {
	case h.broadcast <- message:
		return true
	default:
		h.logger.Warn("broadcast dropped - hub buffer full", slog.String("event", string(message.Event)))
		return false
	}
}

// Close shuts down the hub and closes every client's channel
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// ClientCount returns the number of connected observers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
