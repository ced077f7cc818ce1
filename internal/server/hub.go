// Package server coordinates client registration, frame delivery, and
// connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/gossipgrid/internal/config"
	"github.com/Tyrowin/gossipgrid/internal/metrics"
	"github.com/Tyrowin/gossipgrid/internal/protocol"
)

// EventHandler receives connection lifecycle events and inbound frames
// from the Hub.
type EventHandler interface {
	Connect(connID string)
	Disconnect(connID string)
	Dispatch(connID string, raw []byte) error
}

// Hub manages all WebSocket client connections and delivers outbound frames
// to them. It serializes registration and unregistration through a single
// event loop and guards the client map with a mutex so deliveries from
// other goroutines see a consistent view.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	handler    EventHandler
	cfg        config.Config
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub using cfg for per-connection limits. SetHandler must
// be called before Run.
func NewHub(cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		cfg:        *cfg,
		log:        log,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// SetHandler installs the receiver of lifecycle events and inbound frames.
func (h *Hub) SetHandler(handler EventHandler) {
	h.handler = handler
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// registerClient hands the client to the event loop. It returns false if
// the hub is shutting down.
func (h *Hub) registerClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Deliver encodes the frame once and queues it for each recipient. It
// never blocks: recipients that are gone are skipped and recipients whose
// buffer is full are disconnected.
func (h *Hub) Deliver(recipients []string, event string, data any) {
	payload, err := protocol.Encode(event, data)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("Dropping frame that failed to encode")
		return
	}

	for _, id := range recipients {
		client, ok := h.safeSend(id, payload)
		if ok {
			h.metrics.Delivered()
			continue
		}

		h.metrics.Dropped()
		if client != nil {
			h.log.WithFields(logrus.Fields{
				"conn_id":     id,
				"remote_addr": client.addr,
				"event":       event,
			}).Warn("Send buffer full, disconnecting client")
			client.close()
		}
	}
}

// safeSend queues the payload for the client registered under id. The
// returned client is non-nil when the client exists but could not accept
// the payload.
func (h *Hub) safeSend(id string, payload []byte) (*Client, bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("panic", r).Error("Recovered from panic in safeSend")
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	client, exists := h.clients[id]
	if !exists || client.closed {
		return nil, false
	}

	select {
	case client.send <- payload:
		return client, true
	default:
		return client, false
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. It blocks until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.log.WithFields(logrus.Fields{
		"conn_id":     client.id,
		"remote_addr": client.addr,
		"clients":     clientCount,
	}).Debug("Client registered")

	// registered before Connect so the client sees its own presence update
	if h.handler != nil {
		h.handler.Connect(client.id)
	}

	if client.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) removeClient(client *Client) {
	if client == nil {
		return
	}

	h.mutex.Lock()
	if registered, ok := h.clients[client.id]; !ok || registered != client {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)

	h.log.WithFields(logrus.Fields{
		"conn_id":     client.id,
		"remote_addr": client.addr,
		"clients":     clientCount,
	}).Debug("Client unregistered")

	if h.handler != nil {
		h.handler.Disconnect(client.id)
	}
}

// shutdownClients closes every active client connection.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.close()
	}

	h.log.WithField("clients", len(clients)).Info("Closed client connections")
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
