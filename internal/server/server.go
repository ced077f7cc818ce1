// Package server assembles the relay: presence registry, room store,
// coordinator, hub and HTTP routes.
package server

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/gossipgrid/internal/config"
	"github.com/Tyrowin/gossipgrid/internal/metrics"
	"github.com/Tyrowin/gossipgrid/internal/presence"
	"github.com/Tyrowin/gossipgrid/internal/relay"
	"github.com/Tyrowin/gossipgrid/internal/room"
)

// Server owns every long-lived component of a running relay.
type Server struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	conns    *presence.Registry
	rooms    *room.Store
	metrics  *metrics.Metrics
	hub      *Hub
	coord    *relay.Coordinator
	upgrader websocket.Upgrader
}

// New builds a Server from cfg. A nil cfg uses config.Default.
func New(cfg *config.Config, log logrus.FieldLogger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	m := metrics.New()
	conns := presence.NewRegistry()
	rooms := room.NewStore(room.WithIDGenerator(room.IDGenerator(cfg.RoomIDLength)))
	hub := NewHub(cfg, log, m)
	coord := relay.NewCoordinator(conns, rooms, hub, log, relay.WithMetrics(m))
	hub.SetHandler(coord)

	policy := newOriginPolicy(cfg, log)
	return &Server{
		cfg:     cfg,
		log:     log,
		conns:   conns,
		rooms:   rooms,
		metrics: m,
		hub:     hub,
		coord:   coord,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.checkOrigin,
		},
	}
}

// StartHub runs the hub's event loop in a separate goroutine. It must be
// called before the HTTP server accepts connections.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.log.Info("Hub started and ready to manage WebSocket connections")
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Coordinator returns the lifecycle coordinator driving the relay.
func (s *Server) Coordinator() *relay.Coordinator {
	return s.coord
}

// Shutdown stops the hub and waits up to timeout for client goroutines.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.hub.Shutdown(timeout)
}
