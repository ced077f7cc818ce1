// Package server exposes HTTP handlers, including WebSocket upgrades,
// health checks, and live stats.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stats is the body served by StatsHandler.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// WebSocketHandler handles WebSocket upgrade requests and manages client connections.
// It validates that the request uses the GET method, upgrades the HTTP connection
// to WebSocket, creates a new Client instance, and registers it with the hub,
// which starts the client's read/write pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).WithField("remote_addr", r.RemoteAddr).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr)
	if !s.hub.registerClient(client) {
		client.close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GossipGrid relay is running!")
}

// StatsHandler reports the current presence count and number of rooms.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	stats := Stats{
		Connections: s.conns.Count(),
		Rooms:       s.rooms.Len(),
	}
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.log.WithError(err).Warn("Error writing stats response")
	}
}
