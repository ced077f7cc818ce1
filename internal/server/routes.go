// Package server wires HTTP handlers into a ServeMux for the relay via
// routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// It sets up handlers for the health check, the WebSocket endpoint, live
// stats, and Prometheus metrics.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/stats", s.StatsHandler)
	mux.Handle(s.cfg.MetricsPath, s.metrics.Handler())
	return mux
}
